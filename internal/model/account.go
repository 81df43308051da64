package model

import "time"

type Account struct {
	ID              string    `db:"id" json:"id"`
	APITokenHash    string    `db:"api_token_hash" json:"-"`
	DisplayName     string    `db:"display_name" json:"displayName"`
	RateLimitPerMin int       `db:"rate_limit_per_min" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

type Membership struct {
	AccountID   string     `db:"account_id" json:"accountId"`
	CommunityID string     `db:"community_id" json:"communityId"`
	Role        MemberRole `db:"role" json:"role"`
	JoinedAt    time.Time  `db:"joined_at" json:"joinedAt"`
}
