package model

import "time"

type LiveStatus string

const (
	LiveStatusScheduled LiveStatus = "scheduled"
	LiveStatusLive      LiveStatus = "live"
	LiveStatusEnded     LiveStatus = "ended"
	LiveStatusCancelled LiveStatus = "cancelled"
)

// StatusRank orders statuses along the lifecycle graph. Reconciliation
// between a command response and a concurrent poll keeps the record with
// the higher rank, never the one that arrived last.
func StatusRank(s LiveStatus) int {
	switch s {
	case LiveStatusScheduled:
		return 0
	case LiveStatusLive:
		return 1
	case LiveStatusEnded, LiveStatusCancelled:
		return 2
	default:
		return -1
	}
}

// IsTerminal reports whether the session can never transition again.
func (s LiveStatus) IsTerminal() bool {
	return s == LiveStatusEnded || s == LiveStatusCancelled
}

type LiveSession struct {
	ID          string     `db:"id" json:"id"`
	CommunityID string     `db:"community_id" json:"communityId"`
	Title       string     `db:"title" json:"title"`
	Status      LiveStatus `db:"status" json:"status"`
	StartsAt    *time.Time `db:"starts_at" json:"startsAt,omitempty"`
	RoomName    string     `db:"room_name" json:"roomName"`
	IsPublic    bool       `db:"is_public" json:"isPublic"`
	EndedAt     *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicLiveSummary is the discovery-view projection of a live session.
type PublicLiveSummary struct {
	ID            string    `db:"id" json:"id"`
	CommunityID   string    `db:"community_id" json:"communityId"`
	CommunityName string    `db:"community_name" json:"communityName"`
	Title         string    `db:"title" json:"title"`
	RoomName      string    `db:"room_name" json:"roomName"`
	StartedAt     time.Time `db:"updated_at" json:"startedAt"`
}

type ScheduleParams struct {
	CommunityID string
	Title       string
	StartsAt    time.Time
	IsPublic    bool
}

type UpdateParams struct {
	Title    string
	StartsAt time.Time
	IsPublic bool
}

type StartNowParams struct {
	CommunityID string
	Title       string
	IsPublic    bool
}

type GoLiveParams struct {
	Title    string
	IsPublic bool
}

// JoinGrant is the short-lived credential handed to a client immediately
// before it connects to the conferencing room.
type JoinGrant struct {
	Token   string `json:"token"`
	Room    string `json:"room"`
	IsOwner bool   `json:"isOwner"`
}
