package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/NgouanKoffi/fullmargin-live/internal/database"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

type MembershipRepository interface {
	Find(ctx context.Context, accountID, communityID string) (*model.Membership, error)
	IsOwner(ctx context.Context, accountID, communityID string) (bool, error)
}

type membershipRepo struct {
	db database.DBTX
}

func NewMembershipRepository(db database.DBTX) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Find(ctx context.Context, accountID, communityID string) (*model.Membership, error) {
	var m model.Membership
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM memberships
		WHERE account_id = $1 AND community_id = $2
	`, accountID, communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepo) IsOwner(ctx context.Context, accountID, communityID string) (bool, error) {
	m, err := r.Find(ctx, accountID, communityID)
	if err != nil {
		return false, err
	}
	return m != nil && m.Role == model.MemberRoleOwner, nil
}
