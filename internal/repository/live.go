package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/NgouanKoffi/fullmargin-live/internal/database"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

// uniqueViolation is the Postgres error code backing the partial unique
// index on (community_id) WHERE status = 'live'.
const uniqueViolation = "23505"

// ErrLiveExists is returned when an insert or promotion would create a
// second live session in the same community.
var ErrLiveExists = errors.New("community already has a live session")

type LiveRepository interface {
	FindByID(ctx context.Context, id string) (*model.LiveSession, error)
	ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error)
	ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error)
	FindLiveByCommunity(ctx context.Context, communityID string) (*model.LiveSession, error)
	CreateScheduled(ctx context.Context, p model.ScheduleParams, roomName string) (*model.LiveSession, error)
	CreateLive(ctx context.Context, p model.StartNowParams, roomName string) (*model.LiveSession, error)
	UpdateScheduled(ctx context.Context, id string, p model.UpdateParams) (*model.LiveSession, error)
	Cancel(ctx context.Context, id string) (*model.LiveSession, error)
	GoLive(ctx context.Context, id string, p model.GoLiveParams, fallbackRoom string) (*model.LiveSession, error)
	End(ctx context.Context, id string) (*model.LiveSession, error)
	EndStale(ctx context.Context, olderThan time.Time) (int64, error)
	CancelLapsedScheduled(ctx context.Context, startedBefore time.Time) (int64, error)
	DeleteOldTerminal(ctx context.Context, before time.Time) (int64, error)
}

type liveRepo struct {
	db database.DBTX
}

func NewLiveRepository(db database.DBTX) LiveRepository {
	return &liveRepo{db: db}
}

func (r *liveRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		SELECT * FROM live_sessions WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live, nil
}

func (r *liveRepo) ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error) {
	lives := []model.LiveSession{}
	err := r.db.SelectContext(ctx, &lives, `
		SELECT * FROM live_sessions
		WHERE community_id = $1
		ORDER BY
			CASE status WHEN 'live' THEN 0 WHEN 'scheduled' THEN 1 ELSE 2 END,
			starts_at NULLS FIRST,
			created_at DESC
	`, communityID)
	if err != nil {
		return nil, err
	}
	return lives, nil
}

func (r *liveRepo) ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error) {
	items := []model.PublicLiveSummary{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT l.id, l.community_id, c.name AS community_name, l.title, l.room_name, l.updated_at
		FROM live_sessions l
		JOIN communities c ON c.id = l.community_id
		WHERE l.status = 'live' AND l.is_public = TRUE
		ORDER BY l.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *liveRepo) FindLiveByCommunity(ctx context.Context, communityID string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		SELECT * FROM live_sessions
		WHERE community_id = $1 AND status = 'live'
	`, communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live, nil
}

func (r *liveRepo) CreateScheduled(ctx context.Context, p model.ScheduleParams, roomName string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		INSERT INTO live_sessions (community_id, title, status, starts_at, room_name, is_public)
		VALUES ($1, $2, 'scheduled', $3, $4, $5)
		RETURNING *
	`, p.CommunityID, p.Title, p.StartsAt, roomName, p.IsPublic)
	if err != nil {
		return nil, err
	}
	return &live, nil
}

func (r *liveRepo) CreateLive(ctx context.Context, p model.StartNowParams, roomName string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		INSERT INTO live_sessions (community_id, title, status, room_name, is_public)
		VALUES ($1, $2, 'live', $3, $4)
		RETURNING *
	`, p.CommunityID, p.Title, roomName, p.IsPublic)
	if err != nil {
		return nil, mapLiveConflict(err)
	}
	return &live, nil
}

// UpdateScheduled mutates title/startsAt/isPublic. The status guard in the
// WHERE clause rejects updates once the session has left 'scheduled'; no
// rows back means the caller must inspect the current record.
func (r *liveRepo) UpdateScheduled(ctx context.Context, id string, p model.UpdateParams) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		UPDATE live_sessions SET
			title = $2,
			starts_at = $3,
			is_public = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING *
	`, id, p.Title, p.StartsAt, p.IsPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live, nil
}

func (r *liveRepo) Cancel(ctx context.Context, id string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		UPDATE live_sessions SET
			status = 'cancelled',
			updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING *
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live, nil
}

// GoLive promotes a scheduled session. An existing room_name is kept;
// fallbackRoom is assigned only when none was set.
func (r *liveRepo) GoLive(ctx context.Context, id string, p model.GoLiveParams, fallbackRoom string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		UPDATE live_sessions SET
			status = 'live',
			title = $2,
			is_public = $3,
			room_name = COALESCE(NULLIF(room_name, ''), $4),
			updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING *
	`, id, p.Title, p.IsPublic, fallbackRoom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLiveConflict(err)
	}
	return &live, nil
}

// End sets ended_at exactly once. No rows back on an already-ended session;
// the service layer resolves that to the existing record.
func (r *liveRepo) End(ctx context.Context, id string) (*model.LiveSession, error) {
	var live model.LiveSession
	err := r.db.GetContext(ctx, &live, `
		UPDATE live_sessions SET
			status = 'ended',
			ended_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'live'
		RETURNING *
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &live, nil
}

func (r *liveRepo) EndStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET
			status = 'ended',
			ended_at = NOW(),
			updated_at = NOW()
		WHERE status = 'live' AND updated_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *liveRepo) CancelLapsedScheduled(ctx context.Context, startedBefore time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET
			status = 'cancelled',
			updated_at = NOW()
		WHERE status = 'scheduled' AND starts_at < $1
	`, startedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *liveRepo) DeleteOldTerminal(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM live_sessions
		WHERE status IN ('ended', 'cancelled') AND updated_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func mapLiveConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrLiveExists
	}
	return err
}
