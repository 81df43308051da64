package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
	"github.com/NgouanKoffi/fullmargin-live/internal/repository"
	"github.com/NgouanKoffi/fullmargin-live/internal/sse"
)

// EventPublisher pushes session status events to community watchers.
// Implemented by *sse.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, communityID string, event sse.Event) error
}

// LiveService translates owner intents into server-confirmed lifecycle
// transitions. Every returned record is the authoritative post-transition
// state; callers replace, never merge.
type LiveService struct {
	liveRepo   repository.LiveRepository
	memberRepo repository.MembershipRepository
	publisher  EventPublisher
}

func NewLiveService(
	liveRepo repository.LiveRepository,
	memberRepo repository.MembershipRepository,
	publisher EventPublisher,
) *LiveService {
	return &LiveService{
		liveRepo:   liveRepo,
		memberRepo: memberRepo,
		publisher:  publisher,
	}
}

func (s *LiveService) Schedule(ctx context.Context, account *model.Account, p model.ScheduleParams) (*model.LiveSession, error) {
	if err := validateTitle(p.Title); err != nil {
		return nil, err
	}
	if p.StartsAt.Before(time.Now()) {
		return nil, apperrors.ValidationError("Start time must be in the future")
	}
	if err := s.requireOwner(ctx, account, p.CommunityID); err != nil {
		return nil, err
	}

	live, err := s.liveRepo.CreateScheduled(ctx, p, newRoomName())
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("liveId", live.ID).
		Str("communityId", live.CommunityID).
		Time("startsAt", *live.StartsAt).
		Msg("live session scheduled")

	s.publish(ctx, live, sse.EventSessionScheduled)
	return live, nil
}

func (s *LiveService) Update(ctx context.Context, account *model.Account, id string, p model.UpdateParams) (*model.LiveSession, error) {
	if err := validateTitle(p.Title); err != nil {
		return nil, err
	}
	if p.StartsAt.Before(time.Now()) {
		return nil, apperrors.ValidationError("Start time must be in the future")
	}

	current, err := s.requireOwnedSession(ctx, account, id)
	if err != nil {
		return nil, err
	}

	live, err := s.liveRepo.UpdateScheduled(ctx, id, p)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		// Guarded update matched no row: status moved on under us.
		return nil, apperrors.InvalidTransition(string(current.Status), string(model.LiveStatusScheduled))
	}

	s.publish(ctx, live, sse.EventSessionUpdated)
	return live, nil
}

func (s *LiveService) Cancel(ctx context.Context, account *model.Account, id string) (*model.LiveSession, error) {
	current, err := s.requireOwnedSession(ctx, account, id)
	if err != nil {
		return nil, err
	}

	live, err := s.liveRepo.Cancel(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		return nil, apperrors.InvalidTransition(string(current.Status), string(model.LiveStatusCancelled))
	}

	log.Info().Str("liveId", live.ID).Msg("live session cancelled")
	s.publish(ctx, live, sse.EventSessionCancelled)
	return live, nil
}

func (s *LiveService) StartNow(ctx context.Context, account *model.Account, p model.StartNowParams) (*model.LiveSession, error) {
	if err := validateTitle(p.Title); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, account, p.CommunityID); err != nil {
		return nil, err
	}

	// Friendly pre-check; the partial unique index on live status is the
	// authoritative backstop under races.
	existing, err := s.liveRepo.FindLiveByCommunity(ctx, p.CommunityID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyLive(p.CommunityID)
	}

	live, err := s.liveRepo.CreateLive(ctx, p, newRoomName())
	if errors.Is(err, repository.ErrLiveExists) {
		return nil, apperrors.AlreadyLive(p.CommunityID)
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("liveId", live.ID).
		Str("communityId", live.CommunityID).
		Str("room", live.RoomName).
		Msg("live session started")

	s.publish(ctx, live, sse.EventSessionLive)
	return live, nil
}

func (s *LiveService) GoLive(ctx context.Context, account *model.Account, id string, p model.GoLiveParams) (*model.LiveSession, error) {
	if err := validateTitle(p.Title); err != nil {
		return nil, err
	}

	current, err := s.requireOwnedSession(ctx, account, id)
	if err != nil {
		return nil, err
	}

	live, err := s.liveRepo.GoLive(ctx, id, p, newRoomName())
	if errors.Is(err, repository.ErrLiveExists) {
		return nil, apperrors.AlreadyLive(current.CommunityID)
	}
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		return nil, apperrors.InvalidTransition(string(current.Status), string(model.LiveStatusLive))
	}

	log.Info().
		Str("liveId", live.ID).
		Str("room", live.RoomName).
		Msg("scheduled session promoted to live")

	s.publish(ctx, live, sse.EventSessionLive)
	return live, nil
}

// End is idempotent at the service boundary: ending an already-ended
// session returns the existing record without error.
func (s *LiveService) End(ctx context.Context, account *model.Account, id string) (*model.LiveSession, error) {
	current, err := s.requireOwnedSession(ctx, account, id)
	if err != nil {
		return nil, err
	}

	if current.Status == model.LiveStatusEnded {
		return current, nil
	}

	live, err := s.liveRepo.End(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		// Lost a race with another end, or the session never went live.
		latest, err := s.liveRepo.FindByID(ctx, id)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if latest != nil && latest.Status == model.LiveStatusEnded {
			return latest, nil
		}
		return nil, apperrors.InvalidTransition(string(current.Status), string(model.LiveStatusEnded))
	}

	log.Info().
		Str("liveId", live.ID).
		Time("endedAt", *live.EndedAt).
		Msg("live session ended")

	s.publish(ctx, live, sse.EventSessionEnded)
	return live, nil
}

func (s *LiveService) Get(ctx context.Context, id string) (*model.LiveSession, error) {
	live, err := s.liveRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		return nil, apperrors.NotFound("Live session")
	}
	return live, nil
}

func (s *LiveService) ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error) {
	lives, err := s.liveRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return lives, nil
}

func (s *LiveService) ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error) {
	items, err := s.liveRepo.ListPublicLive(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return items, nil
}

func (s *LiveService) requireOwner(ctx context.Context, account *model.Account, communityID string) error {
	if account == nil {
		return apperrors.Unauthorized("Authentication required")
	}
	owner, err := s.memberRepo.IsOwner(ctx, account.ID, communityID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !owner {
		return apperrors.Forbidden("Only the community owner can manage live sessions")
	}
	return nil
}

func (s *LiveService) requireOwnedSession(ctx context.Context, account *model.Account, id string) (*model.LiveSession, error) {
	live, err := s.liveRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		return nil, apperrors.NotFound("Live session")
	}
	if err := s.requireOwner(ctx, account, live.CommunityID); err != nil {
		return nil, err
	}
	return live, nil
}

func (s *LiveService) publish(ctx context.Context, live *model.LiveSession, eventType string) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(live)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, live.CommunityID, sse.Event{Type: eventType, Data: data}); err != nil {
		log.Warn().Err(err).Str("liveId", live.ID).Msg("failed to publish session event")
	}
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.MissingRequired("title")
	}
	return nil
}

func newRoomName() string {
	return fmt.Sprintf("fm-%s", uuid.NewString())
}
