package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
	"github.com/NgouanKoffi/fullmargin-live/internal/repository"
	"github.com/NgouanKoffi/fullmargin-live/internal/util"
)

// TokenService issues short-lived, role-scoped conferencing join tokens.
// A token is minted fresh on every join attempt and is never stored.
type TokenService struct {
	liveRepo   repository.LiveRepository
	memberRepo repository.MembershipRepository
	domain     string
	appID      string
	secret     []byte
	ttl        time.Duration
}

func NewTokenService(
	liveRepo repository.LiveRepository,
	memberRepo repository.MembershipRepository,
	domain, appID, appSecret string,
	ttl time.Duration,
) *TokenService {
	return &TokenService{
		liveRepo:   liveRepo,
		memberRepo: memberRepo,
		domain:     domain,
		appID:      appID,
		secret:     []byte(appSecret),
		ttl:        ttl,
	}
}

// RequestToken mints a join credential for the given session. The role
// claim is derived from community ownership server-side; the caller's
// requested display name is sanitized before it reaches the room.
func (s *TokenService) RequestToken(ctx context.Context, account *model.Account, sessionID, displayName string) (*model.JoinGrant, error) {
	if account == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	live, err := s.liveRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if live == nil {
		return nil, apperrors.NotFound("Live session")
	}
	if live.Status != model.LiveStatusLive {
		return nil, apperrors.NotLive()
	}

	membership, err := s.memberRepo.Find(ctx, account.ID, live.CommunityID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if membership == nil {
		return nil, apperrors.Forbidden("Not a member of this community")
	}
	isOwner := membership.Role == model.MemberRoleOwner

	name := displayName
	if name == "" {
		name = account.DisplayName
	}
	name = util.SanitizeDisplayName(name)

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.appID,
		"aud":  s.appID,
		"sub":  s.domain,
		"room": live.RoomName,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"context": map[string]any{
			"user": map[string]any{
				"id":        account.ID,
				"name":      name,
				"moderator": isOwner,
			},
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Internal("Failed to sign join token").WithCause(err)
	}

	log.Info().
		Str("liveId", live.ID).
		Str("accountId", account.ID).
		Bool("isOwner", isOwner).
		Msg("join token issued")

	return &model.JoinGrant{
		Token:   token,
		Room:    live.RoomName,
		IsOwner: isOwner,
	}, nil
}
