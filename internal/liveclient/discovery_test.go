package liveclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

type stubDiscoveryAPI struct {
	items []model.PublicLiveSummary
	err   error
}

func (s *stubDiscoveryAPI) ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error) {
	return s.items, s.err
}

func summary(id, title, community string) model.PublicLiveSummary {
	return model.PublicLiveSummary{ID: id, Title: title, CommunityID: "c-" + id, CommunityName: community, RoomName: "fm-" + id}
}

func TestFilter(t *testing.T) {
	items := []model.PublicLiveSummary{
		summary("1", "Morning briefing", "FX Traders"),
		summary("2", "Open floor", "Crypto Desk"),
		summary("3", "Scalping session", "fx signals"),
	}

	t.Run("empty query keeps everything", func(t *testing.T) {
		assert.Len(t, Filter(items, ""), 3)
		assert.Len(t, Filter(items, "   "), 3)
	})

	t.Run("matches title case-insensitively", func(t *testing.T) {
		got := Filter(items, "BRIEFING")
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].ID)
	})

	t.Run("matches community name", func(t *testing.T) {
		got := Filter(items, "fx")
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		assert.Empty(t, Filter(items, "poker"))
	})
}

func TestDiscoveryViewFetch(t *testing.T) {
	t.Run("results present", func(t *testing.T) {
		view := NewDiscoveryView(&stubDiscoveryAPI{items: []model.PublicLiveSummary{
			summary("1", "Open floor", "Traders"),
		}})

		res, err := view.Fetch(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, DiscoveryOK, res.State)
		assert.Len(t, res.Items, 1)
	})

	t.Run("nothing live", func(t *testing.T) {
		view := NewDiscoveryView(&stubDiscoveryAPI{})

		res, err := view.Fetch(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, DiscoveryNothingLive, res.State)
		assert.Empty(t, res.Items)
	})

	t.Run("live but no match", func(t *testing.T) {
		view := NewDiscoveryView(&stubDiscoveryAPI{items: []model.PublicLiveSummary{
			summary("1", "Open floor", "Traders"),
		}})

		res, err := view.Fetch(context.Background(), "poker")
		require.NoError(t, err)
		assert.Equal(t, DiscoveryNoMatch, res.State)
		assert.Empty(t, res.Items)
	})

	t.Run("unauthorized listing maps to the auth prompt state", func(t *testing.T) {
		view := NewDiscoveryView(&stubDiscoveryAPI{err: apperrors.Unauthorized("Invalid token")})

		res, err := view.Fetch(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, DiscoveryUnauthorized, res.State)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		view := NewDiscoveryView(&stubDiscoveryAPI{err: boom})

		_, err := view.Fetch(context.Background(), "")
		assert.ErrorIs(t, err, boom)
	})
}
