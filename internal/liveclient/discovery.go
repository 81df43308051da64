package liveclient

import (
	"context"
	"strings"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

// DiscoveryState tells the view which empty-state copy to show.
type DiscoveryState int

const (
	// DiscoveryOK — results present.
	DiscoveryOK DiscoveryState = iota
	// DiscoveryNothingLive — nothing is publicly live right now.
	DiscoveryNothingLive
	// DiscoveryNoMatch — sessions are live, but none match the query.
	DiscoveryNoMatch
	// DiscoveryUnauthorized — backend refused the listing; show the
	// authentication prompt.
	DiscoveryUnauthorized
)

type discoveryAPI interface {
	ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error)
}

// DiscoveryView is the read-only cross-community listing of public live
// sessions, with client-side text filtering over title and community name.
type DiscoveryView struct {
	api discoveryAPI
}

func NewDiscoveryView(api discoveryAPI) *DiscoveryView {
	return &DiscoveryView{api: api}
}

type DiscoveryResult struct {
	Items []model.PublicLiveSummary
	State DiscoveryState
}

func (v *DiscoveryView) Fetch(ctx context.Context, query string) (*DiscoveryResult, error) {
	items, err := v.api.ListPublicLive(ctx)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeUnauthorized {
			return &DiscoveryResult{State: DiscoveryUnauthorized}, nil
		}
		return nil, err
	}

	if len(items) == 0 {
		return &DiscoveryResult{State: DiscoveryNothingLive}, nil
	}

	filtered := Filter(items, query)
	if len(filtered) == 0 {
		return &DiscoveryResult{State: DiscoveryNoMatch}, nil
	}

	return &DiscoveryResult{Items: filtered, State: DiscoveryOK}, nil
}

// Filter keeps summaries whose title or community name contains the query,
// case-insensitively. An empty query keeps everything.
func Filter(items []model.PublicLiveSummary, query string) []model.PublicLiveSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}

	out := make([]model.PublicLiveSummary, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Title), q) ||
			strings.Contains(strings.ToLower(item.CommunityName), q) {
			out = append(out, item)
		}
	}
	return out
}
