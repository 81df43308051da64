package liveclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

const defaultPollInterval = 15 * time.Second

// directoryAPI is the slice of Client the store needs.
type directoryAPI interface {
	ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error)
}

// DirectoryStore holds the sessions known for one community scope,
// refreshed by polling. Command responses and poll results both flow
// through Reconcile, which merges by record identity and lifecycle
// progress — never by arrival order — so a stale poll can never roll a
// just-confirmed transition back.
type DirectoryStore struct {
	api         directoryAPI
	communityID string
	interval    time.Duration

	mu      sync.RWMutex
	records map[string]model.LiveSession

	cancel context.CancelFunc
	done   chan struct{}
}

func NewDirectoryStore(api directoryAPI, communityID string, interval time.Duration) *DirectoryStore {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &DirectoryStore{
		api:         api,
		communityID: communityID,
		interval:    interval,
		records:     make(map[string]model.LiveSession),
	}
}

// Start begins the polling loop. Failed polls back off exponentially and
// recover on the next success; results arriving after Close are discarded.
func (s *DirectoryStore) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.poll(ctx)
}

// Close stops polling. It does not wait for an in-flight fetch; the loop
// drops any late result because its context is already cancelled.
func (s *DirectoryStore) Close() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *DirectoryStore) poll(ctx context.Context) {
	defer close(s.done)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = time.Second
	retry.MaxInterval = s.interval

	s.refresh(ctx, retry)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, retry)
		}
	}
}

func (s *DirectoryStore) refresh(ctx context.Context, retry *backoff.ExponentialBackOff) {
	for {
		items, err := s.api.ListByCommunity(ctx, s.communityID)
		if err == nil {
			retry.Reset()
			if ctx.Err() != nil {
				return
			}
			s.Reconcile(items)
			return
		}

		if ctx.Err() != nil {
			return
		}

		wait := retry.NextBackOff()
		log.Warn().Err(err).
			Str("communityId", s.communityID).
			Dur("retryIn", wait).
			Msg("directory poll failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Reconcile merges server records into the store. A record replaces the
// held one only when its status is further along the lifecycle graph, or
// equally far but fresher by updatedAt/endedAt. Terminal records never
// regress.
func (s *DirectoryStore) Reconcile(incoming []model.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range incoming {
		s.mergeLocked(rec)
	}
}

// Apply feeds a single authoritative command response into the store.
func (s *DirectoryStore) Apply(live *model.LiveSession) {
	if live == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeLocked(*live)
}

func (s *DirectoryStore) mergeLocked(rec model.LiveSession) {
	held, ok := s.records[rec.ID]
	if !ok {
		s.records[rec.ID] = rec
		return
	}

	heldRank := model.StatusRank(held.Status)
	recRank := model.StatusRank(rec.Status)

	switch {
	case recRank > heldRank:
		s.records[rec.ID] = rec
	case recRank == heldRank && !rec.UpdatedAt.Before(held.UpdatedAt):
		s.records[rec.ID] = rec
	}
}

// Get returns the held record for id, if any.
func (s *DirectoryStore) Get(id string) (model.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Snapshot returns all held records, live first, then scheduled by start
// time, then terminal.
func (s *DirectoryStore) Snapshot() []model.LiveSession {
	s.mu.RLock()
	out := make([]model.LiveSession, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ri, rj := model.StatusRank(out[i].Status), model.StatusRank(out[j].Status)
		if ri != rj {
			// live (1) before scheduled (0) before terminal (2)
			return displayOrder(ri) < displayOrder(rj)
		}
		if out[i].StartsAt != nil && out[j].StartsAt != nil && !out[i].StartsAt.Equal(*out[j].StartsAt) {
			return out[i].StartsAt.Before(*out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CurrentLive returns the community's live session, if one is held.
func (s *DirectoryStore) CurrentLive() (model.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Status == model.LiveStatusLive {
			return rec, true
		}
	}
	return model.LiveSession{}, false
}

func displayOrder(rank int) int {
	switch rank {
	case 1:
		return 0
	case 0:
		return 1
	default:
		return 2
	}
}
