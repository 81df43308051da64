package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

type sweepRecorder struct {
	mu            sync.Mutex
	endStaleCalls []time.Time
	cancelCalls   []time.Time
	deleteCalls   []time.Time
}

func (r *sweepRecorder) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error) {
	return nil, nil
}

func (r *sweepRecorder) FindLiveByCommunity(ctx context.Context, communityID string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) CreateScheduled(ctx context.Context, p model.ScheduleParams, roomName string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) CreateLive(ctx context.Context, p model.StartNowParams, roomName string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) UpdateScheduled(ctx context.Context, id string, p model.UpdateParams) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) Cancel(ctx context.Context, id string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) GoLive(ctx context.Context, id string, p model.GoLiveParams, fallbackRoom string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) End(ctx context.Context, id string) (*model.LiveSession, error) {
	return nil, nil
}

func (r *sweepRecorder) EndStale(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endStaleCalls = append(r.endStaleCalls, olderThan)
	return 1, nil
}

func (r *sweepRecorder) CancelLapsedScheduled(ctx context.Context, startedBefore time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelCalls = append(r.cancelCalls, startedBefore)
	return 0, nil
}

func (r *sweepRecorder) DeleteOldTerminal(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls = append(r.deleteCalls, before)
	return 2, nil
}

func TestReaperSweep(t *testing.T) {
	repo := &sweepRecorder{}
	job := NewReaperJob(repo, 12*time.Hour, time.Minute)

	before := time.Now()
	job.sweep()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.endStaleCalls, 1)
	assert.Len(t, repo.cancelCalls, 1)
	assert.Len(t, repo.deleteCalls, 1)

	// Live sessions older than the maximum duration are the ones reaped.
	cutoff := repo.endStaleCalls[0]
	assert.WithinDuration(t, before.Add(-12*time.Hour), cutoff, time.Minute)
}

func TestReaperSweepsOnStart(t *testing.T) {
	repo := &sweepRecorder{}
	job := NewReaperJob(repo, 12*time.Hour, time.Hour)

	job.Start()
	defer job.Stop()

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.endStaleCalls) == 1
	}, time.Second, 5*time.Millisecond)
}
