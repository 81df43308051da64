package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NgouanKoffi/fullmargin-live/internal/config"
	"github.com/NgouanKoffi/fullmargin-live/internal/repository"
)

// ReaperJob keeps the session registry honest over time: live sessions
// whose owner vanished get force-ended after the max duration, scheduled
// sessions that never went live get cancelled, and old terminal records
// are purged.
type ReaperJob struct {
	liveRepo    repository.LiveRepository
	maxLive     time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewReaperJob(liveRepo repository.LiveRepository, maxLive, interval time.Duration) *ReaperJob {
	return &ReaperJob{
		liveRepo: liveRepo,
		maxLive:  maxLive,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *ReaperJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reaper job started")
}

func (j *ReaperJob) Stop() {
	close(j.done)
	log.Info().Msg("reaper job stopped")
}

func (j *ReaperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *ReaperJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	j.runSweep(ctx, "stale live sessions", func(ctx context.Context) (int64, error) {
		return j.liveRepo.EndStale(ctx, now.Add(-j.maxLive))
	})
	j.runSweep(ctx, "lapsed scheduled sessions", func(ctx context.Context) (int64, error) {
		return j.liveRepo.CancelLapsedScheduled(ctx, now.Add(-config.ScheduledGracePeriod))
	})
	j.runSweep(ctx, "old terminal records", func(ctx context.Context) (int64, error) {
		return j.liveRepo.DeleteOldTerminal(ctx, now.Add(-config.TerminalRetention))
	})
}

func (j *ReaperJob) runSweep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
