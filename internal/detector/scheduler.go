package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/suspicion"
)

// Scheduler runs analysis sweeps on a fixed ticker.
type Scheduler struct {
	scorer   Scorer
	users    suspicion.Store
	flagger  Flagger // optional
	interval time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewScheduler creates a sweep scheduler. A zero interval falls back to
// DefaultInterval.
func NewScheduler(scorer Scorer, users suspicion.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scorer:   scorer,
		users:    users,
		interval: interval,
		logger:   logger,
	}
}

// WithFlagger attaches the handler for users crossing the critical
// threshold.
func (s *Scheduler) WithFlagger(f Flagger) *Scheduler {
	s.flagger = f
	return s
}

// Start launches the sweep loop. The first sweep happens after one full
// interval, not at startup; the analysis service is usually still booting
// when this process comes up. Runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("detector scheduler started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("detector scheduler stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// sweep runs one analysis pass. Failures are logged and swallowed; the
// ticker must survive anything a sweep throws at it.
func (s *Scheduler) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SchedulerTicksTotal.WithLabelValues("panic").Inc()
			s.logger.Error("analysis sweep panicked", "panic", r)
		}
	}()

	updates, err := s.scorer.RunAnalysis(ctx)
	if err != nil {
		metrics.SchedulerTicksTotal.WithLabelValues("error").Inc()
		s.logger.Error("analysis sweep failed", "error", err)
		return
	}

	applied := 0
	flagged := 0
	for _, u := range updates {
		if u.UserID == "" {
			continue
		}
		if err := s.users.UpdateScore(ctx, u.UserID, u.Score); err != nil {
			s.logger.Error("applying score failed", "user_id", u.UserID, "error", err)
			continue
		}
		applied++
		metrics.ScoresUpdatedTotal.Inc()

		if u.Score >= CriticalThreshold && s.flagger != nil {
			s.logger.Warn("user crossed critical threshold",
				"user_id", u.UserID, "score", u.Score)
			s.flagger.FlagUser(u.UserID, u.Score)
			flagged++
		}
	}

	metrics.SchedulerTicksTotal.WithLabelValues("ok").Inc()
	s.logger.Info("analysis sweep complete",
		"scored", len(updates), "applied", applied, "flagged", flagged)
}
