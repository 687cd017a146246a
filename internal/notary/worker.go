package notary

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultQueueSize bounds the worker's pending notarization queue.
const DefaultQueueSize = 64

type job struct {
	userID   string
	severity Severity
}

// Worker serializes notarizations through a single goroutine. The chain
// account has one nonce sequence, so concurrent submissions would race;
// queueing them keeps submission order deterministic.
type Worker struct {
	svc    *Service
	jobs   chan job
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorker creates a worker over the given notary service.
func NewWorker(svc *Service, logger *slog.Logger) *Worker {
	return &Worker{
		svc:    svc,
		jobs:   make(chan job, DefaultQueueSize),
		logger: logger,
	}
}

// Enqueue schedules a notarization. Non-blocking: returns false if the
// queue is full, in which case the detector's next sweep re-flags the user.
func (w *Worker) Enqueue(userID string, severity Severity) bool {
	select {
	case w.jobs <- job{userID: userID, severity: severity}:
		return true
	default:
		w.logger.Warn("notary queue full, dropping", "user_id", userID)
		return false
	}
}

// Start launches the worker goroutine. It runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-w.jobs:
				if _, err := w.svc.Notarize(ctx, j.userID, j.severity); err != nil {
					// Logged and dropped. The detector re-flags the user on
					// its next sweep if the threat persists.
					w.logger.Error("notarization failed",
						"user_id", j.userID,
						"severity", j.severity.String(),
						"error", err,
					)
				}
			}
		}
	}()
}

// Wait blocks until the worker goroutine has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}
