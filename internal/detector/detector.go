// Package detector drives the periodic behavioral analysis sweep.
//
// Every interval the scheduler asks the analysis service to score recent
// activity, writes the returned scores into the suspicion store, and hands
// users that crossed the critical threshold to the notary. The loop never
// stops on failure: a dead analysis service, a database error, or a panic
// in a sweep is logged and the next tick proceeds as if nothing happened.
package detector

import (
	"context"
	"time"
)

// CriticalThreshold is the score at or above which a user is handed to the
// notary.
const CriticalThreshold = 0.95

// DefaultInterval between analysis sweeps.
const DefaultInterval = 60 * time.Second

// ScoreUpdate is one user's new suspicion score from an analysis run.
type ScoreUpdate struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"suspicionScore"`
}

// Scorer runs one analysis pass and returns the scores to apply.
type Scorer interface {
	RunAnalysis(ctx context.Context) ([]ScoreUpdate, error)
}

// Flagger receives users whose score crossed the critical threshold.
type Flagger interface {
	FlagUser(userID string, score float64)
}

// FlaggerFunc adapts a function to the Flagger interface.
type FlaggerFunc func(userID string, score float64)

func (f FlaggerFunc) FlagUser(userID string, score float64) { f(userID, score) }
