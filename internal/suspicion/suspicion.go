// Package suspicion tracks per-user suspicion records for the gateway.
//
// Every caller has exactly one UserRecord, created lazily on first contact
// with a score of 0.0. Scores live in [0, 1] and are written only by the
// detector's analysis results; the gateway reads them to pick an access tier.
// Records are never deleted.
package suspicion

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a user.
var ErrNotFound = errors.New("suspicion: user not found")

// UserRecord is the persisted state for a single caller.
type UserRecord struct {
	UserID          string    `json:"userId"`
	SuspicionScore  float64   `json:"suspicionScore"`
	IsHumanVerified bool      `json:"isHumanVerified"`
	LastSeen        time.Time `json:"lastSeen"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Store persists user records.
//
// GetOrCreate must be atomic under concurrent first access for the same
// userID: two racing first requests yield one record, not two.
type Store interface {
	// GetOrCreate returns the record for userID, creating it with score 0.0
	// if absent, and bumps LastSeen.
	GetOrCreate(ctx context.Context, userID string) (*UserRecord, error)

	// Get returns the record for userID or ErrNotFound.
	Get(ctx context.Context, userID string) (*UserRecord, error)

	// UpdateScore sets the suspicion score for userID. The score is clamped
	// to [0, 1]. Creates the record if it does not exist yet (the detector
	// may know about users before they hit this gateway instance).
	UpdateScore(ctx context.Context, userID string, score float64) error

	// List returns all user records.
	List(ctx context.Context) ([]*UserRecord, error)
}

// clampScore bounds a score to the valid [0, 1] range.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
