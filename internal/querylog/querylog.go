// Package querylog is the append-only audit log of served prompts.
//
// Every successful tier-1 round trip produces exactly one Entry holding both
// the original answer and the noisy answer that was actually served. Entries
// are immutable: there is no update or delete path anywhere in this package.
package querylog

import (
	"context"
	"time"
)

// ResponseTypeNoisy marks an entry whose served answer went through the
// wrapper. Currently the only response type tier-1 traffic produces.
const ResponseTypeNoisy = "NOISY"

// DefaultHistoryLimit caps the system-history listing.
const DefaultHistoryLimit = 500

// Entry is one prompt/answer audit record.
type Entry struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Timestamp         time.Time `json:"timestamp"`
	Prompt            string    `json:"prompt"`
	OriginalAnswer    string    `json:"originalAnswer,omitempty"`
	NoisyAnswerServed string    `json:"noisyAnswerServed,omitempty"`
	ResponseType      string    `json:"responseType"`
}

// FullyAudited reports whether both answer fields are present.
func (e *Entry) FullyAudited() bool {
	return e.OriginalAnswer != "" && e.NoisyAnswerServed != ""
}

// Store persists query log entries.
type Store interface {
	// Append writes an immutable entry.
	Append(ctx context.Context, entry *Entry) error

	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)

	// ListAudited returns up to limit fully-audited entries (both answer
	// fields populated), newest first.
	ListAudited(ctx context.Context, limit int) ([]*Entry, error)

	// CountByUserSince counts entries for one user since the given time.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}
