// Package gateway routes inbound prompts through the suspicion-score tiers.
//
// Flow:
//  1. Prompt arrives → get-or-create the caller's suspicion record
//  2. Classify on the live score: Blocked (≥0.95), RateLimited (≥0.80), Allowed
//  3. Allowed → forward to the wrapper service with a bounded timeout
//  4. On wrapper success: append one query-log entry, return the served answer
//
// Blocked and RateLimited callers never reach the wrapper. A failed forward is
// not retried and is not logged — the caller decides whether to resend.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/sentinel/internal/idgen"
	"github.com/mbd888/sentinel/internal/querylog"
	"github.com/mbd888/sentinel/internal/suspicion"
	"github.com/mbd888/sentinel/internal/traces"
)

// Errors
var (
	ErrInvalidRequest      = errors.New("gateway: userId and prompt required")
	ErrAccessDenied        = errors.New("gateway: access denied")
	ErrRateLimited         = errors.New("gateway: rate limited / temporarily blocked")
	ErrUpstreamUnavailable = errors.New("gateway: wrapper service unavailable")
	ErrPersistence         = errors.New("gateway: persistence failure")
)

// Tier is the access level assigned to a caller for a single request.
type Tier string

const (
	TierAllowed     Tier = "allowed"
	TierRateLimited Tier = "rate_limited"
	TierBlocked     Tier = "blocked"
)

// Score thresholds for tier classification.
const (
	BlockThreshold     = 0.95
	RateLimitThreshold = 0.80
)

// DefaultWrapperTimeout bounds a single forward to the wrapper service.
const DefaultWrapperTimeout = 10 * time.Second

// Classify maps a live suspicion score to a tier. Classification is not
// sticky: a later-lowered score un-blocks a previously blocked user. The
// permanent record of having crossed CRITICAL lives in the threat mirror.
func Classify(score float64) Tier {
	switch {
	case score >= BlockThreshold:
		return TierBlocked
	case score >= RateLimitThreshold:
		return TierRateLimited
	default:
		return TierAllowed
	}
}

// WrapperResponse is what the wrapper service returns for an allowed prompt.
type WrapperResponse struct {
	Response       string `json:"response"`
	OriginalAnswer string `json:"originalAnswer,omitempty"`
}

// Wrapper produces the served (noisy) answer for an allowed prompt.
type Wrapper interface {
	GetNoisyResponse(ctx context.Context, userID, prompt string) (*WrapperResponse, error)
}

// EventEmitter publishes gateway events to interested subscribers.
type EventEmitter interface {
	PromptServed(userID, entryID string)
}

// PromptResult is the outcome of a successfully served prompt.
type PromptResult struct {
	Response string  `json:"response"`
	Tier     Tier    `json:"-"`
	Score    float64 `json:"-"`
	EntryID  string  `json:"-"`
}

// Service is the tier router.
type Service struct {
	users   suspicion.Store
	logs    querylog.Store
	wrapper Wrapper
	events  EventEmitter // optional
	logger  *slog.Logger
}

// NewService creates a tier router over the given stores and wrapper client.
func NewService(users suspicion.Store, logs querylog.Store, wrapper Wrapper, logger *slog.Logger) *Service {
	return &Service{
		users:   users,
		logs:    logs,
		wrapper: wrapper,
		logger:  logger,
	}
}

// WithEvents attaches a realtime event emitter.
func (s *Service) WithEvents(events EventEmitter) *Service {
	s.events = events
	return s
}

// HandlePrompt routes one inbound prompt.
//
// Exactly one query-log entry is appended per successful Allowed call; zero
// entries for every other outcome, including wrapper timeout (no phantom
// responses in the audit log).
func (s *Service) HandlePrompt(ctx context.Context, userID, prompt string) (*PromptResult, error) {
	if userID == "" || prompt == "" {
		return nil, ErrInvalidRequest
	}

	ctx, span := traces.StartSpan(ctx, "gateway.handle_prompt", traces.UserID(userID))
	defer span.End()

	user, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	tier := Classify(user.SuspicionScore)
	span.SetAttributes(traces.Tier(string(tier)), traces.Score(user.SuspicionScore))
	promptsTotal.WithLabelValues(string(tier)).Inc()

	switch tier {
	case TierBlocked:
		s.logger.Info("prompt blocked", "user_id", userID, "score", user.SuspicionScore)
		return nil, ErrAccessDenied
	case TierRateLimited:
		s.logger.Info("prompt rate limited", "user_id", userID, "score", user.SuspicionScore)
		return nil, ErrRateLimited
	}

	s.logger.Info("prompt routed to tier 1", "user_id", userID, "score", user.SuspicionScore)

	// Single attempt, no retries. The wrapper client owns the timeout.
	start := time.Now()
	resp, err := s.wrapper.GetNoisyResponse(ctx, userID, prompt)
	wrapperLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		wrapperFailures.Inc()
		s.logger.Error("wrapper call failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	entry := &querylog.Entry{
		ID:                idgen.WithPrefix("qry_"),
		UserID:            userID,
		Timestamp:         time.Now().UTC(),
		Prompt:            prompt,
		OriginalAnswer:    resp.OriginalAnswer,
		NoisyAnswerServed: resp.Response,
		ResponseType:      querylog.ResponseTypeNoisy,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		// The answer was served; losing the audit row is a hard failure for
		// an audit-first system.
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.events != nil {
		s.events.PromptServed(userID, entry.ID)
	}

	return &PromptResult{
		Response: resp.Response,
		Tier:     tier,
		Score:    user.SuspicionScore,
		EntryID:  entry.ID,
	}, nil
}
