// Package admin exposes the read-side views: audit history, notarized
// threat records, and aggregate statistics.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/sentinel/internal/notary"
	"github.com/mbd888/sentinel/internal/querylog"
)

// ThreatFilter selects a subset of the mirror when listing threat records.
type ThreatFilter string

const (
	FilterAll          ThreatFilter = "all"
	FilterHighSeverity ThreatFilter = "high"     // HIGH and CRITICAL
	FilterLastHour     ThreatFilter = "lasthour" // detected within the past hour
)

// SummaryStats aggregates the threat mirror for dashboards.
type SummaryStats struct {
	TotalThreats      int            `json:"totalThreats"`
	UniqueUsers       int            `json:"uniqueUsers"`
	BySeverity        map[string]int `json:"bySeverity"`
	LastHour          int            `json:"lastHour"`
	LatestDetectedAt  string         `json:"latestDetectedAt,omitempty"`
	AuditedQueries    int            `json:"auditedQueries"`
	TotalQueriesShown int            `json:"totalQueriesShown"`
}

// ChainReader reads aggregate state from the chain. Optional; nil when the
// server runs without chain credentials.
type ChainReader interface {
	ThreatCount(ctx context.Context) (uint64, error)
	Address() string
}

// Service bundles the read-side queries.
type Service struct {
	logs   querylog.Store
	mirror notary.Mirror
	chain  ChainReader // may be nil
	now    func() time.Time
}

// NewService creates the admin read service.
func NewService(logs querylog.Store, mirror notary.Mirror, chain ChainReader) *Service {
	return &Service{logs: logs, mirror: mirror, chain: chain, now: time.Now}
}

// RecentQueries returns the newest fully audited entries, newest first.
// An entry missing either answer never leaves this surface.
func (s *Service) RecentQueries(ctx context.Context, limit int) ([]*querylog.Entry, error) {
	if limit <= 0 {
		limit = querylog.DefaultHistoryLimit
	}
	return s.logs.ListAudited(ctx, limit)
}

// AllQueries returns every entry regardless of audit completeness,
// newest first. Debugging view for half-written rows.
func (s *Service) AllQueries(ctx context.Context, limit int) ([]*querylog.Entry, error) {
	if limit <= 0 {
		limit = querylog.DefaultHistoryLimit
	}
	return s.logs.ListRecent(ctx, limit)
}

// ThreatRecords lists mirror records matching the filter, oldest first. An
// empty mirror yields an empty slice, not an error.
func (s *Service) ThreatRecords(ctx context.Context, filter ThreatFilter) ([]*notary.Record, error) {
	all, err := s.mirror.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading threat mirror: %w", err)
	}

	switch filter {
	case "", FilterAll:
		if all == nil {
			all = []*notary.Record{}
		}
		return all, nil
	case FilterHighSeverity:
		out := []*notary.Record{}
		for _, r := range all {
			if r.Severity == notary.SeverityHigh.String() || r.Severity == notary.SeverityCritical.String() {
				out = append(out, r)
			}
		}
		return out, nil
	case FilterLastHour:
		cutoff := s.now().Add(-time.Hour)
		out := []*notary.Record{}
		for _, r := range all {
			at, err := r.DetectedAt()
			if err != nil {
				continue
			}
			if at.After(cutoff) {
				out = append(out, r)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown threat filter %q", filter)
	}
}

// ThreatRecordsForUser lists mirror records for one user, oldest first.
func (s *Service) ThreatRecordsForUser(ctx context.Context, userID string) ([]*notary.Record, error) {
	recs, err := s.mirror.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading threat mirror: %w", err)
	}
	if recs == nil {
		recs = []*notary.Record{}
	}
	return recs, nil
}

// Summary computes aggregate statistics over the mirror and recent audit
// entries.
func (s *Service) Summary(ctx context.Context) (*SummaryStats, error) {
	all, err := s.mirror.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading threat mirror: %w", err)
	}

	stats := &SummaryStats{
		TotalThreats: len(all),
		BySeverity: map[string]int{
			notary.SeverityLow.String():      0,
			notary.SeverityMedium.String():   0,
			notary.SeverityHigh.String():     0,
			notary.SeverityCritical.String(): 0,
		},
	}

	seen := map[string]struct{}{}
	cutoff := s.now().Add(-time.Hour)
	var latest time.Time
	for _, r := range all {
		seen[r.UserID] = struct{}{}
		stats.BySeverity[r.Severity]++
		if at, err := r.DetectedAt(); err == nil {
			if at.After(cutoff) {
				stats.LastHour++
			}
			if at.After(latest) {
				latest = at
			}
		}
	}
	stats.UniqueUsers = len(seen)
	if !latest.IsZero() {
		stats.LatestDetectedAt = notary.ISOTimestamp(latest)
	}

	entries, err := s.logs.ListRecent(ctx, querylog.DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("reading query log: %w", err)
	}
	stats.TotalQueriesShown = len(entries)
	for _, e := range entries {
		if e.FullyAudited() {
			stats.AuditedQueries++
		}
	}
	return stats, nil
}

// ChainStatus is the live view of the notarization chain.
type ChainStatus struct {
	Connected   bool   `json:"connected"`
	ThreatCount uint64 `json:"threatCount"`
	Account     string `json:"account,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ChainStatusNow queries the chain for its current state. With no chain
// configured the status reports disconnected rather than failing.
func (s *Service) ChainStatusNow(ctx context.Context) *ChainStatus {
	if s.chain == nil {
		return &ChainStatus{Connected: false, Error: "chain not configured"}
	}
	count, err := s.chain.ThreatCount(ctx)
	if err != nil {
		return &ChainStatus{Connected: false, Account: s.chain.Address(), Error: err.Error()}
	}
	return &ChainStatus{Connected: true, ThreatCount: count, Account: s.chain.Address()}
}
