package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/sentinel/internal/notary"
	"github.com/mbd888/sentinel/internal/querylog"
)

func seedMirror(t *testing.T, m notary.Mirror, userID, severity string, at time.Time) {
	t.Helper()
	require.NoError(t, m.Append(context.Background(), &notary.Record{
		UserID:          userID,
		ThreatHash:      "0x" + notary.Digest(userID, at),
		BlockNumber:     1,
		TransactionHash: "0xtx",
		Timestamp:       notary.ISOTimestamp(at),
		Severity:        severity,
	}))
}

func newTestService(t *testing.T) (*Service, *notary.MemoryMirror, querylog.Store) {
	t.Helper()
	mirror := notary.NewMemoryMirror()
	logs := querylog.NewMemoryStore()
	return NewService(logs, mirror, nil), mirror, logs
}

func TestThreatRecordsEmptyMirror(t *testing.T) {
	svc, _, _ := newTestService(t)

	recs, err := svc.ThreatRecords(context.Background(), FilterAll)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestThreatRecordsFilters(t *testing.T) {
	svc, mirror, _ := newTestService(t)
	now := time.Now().UTC()

	seedMirror(t, mirror, "old-low", "LOW", now.Add(-2*time.Hour))
	seedMirror(t, mirror, "old-crit", "CRITICAL", now.Add(-90*time.Minute))
	seedMirror(t, mirror, "fresh-high", "HIGH", now.Add(-10*time.Minute))
	seedMirror(t, mirror, "fresh-med", "MEDIUM", now.Add(-5*time.Minute))

	all, err := svc.ThreatRecords(context.Background(), FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	high, err := svc.ThreatRecords(context.Background(), FilterHighSeverity)
	require.NoError(t, err)
	require.Len(t, high, 2)
	assert.Equal(t, "old-crit", high[0].UserID)
	assert.Equal(t, "fresh-high", high[1].UserID)

	recent, err := svc.ThreatRecords(context.Background(), FilterLastHour)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "fresh-high", recent[0].UserID)

	_, err = svc.ThreatRecords(context.Background(), ThreatFilter("bogus"))
	assert.Error(t, err)
}

func TestThreatRecordsForUser(t *testing.T) {
	svc, mirror, _ := newTestService(t)
	now := time.Now().UTC()

	seedMirror(t, mirror, "alice", "CRITICAL", now)
	seedMirror(t, mirror, "bob", "HIGH", now)
	seedMirror(t, mirror, "alice", "CRITICAL", now)

	recs, err := svc.ThreatRecordsForUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = svc.ThreatRecordsForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestSummary(t *testing.T) {
	svc, mirror, logs := newTestService(t)
	now := time.Now().UTC()

	seedMirror(t, mirror, "alice", "CRITICAL", now.Add(-10*time.Minute))
	seedMirror(t, mirror, "alice", "HIGH", now.Add(-3*time.Hour))
	seedMirror(t, mirror, "bob", "CRITICAL", now.Add(-20*time.Minute))

	require.NoError(t, logs.Append(context.Background(), &querylog.Entry{
		ID: "q1", UserID: "alice", Timestamp: now,
		Prompt: "p", OriginalAnswer: "a", NoisyAnswerServed: "n",
		ResponseType: querylog.ResponseTypeNoisy,
	}))
	require.NoError(t, logs.Append(context.Background(), &querylog.Entry{
		ID: "q2", UserID: "bob", Timestamp: now,
		Prompt: "p", NoisyAnswerServed: "n",
		ResponseType: querylog.ResponseTypeNoisy,
	}))

	stats, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalThreats)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 2, stats.LastHour)
	assert.Equal(t, 2, stats.BySeverity["CRITICAL"])
	assert.Equal(t, 1, stats.BySeverity["HIGH"])
	assert.Equal(t, 0, stats.BySeverity["MEDIUM"])
	assert.Equal(t, 0, stats.BySeverity["LOW"])
	assert.NotEmpty(t, stats.LatestDetectedAt)
	assert.Equal(t, 2, stats.TotalQueriesShown)
	assert.Equal(t, 1, stats.AuditedQueries)
}

func TestSummaryEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	stats, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalThreats)
	assert.Len(t, stats.BySeverity, 4, "all severities always present")
}

type stubChain struct {
	count uint64
	err   error
}

func (s *stubChain) ThreatCount(context.Context) (uint64, error) { return s.count, s.err }
func (s *stubChain) Address() string                             { return "0xACC0" }

func TestChainStatus(t *testing.T) {
	svc := NewService(querylog.NewMemoryStore(), notary.NewMemoryMirror(), &stubChain{count: 12})
	st := svc.ChainStatusNow(context.Background())
	assert.True(t, st.Connected)
	assert.Equal(t, uint64(12), st.ThreatCount)
	assert.Equal(t, "0xACC0", st.Account)

	svc = NewService(querylog.NewMemoryStore(), notary.NewMemoryMirror(), &stubChain{err: assert.AnError})
	st = svc.ChainStatusNow(context.Background())
	assert.False(t, st.Connected)
	assert.NotEmpty(t, st.Error)

	svc = NewService(querylog.NewMemoryStore(), notary.NewMemoryMirror(), nil)
	st = svc.ChainStatusNow(context.Background())
	assert.False(t, st.Connected)
}
