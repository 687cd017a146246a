package notary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	submitErr  error
	confirmErr error
	submits    int
	lastHash   string
	lastSev    Severity
}

func (s *stubSubmitter) Submit(_ context.Context, threatID, threatHash, origin string, severity Severity) (string, error) {
	s.submits++
	s.lastHash = threatHash
	s.lastSev = severity
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return fmt.Sprintf("0xtx%04d", s.submits), nil
}

func (s *stubSubmitter) WaitForConfirmation(_ context.Context, txHash string) (*Confirmation, error) {
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &Confirmation{BlockNumber: 42, GasUsed: 21000}, nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, "CRITICAL", SeverityCritical.String())
	assert.Equal(t, uint8(3), SeverityCritical.ChainCode())
	assert.Equal(t, uint8(0), SeverityLow.ChainCode())

	s, err := ParseSeverity("high")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, s)

	_, err = ParseSeverity("catastrophic")
	assert.ErrorIs(t, err, ErrBadSeverity)
}

func TestDigestMatchesPayload(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	// The digest must be sha256 over exactly this serialization.
	raw := fmt.Sprintf(`{"userId":"eve","timestamp":"%s","detected_at":%d}`,
		ISOTimestamp(at), at.Unix())
	sum := sha256.Sum256([]byte(raw))

	assert.Equal(t, hex.EncodeToString(sum[:]), Digest("eve", at))
}

func TestISOTimestamp(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 60_000_000, time.UTC)
	assert.Equal(t, "2026-01-02T03:04:05.060Z", ISOTimestamp(at))
}

func TestNotarizeSuccess(t *testing.T) {
	chain := &stubSubmitter{}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))

	rec, err := svc.Notarize(context.Background(), "mallory", SeverityCritical)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "mallory", rec.UserID)
	assert.Equal(t, "CRITICAL", rec.Severity)
	assert.Equal(t, uint64(42), rec.BlockNumber)
	assert.Equal(t, "0xtx0001", rec.TransactionHash)
	assert.Equal(t, rec.ThreatHash, chain.lastHash)
	assert.Equal(t, SeverityCritical, chain.lastSev)

	all, err := mirror.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, rec.ThreatHash, all[0].ThreatHash)

	_, err = all[0].DetectedAt()
	assert.NoError(t, err, "mirror timestamp must round-trip")
}

func TestNotarizeSubmitFailureLeavesMirrorUntouched(t *testing.T) {
	chain := &stubSubmitter{submitErr: assert.AnError}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))

	_, err := svc.Notarize(context.Background(), "mallory", SeverityCritical)
	assert.ErrorIs(t, err, ErrSubmitFailed)

	all, _ := mirror.All(context.Background())
	assert.Empty(t, all)
}

func TestNotarizeConfirmFailureLeavesMirrorUntouched(t *testing.T) {
	chain := &stubSubmitter{confirmErr: assert.AnError}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))

	_, err := svc.Notarize(context.Background(), "mallory", SeverityCritical)
	assert.ErrorIs(t, err, ErrConfirmFailed)

	all, _ := mirror.All(context.Background())
	assert.Empty(t, all)
}

func TestNotarizeDuplicatesByDefault(t *testing.T) {
	chain := &stubSubmitter{}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))

	for i := 0; i < 3; i++ {
		_, err := svc.Notarize(context.Background(), "mallory", SeverityCritical)
		require.NoError(t, err)
	}

	all, _ := mirror.All(context.Background())
	assert.Len(t, all, 3, "without dedup every notarization appends")
	assert.Equal(t, 3, chain.submits)
}

func TestNotarizeDedup(t *testing.T) {
	chain := &stubSubmitter{}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t)).WithDedup(true)

	rec, err := svc.Notarize(context.Background(), "mallory", SeverityCritical)
	require.NoError(t, err)
	require.NotNil(t, rec)

	rec, err = svc.Notarize(context.Background(), "mallory", SeverityCritical)
	require.NoError(t, err)
	assert.Nil(t, rec, "second notarization is a no-op")

	all, _ := mirror.All(context.Background())
	assert.Len(t, all, 1)
	assert.Equal(t, 1, chain.submits)
}

func TestWorkerSerializes(t *testing.T) {
	chain := &stubSubmitter{}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))
	w := NewWorker(svc, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		assert.True(t, w.Enqueue(fmt.Sprintf("user-%d", i), SeverityCritical))
	}

	require.Eventually(t, func() bool {
		all, _ := mirror.All(context.Background())
		return len(all) == 5
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()

	all, _ := mirror.All(context.Background())
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("user-%d", i), rec.UserID, "submission order preserved")
	}
}

func TestWorkerQueueFull(t *testing.T) {
	chain := &stubSubmitter{}
	mirror := NewMemoryMirror()
	svc := NewService(chain, mirror, testLogger(t))
	w := NewWorker(svc, testLogger(t))
	// Worker not started: the queue fills.

	for i := 0; i < DefaultQueueSize; i++ {
		require.True(t, w.Enqueue("u", SeverityHigh))
	}
	assert.False(t, w.Enqueue("overflow", SeverityHigh))
}
