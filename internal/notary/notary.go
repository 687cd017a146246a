// Package notary records detected threats on chain and mirrors them to a
// local ledger file.
//
// A notarization is chain-first: the transaction must be sent and confirmed
// before the mirror record is written. A record in the mirror therefore
// always corresponds to a confirmed transaction. The reverse does not hold;
// a crash between confirmation and the mirror write loses the local copy,
// and re-notarization produces a second record for the same user. That is
// accepted: the mirror is append-only evidence, duplicates are harmless.
package notary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mbd888/sentinel/internal/metrics"
	"github.com/mbd888/sentinel/internal/traces"
)

var (
	ErrSubmitFailed  = errors.New("notary: transaction submission failed")
	ErrConfirmFailed = errors.New("notary: transaction confirmation failed")
	ErrMirrorFailed  = errors.New("notary: mirror write failed")
	ErrBadSeverity   = errors.New("notary: unknown severity")
)

// DefaultOrigin is recorded as the threat origin when no source address is
// known. Callers are identified by user ID, not network address.
const DefaultOrigin = "0.0.0.0"

// Severity grades a detected threat. The numeric value is what goes on
// chain.
type Severity uint8

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("SEVERITY(%d)", uint8(s))
}

// ChainCode is the uint8 sent to the contract.
func (s Severity) ChainCode() uint8 { return uint8(s) }

// ParseSeverity converts a name like "CRITICAL" to a Severity.
func ParseSeverity(name string) (Severity, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range severityNames {
		if n == upper {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadSeverity, name)
}

// Record is one mirrored threat, as stored in the local ledger file.
type Record struct {
	UserID          string `json:"userId"`
	ThreatHash      string `json:"threatHash"` // 0x-prefixed sha256 hex
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	Timestamp       string `json:"timestamp"` // ISO 8601 UTC
	Severity        string `json:"severity"`
}

// DetectedAt parses the record timestamp.
func (r *Record) DetectedAt() (time.Time, error) {
	return time.Parse(isoFormat, r.Timestamp)
}

const isoFormat = "2006-01-02T15:04:05.000Z"

// ISOTimestamp formats a time the way the mirror stores it.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(isoFormat)
}

// digestPayload is the exact structure hashed into the threat fingerprint.
// Field order matters: the digest is computed over the serialized bytes.
type digestPayload struct {
	UserID     string `json:"userId"`
	Timestamp  string `json:"timestamp"`
	DetectedAt int64  `json:"detected_at"`
}

// Digest computes the sha256 threat fingerprint for a user detected at the
// given instant. Returns lowercase hex without the 0x prefix.
func Digest(userID string, at time.Time) string {
	raw, _ := json.Marshal(digestPayload{
		UserID:     userID,
		Timestamp:  ISOTimestamp(at),
		DetectedAt: at.Unix(),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Confirmation is the on-chain outcome of a submitted transaction.
type Confirmation struct {
	BlockNumber uint64
	GasUsed     uint64
}

// Submitter sends threat transactions to the chain.
type Submitter interface {
	// Submit packs and sends a logThreat transaction. Returns the tx hash.
	Submit(ctx context.Context, threatID, threatHash, origin string, severity Severity) (string, error)

	// WaitForConfirmation polls for the receipt until the transaction is
	// mined or ctx is cancelled. There is no internal deadline; the local
	// chain may be slow and a notarization must not be abandoned midway.
	WaitForConfirmation(ctx context.Context, txHash string) (*Confirmation, error)
}

// Mirror is the local append-only store of notarized threats.
type Mirror interface {
	Append(ctx context.Context, rec *Record) error
	All(ctx context.Context) ([]*Record, error)
	ByUser(ctx context.Context, userID string) ([]*Record, error)
	HasRecordFor(ctx context.Context, userID string) (bool, error)
}

// EventEmitter publishes notarization events.
type EventEmitter interface {
	ThreatNotarized(userID, txHash, severity string)
}

// Service performs the full notarization flow.
type Service struct {
	chain  Submitter
	mirror Mirror
	events EventEmitter // optional
	logger *slog.Logger

	// dedup skips notarization when the mirror already holds a record for
	// the user. Off by default: the chain contract tolerates duplicates and
	// the mirror is evidence, not state.
	dedup bool
}

// NewService creates a notary over the given chain submitter and mirror.
func NewService(chain Submitter, mirror Mirror, logger *slog.Logger) *Service {
	return &Service{chain: chain, mirror: mirror, logger: logger}
}

// WithDedup makes repeated notarizations of the same user no-ops.
func (s *Service) WithDedup(on bool) *Service {
	s.dedup = on
	return s
}

// WithEvents attaches a realtime event emitter.
func (s *Service) WithEvents(events EventEmitter) *Service {
	s.events = events
	return s
}

// Notarize fingerprints the threat, records it on chain, waits for the
// transaction to confirm, and appends the mirror record. Returns the mirror
// record on success. A failure at any step leaves the mirror untouched.
func (s *Service) Notarize(ctx context.Context, userID string, severity Severity) (*Record, error) {
	ctx, span := traces.StartSpan(ctx, "notary.notarize", traces.UserID(userID))
	defer span.End()

	if s.dedup {
		seen, err := s.mirror.HasRecordFor(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMirrorFailed, err)
		}
		if seen {
			s.logger.Info("threat already notarized, skipping", "user_id", userID)
			return nil, nil
		}
	}

	start := time.Now()
	at := time.Now().UTC()
	hash := "0x" + Digest(userID, at)
	span.SetAttributes(traces.ThreatHash(hash))

	s.logger.Info("notarizing threat",
		"user_id", userID,
		"severity", severity.String(),
		"threat_hash", hash,
	)

	txHash, err := s.chain.Submit(ctx, userID, hash, DefaultOrigin, severity)
	if err != nil {
		metrics.NotarizationsTotal.WithLabelValues("submit_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	span.SetAttributes(traces.TxHash(txHash))

	conf, err := s.chain.WaitForConfirmation(ctx, txHash)
	if err != nil {
		metrics.NotarizationsTotal.WithLabelValues("confirm_error").Inc()
		return nil, fmt.Errorf("%w: tx %s: %v", ErrConfirmFailed, txHash, err)
	}

	rec := &Record{
		UserID:          userID,
		ThreatHash:      hash,
		BlockNumber:     conf.BlockNumber,
		TransactionHash: txHash,
		Timestamp:       ISOTimestamp(at),
		Severity:        severity.String(),
	}
	if err := s.mirror.Append(ctx, rec); err != nil {
		metrics.NotarizationsTotal.WithLabelValues("mirror_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMirrorFailed, err)
	}

	metrics.NotarizationsTotal.WithLabelValues("ok").Inc()
	metrics.NotarizationDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("threat notarized",
		"user_id", userID,
		"tx_hash", txHash,
		"block", conf.BlockNumber,
		"gas_used", conf.GasUsed,
	)

	if s.events != nil {
		s.events.ThreatNotarized(userID, txHash, severity.String())
	}
	return rec, nil
}
