// Command notarize records a single threat on chain and in the local mirror.
//
// Usage:
//
//	go run ./cmd/notarize <userId> [severity]
//
// Severity defaults to CRITICAL. Chain settings come from the environment
// (RPC_URL, PRIVATE_KEY, CHAIN_ID, THREAT_CONTRACT).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbd888/sentinel/internal/config"
	"github.com/mbd888/sentinel/internal/logging"
	"github.com/mbd888/sentinel/internal/notary"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: notarize <userId> [severity]")
		fmt.Println("Severities: LOW, MEDIUM, HIGH, CRITICAL (default CRITICAL)")
		os.Exit(1)
	}
	userID := os.Args[1]

	severity := notary.SeverityCritical
	if len(os.Args) > 2 {
		sev, err := notary.ParseSeverity(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		severity = sev
	}

	logger := logging.New("info", "text")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !cfg.NotaryEnabled() {
		logger.Error("notarization not configured (PRIVATE_KEY and THREAT_CONTRACT required)")
		os.Exit(1)
	}

	chain, err := notary.NewChainSubmitter(notary.ChainConfig{
		RPCURL:     cfg.RPCURL,
		PrivateKey: cfg.PrivateKey,
		ChainID:    cfg.ChainID,
		Contract:   cfg.ThreatContract,
	})
	if err != nil {
		logger.Error("failed to create chain submitter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = chain.Close() }()

	mirror := notary.NewFileMirror(cfg.ThreatRecordsPath)
	svc := notary.NewService(chain, mirror, logger).WithDedup(cfg.NotaryDedup)

	// No deadline: the confirmation wait is open-ended and abandoning a
	// broadcast transaction would strand a confirmed tx with no mirror
	// record. Ctrl-C still cancels.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := svc.Notarize(ctx, userID, severity)
	if err != nil {
		logger.Error("notarization failed", "user_id", userID, "error", err)
		os.Exit(1)
	}
	if rec == nil {
		// Dedup skip: the mirror already holds a record for this user.
		logger.Info("threat already notarized, nothing to do", "user_id", userID)
		return
	}

	logger.Info("threat notarized",
		"user_id", rec.UserID,
		"tx_hash", rec.TransactionHash,
		"block", rec.BlockNumber,
		"severity", rec.Severity,
	)
}
