/*
Package log provides structured logging for AIFS using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
context-specific child loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("manager")                 │          │
	│  │  - WithNamespace("team-a")                  │          │
	│  │  - WithAssetID("blake3:...")                │          │
	│  │  - WithTransactionID("txn-abc123")          │          │
	│  │  - WithSnapshotID("snap-def456")             │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initializing the logger:

	import "github.com/cuemby/aifs/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("asset manager ready")
	log.Debug("probing chunk store layout")
	log.Warn("kms key nearing expiry")
	log.Error("failed to verify snapshot signature")
	log.Fatal("cannot open metadata store") // exits process

Structured logging:

	log.Logger.Info().
		Str("namespace", "team-a").
		Int("asset_count", 3).
		Msg("snapshot created")

Context loggers:

	assetLog := log.WithAssetID(assetID)
	assetLog.Info().Msg("chunk persisted")

	txnLog := log.WithTransactionID(txnID)
	txnLog.Warn().Msg("commit refused: dependency not yet visible")

	snapLog := log.WithSnapshotID(snapshotID)
	snapLog.Error().Err(err).Msg("signature verification failed")

	// Compose context fields
	opLog := log.WithComponent("manager").
		With().Str("namespace", namespace).Logger()
	opLog.Info().Msg("put_asset")

# Integration points

This package integrates with:

  - cmd/aifs-server: initializes the logger and logs startup
  - pkg/api: logs the RPC server's listen address

pkg/manager, pkg/security, and pkg/storage do not log.

# Security

Never log plaintext asset bytes, KMS-wrapped keys, or capability token
signatures. Log asset and transaction identifiers (content hashes, UUIDs)
freely; they carry no secret material.
*/
package log
