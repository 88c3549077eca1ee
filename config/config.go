// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: Consensus constants per height epoch, immutable,
//     must match across all nodes
//   - Node settings: Runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
// These settings can vary between nodes without breaking consensus.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Block validation
	Validation ValidationConfig

	// Logging
	Log LogConfig
}

// ValidationConfig holds operational validation settings.
type ValidationConfig struct {
	// BypassRangeProofVerification skips the cryptographic range proof
	// check during block validation while still requiring the balance
	// equation to close. For trusted or test contexts only; a production
	// node running with this set accepts inflationary blocks.
	BypassRangeProofVerification bool `conf:"validation.bypass_range_proofs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"` // debug, info, warn, error
	JSON  bool   `conf:"log.json"`  // JSON output instead of colored console
	File  string `conf:"log.file"`  // Optional log file path
}

// DefaultDataDir returns the platform-specific default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cinder"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cinder")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Cinder")
	default:
		return filepath.Join(home, ".cinder")
	}
}
