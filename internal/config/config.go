// Package config defines service configuration structures and loading
// hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors are wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory review queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of review workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the case-ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the review store.
	ShardCount int `koanf:"shard_count"`

	// MaxRecentLimit caps GET /cases?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`

	// StrictOffsets rejects candidates from uncalibrated secondary
	// observers instead of applying a zero offset.
	StrictOffsets bool `koanf:"strict_offsets"`

	// ROSCToleranceMS sets the allowed gap between the ROSC and
	// AED-off instants.
	ROSCToleranceMS int `koanf:"rosc_tolerance_ms"`

	// ArchivePath enables the SQLite review archive when non-empty.
	ArchivePath string `koanf:"archive_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		QueueSize:       10_000,
		WorkerCount:     runtime.NumCPU() * 2,
		DedupeSize:      50_000,
		ShardCount:      8,
		MaxRecentLimit:  100,
		StrictOffsets:   false,
		ROSCToleranceMS: 1000,
		ArchivePath:     "",
	}
}
