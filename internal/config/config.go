// Package config holds logfilt's configuration surface: the Config struct
// every CLI flag and file-based setting populates, an optional KDL/TOML
// file loader, and a Validate step the pipeline runs before it touches the
// file system.
package config

import (
	"os"
	"runtime"
)

// Config is the complete set of knobs spec.md §6 names. CLI flags populate
// this struct directly; LoadKDL/LoadTOML populate it from an optional
// project-local file first, with flags overriding whatever the file set.
type Config struct {
	// Expression and case sensitivity (C1–C3).
	Expression    string
	CaseSensitive bool

	// Date/time window (C7).
	DateFrom string // "YYYY-MM-DD", empty = unbounded
	DateTo   string
	TimeFrom string // "HH:MM:SS", empty = unbounded
	TimeTo   string

	// File discovery (C6).
	SearchRoot      string
	IncludePatterns []string
	ExcludePatterns []string
	FollowSymlinks  bool
	MaxDepth        int // 0 = unbounded
	MaxFileSize     int64

	// Record reconstruction (C4).
	MaxRecordSize  int64
	EncodingErrors string // "replace" (default), "ignore", or "strict"

	// Output (C10, C11).
	OutputFile    string // empty = stdout
	Overwrite     bool
	IncludePath   bool
	Highlight     bool
	Deterministic bool

	// Concurrency (C9).
	MaxWorkers int // clamped to [1,64] by Validate

	// Dry-run mode: scan and match but do not write matched records.
	DryRun        bool
	DryRunDetails bool
}

const (
	DefaultMaxFileSize   int64 = 10 * 1024 * 1024 * 1024 // 10 GiB
	DefaultMaxRecordSize int64 = 16 * 1024 * 1024         // 16 MiB
	minWorkers                 = 1
	maxWorkers                 = 64
)

// Default returns a Config populated with logfilt's built-in defaults, the
// same role the teacher's zero-KDL-file branch of Load plays: a fully
// usable configuration before any file or flag is applied.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		CaseSensitive:   false,
		SearchRoot:      cwd,
		IncludePatterns: []string{"**/*"},
		ExcludePatterns: nil,
		FollowSymlinks:  false,
		MaxDepth:        0,
		MaxFileSize:     DefaultMaxFileSize,
		MaxRecordSize:   DefaultMaxRecordSize,
		EncodingErrors:  "replace",
		MaxWorkers:      runtime.NumCPU(),
	}
}

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, an optional .logfilt.kdl file, an optional .logfilt.toml file
// (only consulted if no KDL file was found), then cliOverrides applied on
// top by the caller (cmd/logfilt does this field-by-field after Load
// returns, the same two-step shape as the teacher's Load+CLI-flags split).
func Load(searchDir string) (*Config, error) {
	cfg := Default()
	if searchDir != "" {
		cfg.SearchRoot = searchDir
	}

	kdlCfg, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	if kdlCfg != nil {
		return kdlCfg, nil
	}

	tomlCfg, err := LoadTOML(searchDir)
	if err != nil {
		return nil, err
	}
	if tomlCfg != nil {
		return tomlCfg, nil
	}

	return cfg, nil
}
