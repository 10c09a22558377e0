package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config's file-settable fields with TOML tags; kept as
// a separate struct (rather than tagging Config itself) so Config stays
// free of format-specific struct tags, the same separation the teacher
// draws between its domain structs and one-off TOML-shaped structs in
// build_artifact_detector.go.
type tomlConfig struct {
	Expression      string   `toml:"expression"`
	CaseSensitive   bool     `toml:"case_sensitive"`
	DateFrom        string   `toml:"date_from"`
	DateTo          string   `toml:"date_to"`
	TimeFrom        string   `toml:"time_from"`
	TimeTo          string   `toml:"time_to"`
	SearchRoot      string   `toml:"search_root"`
	IncludePatterns []string `toml:"include"`
	ExcludePatterns []string `toml:"exclude"`
	FollowSymlinks  bool     `toml:"follow_symlinks"`
	MaxDepth        int      `toml:"max_depth"`
	MaxFileSize     int64    `toml:"max_file_size"`
	MaxRecordSize   int64    `toml:"max_record_size"`
	EncodingErrors  string   `toml:"encoding_errors"`
	OutputFile      string   `toml:"output_file"`
	Overwrite       bool     `toml:"overwrite"`
	IncludePath     bool     `toml:"include_path"`
	Highlight       bool     `toml:"highlight"`
	Deterministic   bool     `toml:"deterministic"`
	MaxWorkers      int      `toml:"max_workers"`
	DryRun          bool     `toml:"dry_run"`
}

// LoadTOML attempts to load configuration from a .logfilt.toml file in
// projectRoot. Returns (nil, nil) if the file doesn't exist.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, ".logfilt.toml")

	data, err := os.ReadFile(tomlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read .logfilt.toml: %w", err)
	}

	var tc tomlConfig
	if err := toml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default()
	cfg.Expression = tc.Expression
	cfg.CaseSensitive = tc.CaseSensitive
	cfg.DateFrom = tc.DateFrom
	cfg.DateTo = tc.DateTo
	cfg.TimeFrom = tc.TimeFrom
	cfg.TimeTo = tc.TimeTo
	if tc.SearchRoot != "" {
		cfg.SearchRoot = tc.SearchRoot
	}
	if len(tc.IncludePatterns) > 0 {
		cfg.IncludePatterns = tc.IncludePatterns
	}
	if len(tc.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = tc.ExcludePatterns
	}
	cfg.FollowSymlinks = tc.FollowSymlinks
	cfg.MaxDepth = tc.MaxDepth
	if tc.MaxFileSize > 0 {
		cfg.MaxFileSize = tc.MaxFileSize
	}
	if tc.MaxRecordSize > 0 {
		cfg.MaxRecordSize = tc.MaxRecordSize
	}
	if tc.EncodingErrors != "" {
		cfg.EncodingErrors = tc.EncodingErrors
	}
	cfg.OutputFile = tc.OutputFile
	cfg.Overwrite = tc.Overwrite
	cfg.IncludePath = tc.IncludePath
	cfg.Highlight = tc.Highlight
	cfg.Deterministic = tc.Deterministic
	if tc.MaxWorkers > 0 {
		cfg.MaxWorkers = tc.MaxWorkers
	}
	cfg.DryRun = tc.DryRun

	if !filepath.IsAbs(cfg.SearchRoot) {
		cfg.SearchRoot = filepath.Clean(filepath.Join(projectRoot, cfg.SearchRoot))
	}

	return cfg, nil
}
