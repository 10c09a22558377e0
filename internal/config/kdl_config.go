package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .logfilt.kdl file in
// projectRoot. Returns (nil, nil) if the file doesn't exist — absence is
// not an error, the caller falls back to defaults or TOML.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".logfilt.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .logfilt.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.SearchRoot == "" {
		cfg.SearchRoot = projectRoot
	} else if !filepath.IsAbs(cfg.SearchRoot) {
		cfg.SearchRoot = filepath.Clean(filepath.Join(projectRoot, cfg.SearchRoot))
	}

	return cfg, nil
}

// parseKDL decodes a .logfilt.kdl document's top-level nodes into a Config,
// starting from Default() so any field the file doesn't mention keeps its
// built-in value.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "expression":
			if s, ok := firstStringArg(n); ok {
				cfg.Expression = s
			}
		case "case_sensitive":
			if b, ok := firstBoolArg(n); ok {
				cfg.CaseSensitive = b
			}
		case "search_root":
			if s, ok := firstStringArg(n); ok {
				cfg.SearchRoot = s
			}
		case "include":
			if args := collectStringArgs(n); len(args) > 0 {
				cfg.IncludePatterns = args
			}
		case "exclude":
			if args := collectStringArgs(n); len(args) > 0 {
				cfg.ExcludePatterns = args
			}
		case "follow_symlinks":
			if b, ok := firstBoolArg(n); ok {
				cfg.FollowSymlinks = b
			}
		case "max_depth":
			if i, ok := firstIntArg(n); ok {
				cfg.MaxDepth = i
			}
		case "max_file_size":
			if i, ok := firstInt64Arg(n); ok {
				cfg.MaxFileSize = i
			}
		case "max_record_size":
			if i, ok := firstInt64Arg(n); ok {
				cfg.MaxRecordSize = i
			}
		case "encoding_errors":
			if s, ok := firstStringArg(n); ok {
				cfg.EncodingErrors = s
			}
		case "date_from":
			if s, ok := firstStringArg(n); ok {
				cfg.DateFrom = s
			}
		case "date_to":
			if s, ok := firstStringArg(n); ok {
				cfg.DateTo = s
			}
		case "time_from":
			if s, ok := firstStringArg(n); ok {
				cfg.TimeFrom = s
			}
		case "time_to":
			if s, ok := firstStringArg(n); ok {
				cfg.TimeTo = s
			}
		case "output_file":
			if s, ok := firstStringArg(n); ok {
				cfg.OutputFile = s
			}
		case "overwrite":
			if b, ok := firstBoolArg(n); ok {
				cfg.Overwrite = b
			}
		case "include_path":
			if b, ok := firstBoolArg(n); ok {
				cfg.IncludePath = b
			}
		case "highlight":
			if b, ok := firstBoolArg(n); ok {
				cfg.Highlight = b
			}
		case "deterministic":
			if b, ok := firstBoolArg(n); ok {
				cfg.Deterministic = b
			}
		case "max_workers":
			if i, ok := firstIntArg(n); ok {
				cfg.MaxWorkers = i
			}
		case "dry_run":
			if b, ok := firstBoolArg(n); ok {
				cfg.DryRun = b
			}
		}
	}

	return cfg, nil
}

// nodeName returns n's node name, or "" for a nil node — mirrors the
// nil-guard every KDL-document helper here needs, since kdl-go's document
// types are plain structs with no nil-receiver methods.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstInt64Arg(n *document.Node) (int64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs gathers string values either from a node's inline
// arguments (`include "*.log" "*.txt"`) or from its block-form children
// (`include { "*.log" ; "*.txt" }`), matching both KDL styles the teacher's
// config accepted.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
