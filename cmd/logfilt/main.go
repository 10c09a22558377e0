package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/logfilt/internal/config"
	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/logging"
	"github.com/standardbeagle/logfilt/internal/pipeline"
	"github.com/standardbeagle/logfilt/internal/version"
)

// Exit codes spec.md §6 assigns to the pipeline's possible terminal states.
const (
	exitSuccess     = 0
	exitFatal       = 1
	exitParseError  = 2
	exitConfigError = 3
	exitIOError     = 4
	exitCancelled   = 130
)

func main() {
	app := &cli.App{
		Name:                   "logfilt",
		Usage:                  "Filter multi-line log records by a boolean search expression",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Directory to search for .logfilt.kdl/.logfilt.toml"},
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "Search root directory (overrides config)"},
			&cli.BoolFlag{Name: "case-sensitive", Usage: "Case-sensitive term matching"},
			&cli.StringSliceFlag{Name: "include", Usage: "Include glob pattern (repeatable)"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Exclude glob pattern (repeatable)"},
			&cli.BoolFlag{Name: "follow-symlinks", Usage: "Follow symlinked directories"},
			&cli.IntFlag{Name: "max-depth", Usage: "Maximum directory recursion depth (0 = unbounded)"},
			&cli.Int64Flag{Name: "max-file-size", Usage: "Skip files larger than this many bytes (0 = use default)"},
			&cli.Int64Flag{Name: "max-record-size", Usage: "Truncate records larger than this many bytes (0 = use default)"},
			&cli.StringFlag{Name: "date-from", Usage: "Only records on/after this date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "date-to", Usage: "Only records on/before this date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "time-from", Usage: "Only records at/after this time-of-day (HH:MM:SS)"},
			&cli.StringFlag{Name: "time-to", Usage: "Only records at/before this time-of-day (HH:MM:SS)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (default: stdout)"},
			&cli.BoolFlag{Name: "overwrite", Usage: "Overwrite the output file if it already exists"},
			&cli.BoolFlag{Name: "include-path", Usage: "Prefix each matched record with its source path and line range"},
			&cli.BoolFlag{Name: "highlight", Usage: "Wrap matched terms in the output"},
			&cli.BoolFlag{Name: "deterministic", Usage: "Guarantee byte-identical output ordering across runs"},
			&cli.IntFlag{Name: "workers", Usage: "Worker pool size (default: logical CPU count, clamped to [1,64])"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Scan and match but do not write matched records"},
			&cli.BoolFlag{Name: "dry-run-details", Usage: "Dry run; per-file size/line estimates are not reported"},
			&cli.BoolFlag{Name: "json-stats", Usage: "Print the final stats snapshot as JSON instead of text"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Enable debug logging on stderr"},
			&cli.BoolFlag{Name: "json-logs", Usage: "Emit structured JSON log lines instead of text"},
		},
		Action: runCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "logfilt:", err)
		os.Exit(exitCodeFor(err))
	}
}

func runCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: logfilt [flags] <expression>", exitParseError)
	}

	if c.IsSet("verbose") {
		logging.SetVerbose(c.Bool("verbose"))
	}
	logging.SetJSON(c.Bool("json-logs"))

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return cli.Exit(err, exitConfigError)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return cli.Exit(err, exitCodeFor(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			p.Stop()
			cancel()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigCh)

	summary, err := p.Run(ctx)
	if err != nil {
		return cli.Exit(err, exitCodeFor(err))
	}

	if c.Bool("json-stats") {
		data, jsonErr := summary.Snapshot.JSON()
		if jsonErr != nil {
			return cli.Exit(jsonErr, exitFatal)
		}
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprint(os.Stderr, summary.Snapshot.Summary())
	}

	if summary.Status == pipeline.StatusCancelled {
		return cli.Exit("", exitCancelled)
	}
	return nil
}

// loadConfigWithOverrides builds a Config the same two-step way the
// teacher's loadConfigWithOverrides does: file-backed defaults first,
// then CLI flags layered on top field-by-field.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	searchDir := c.String("config")
	cfg, err := config.Load(searchDir)
	if err != nil {
		return nil, err
	}

	cfg.Expression = c.Args().First()
	if c.IsSet("case-sensitive") {
		cfg.CaseSensitive = c.Bool("case-sensitive")
	}
	if root := c.String("root"); root != "" {
		cfg.SearchRoot = root
	}
	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.IncludePatterns = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.ExcludePatterns = exclude
	}
	if c.IsSet("follow-symlinks") {
		cfg.FollowSymlinks = c.Bool("follow-symlinks")
	}
	if c.IsSet("max-depth") {
		cfg.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("max-file-size") && c.Int64("max-file-size") != 0 {
		cfg.MaxFileSize = c.Int64("max-file-size")
	}
	if c.IsSet("max-record-size") && c.Int64("max-record-size") != 0 {
		cfg.MaxRecordSize = c.Int64("max-record-size")
	}
	if v := c.String("date-from"); v != "" {
		cfg.DateFrom = v
	}
	if v := c.String("date-to"); v != "" {
		cfg.DateTo = v
	}
	if v := c.String("time-from"); v != "" {
		cfg.TimeFrom = v
	}
	if v := c.String("time-to"); v != "" {
		cfg.TimeTo = v
	}
	if v := c.String("output"); v != "" {
		cfg.OutputFile = v
	}
	if c.IsSet("overwrite") {
		cfg.Overwrite = c.Bool("overwrite")
	}
	if c.IsSet("include-path") {
		cfg.IncludePath = c.Bool("include-path")
	}
	if c.IsSet("highlight") {
		cfg.Highlight = c.Bool("highlight")
	}
	if c.IsSet("deterministic") {
		cfg.Deterministic = c.Bool("deterministic")
	}
	if c.IsSet("workers") {
		cfg.MaxWorkers = c.Int("workers")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
	if c.IsSet("dry-run-details") {
		cfg.DryRunDetails = c.Bool("dry-run-details")
		cfg.DryRun = cfg.DryRun || cfg.DryRunDetails
	}

	return cfg, nil
}

// exitCodeFor maps an error from pipeline construction/run to spec.md
// §6's exit-code table.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errkit.IsFatal(err) {
		switch err.(type) {
		case *errkit.ParseError:
			return exitParseError
		case *errkit.ConfigError:
			return exitConfigError
		}
	}
	var multi *errkit.MultiError
	if asMultiError(err, &multi) {
		for _, e := range multi.Errors {
			if _, ok := e.(*errkit.ConfigError); ok {
				return exitConfigError
			}
		}
	}
	if _, ok := err.(*errkit.FileError); ok {
		return exitIOError
	}
	return exitFatal
}

func asMultiError(err error, target **errkit.MultiError) bool {
	m, ok := err.(*errkit.MultiError)
	if !ok {
		return false
	}
	*target = m
	return true
}
