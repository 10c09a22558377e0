// Package pipeline owns and coordinates every other component (spec.md
// §4.9): it builds the AST, opens the writer, starts the stats collector,
// spawns the worker pool, walks the search root with the scanner, and
// drains everything to a final Summary.
package pipeline

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/logfilt/internal/config"
	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/eval"
	"github.com/standardbeagle/logfilt/internal/expr"
	"github.com/standardbeagle/logfilt/internal/filehandler"
	"github.com/standardbeagle/logfilt/internal/filter"
	"github.com/standardbeagle/logfilt/internal/logging"
	"github.com/standardbeagle/logfilt/internal/scanner"
	"github.com/standardbeagle/logfilt/internal/stats"
	"github.com/standardbeagle/logfilt/internal/types"
	"github.com/standardbeagle/logfilt/internal/worker"
	"github.com/standardbeagle/logfilt/internal/writer"
)

// Status is the final outcome spec.md §4.9/§6 names.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusCancelled Status = "cancelled"
)

// Summary is the pipeline's terminal result: a status plus a stats
// snapshot, sufficient for the CLI to pick an exit code (spec.md §6).
type Summary struct {
	Status   Status
	Snapshot stats.Snapshot
}

// Pipeline runs one end-to-end scan-filter-write pass. It is built once
// per invocation and not reused.
type Pipeline struct {
	cfg  *config.Config
	stop atomic.Bool
}

// New validates cfg and returns a Pipeline ready to Run. Validation
// failures surface as a *errkit.ConfigError (wrapped in a MultiError),
// matching spec.md §4.9 step 1's "fail fast" requirement one level up —
// AST construction happens inside Run since it also needs cfg.Expression.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg}, nil
}

// Stop requests cooperative cancellation: the scanner stops enqueueing
// new paths and workers finish their current file, matching spec.md
// §4.9's single stop-signal model. Safe to call from a signal handler.
func (p *Pipeline) Stop() {
	p.stop.Store(true)
}

// Run executes the full lifecycle described in spec.md §4.9 and returns
// a terminal Summary. ctx cancellation is an additional, lower-latency
// way to trigger the same cooperative shutdown as Stop.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	root, err := expr.Parse(p.cfg.Expression)
	if err != nil {
		return Summary{}, err
	}
	root = eval.Attach(root, p.cfg.CaseSensitive)

	dateWindow, timeWindow, err := buildWindows(p.cfg)
	if err != nil {
		return Summary{}, err
	}

	w, err := p.openWriter()
	if err != nil {
		return Summary{}, err
	}

	collector := stats.New()
	noTimestamp := &filter.Counter{}
	chain := &filter.Chain{Date: dateWindow, Time: timeWindow, Expr: root, NoTimestamp: noTimestamp}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.watchStop(ctx, cancel)

	items := make(chan types.WorkItem, 2*p.cfg.MaxWorkers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.MaxWorkers; i++ {
		g.Go(func() error {
			worker.Run(gctx, items, chain, w, collector, workerOptions(p.cfg), func(r types.FileReport) {
				collector.Apply(r, r.RecordsMatched > 0)
			})
			return nil
		})
	}

	scanErr := p.scan(ctx, items, collector)

	// g.Wait drains every worker once items is closed (done inside scan);
	// errgroup's own context is only used to let a worker's own fatal
	// failure (there are none today — workers never return an error) cut
	// the others short in the future without a signature change.
	_ = g.Wait()

	collector.SetRecordNoTimestamp(noTimestamp.Value())

	flushErr := w.Flush()
	closeErr := w.Close()

	status := StatusSuccess
	if p.stop.Load() || ctx.Err() != nil {
		status = StatusCancelled
	}

	logging.Pipeline("run finished: status=%s noTimestamp=%d", status, noTimestamp.Value())

	if scanErr != nil {
		return Summary{Status: status, Snapshot: collector.Snapshot()}, scanErr
	}
	if flushErr != nil {
		return Summary{Status: status, Snapshot: collector.Snapshot()}, flushErr
	}
	if closeErr != nil {
		return Summary{Status: status, Snapshot: collector.Snapshot()}, closeErr
	}
	return Summary{Status: status, Snapshot: collector.Snapshot()}, nil
}

// stopPollInterval bounds how quickly a caller-set Stop() is noticed;
// context cancellation (the SIGINT/SIGTERM path) is immediate regardless.
const stopPollInterval = 50 * time.Millisecond

// watchStop cancels ctx (via cancel) as soon as either the caller-set
// stop flag flips or ctx is independently cancelled, giving Stop() and
// context cancellation the same single code path into the workers.
func (p *Pipeline) watchStop(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.stop.Load() {
				cancel()
				return
			}
		}
	}
}

// scan walks the search root and feeds items until the scanner finishes
// or ctx is cancelled, then closes items so the worker pool drains.
func (p *Pipeline) scan(ctx context.Context, items chan<- types.WorkItem, collector *stats.Collector) error {
	defer close(items)

	opts := scanner.Options{
		IncludePatterns: p.cfg.IncludePatterns,
		ExcludePatterns: p.cfg.ExcludePatterns,
		FollowSymlinks:  p.cfg.FollowSymlinks,
		MaxDepth:        int64(p.cfg.MaxDepth),
		MaxFileSize:     p.cfg.MaxFileSize,
	}
	result, err := scanner.Scan(ctx, p.cfg.SearchRoot, opts)
	if err != nil {
		return err
	}

	for i := 0; i < result.SkippedOversize; i++ {
		collector.IncSkipped()
	}
	for _, w := range result.Warnings {
		logging.Scanner("%v", w)
	}

	for _, item := range result.Items {
		select {
		case <-ctx.Done():
			return nil
		case items <- item:
		}
	}
	return nil
}

func (p *Pipeline) openWriter() (writer.Writer, error) {
	if p.cfg.DryRun || p.cfg.DryRunDetails {
		return writer.NewCounting(), nil
	}

	if p.cfg.OutputFile == "" {
		return writer.New(os.Stdout, nil, p.cfg.Deterministic), nil
	}

	flags := os.O_WRONLY | os.O_CREATE
	if p.cfg.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(p.cfg.OutputFile, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errkit.NewConfigError("output_file", "destination exists and overwrite is false: "+p.cfg.OutputFile)
		}
		return nil, errkit.NewConfigError("output_file", err.Error())
	}
	return writer.New(f, f, p.cfg.Deterministic), nil
}

func workerOptions(cfg *config.Config) worker.Options {
	return worker.Options{
		MaxRecordSize:         cfg.MaxRecordSize,
		MaxDecompressionRatio: filehandler.DefaultMaxDecompressionRatio,
		IncludePath:           cfg.IncludePath,
		Highlight:             cfg.Highlight,
		SearchRoot:            cfg.SearchRoot,
	}
}
