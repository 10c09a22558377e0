// Package worker implements the per-file processing loop the pipeline
// spawns N of (spec.md §4.8): dequeue a path, open it via filehandler,
// feed lines to a record parser, run the filter chain, and submit
// matches to the writer.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/eval"
	"github.com/standardbeagle/logfilt/internal/filehandler"
	"github.com/standardbeagle/logfilt/internal/filter"
	"github.com/standardbeagle/logfilt/internal/logging"
	"github.com/standardbeagle/logfilt/internal/record"
	"github.com/standardbeagle/logfilt/internal/stats"
	"github.com/standardbeagle/logfilt/internal/types"
	"github.com/standardbeagle/logfilt/internal/writer"
	"github.com/standardbeagle/logfilt/pkg/pathutil"
)

// Options carries the per-pipeline configuration a worker needs that
// isn't part of the Chain itself.
type Options struct {
	MaxRecordSize         int64
	MaxDecompressionRatio int64
	IncludePath           bool
	Highlight             bool
	// SearchRoot makes IncludePath headers print paths relative to the
	// scan root instead of the scanner's absolute WorkItem.Path.
	SearchRoot string
}

// initialSubmitBackoff/maxSubmitBackoff bound the writer back-pressure
// retry loop (grounded on the teacher's pipeline_processor.go exponential
// backoff for a saturated result channel).
const (
	initialSubmitBackoff = 10 * time.Millisecond
	maxSubmitBackoff     = 2 * time.Second
)

// Run drains items from the queue until it's closed, processing each
// file and reporting a types.FileReport for it. It never returns an
// error itself — all per-file failures are recorded on the report.
func Run(ctx context.Context, items <-chan types.WorkItem, chain *filter.Chain, w writer.Writer, collector *stats.Collector, opts Options, onReport func(types.FileReport)) {
	var scratch eval.Scratch
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			report := processFileSafely(ctx, item, chain, w, collector, opts, &scratch)
			onReport(report)
		}
	}
}

// processFileSafely wraps processFile with panic recovery, converting an
// invariant-violation panic into a FileError{Internal} for this file
// only (spec.md §4.8's "a per-worker panic must be caught at the worker
// boundary").
func processFileSafely(ctx context.Context, item types.WorkItem, chain *filter.Chain, w writer.Writer, collector *stats.Collector, opts Options, scratch *eval.Scratch) (report types.FileReport) {
	defer func() {
		if r := recover(); r != nil {
			report = types.FileReport{
				Path:        item.Path,
				Error:       types.ErrInternal,
				ErrorDetail: fmt.Sprintf("panic: %v", r),
			}
			logging.Worker("recovered panic processing %s: %v", item.Path, r)
			w.MarkFileDone(item.SeqNum)
		}
	}()
	return processFile(ctx, item, chain, w, collector, opts, scratch)
}

func processFile(ctx context.Context, item types.WorkItem, chain *filter.Chain, w writer.Writer, collector *stats.Collector, opts Options, scratch *eval.Scratch) types.FileReport {
	start := time.Now()
	report := types.FileReport{Path: item.Path}

	lr, err := filehandler.Open(item.Path, opts.MaxDecompressionRatio)
	if err != nil {
		report.Error, report.ErrorDetail = classify(err)
		report.Duration = time.Since(start)
		w.MarkFileDone(item.SeqNum)
		return report
	}
	defer lr.Close()

	parser := record.New(item.Path, opts.MaxRecordSize)
	var buf bytes.Buffer

	for {
		line, lineNo, err := lr.Next()
		if err != nil {
			if err != io.EOF {
				report.Error, report.ErrorDetail = classify(err)
			}
			break
		}
		report.BytesRead += int64(len(line))

		rec, warn := parser.Feed(lineNo, line)
		if warn != nil {
			logging.Worker("%s: %s", item.Path, warn.Error())
		}
		if rec != nil {
			countIfTruncated(collector, rec)
			handleRecord(rec, item, chain, w, scratch, &report, &buf, opts)
		}
	}

	if rec := parser.Finalize(); rec != nil {
		countIfTruncated(collector, rec)
		handleRecord(rec, item, chain, w, scratch, &report, &buf, opts)
	}

	report.Duration = time.Since(start)
	_ = submitWithBackoff(ctx, func() error { w.MarkFileDone(item.SeqNum); return nil })
	return report
}

// countIfTruncated folds a completed record's own Truncated flag into the
// shared stats, rather than keying off the OversizeTruncated warning —
// a lone oversize header/orphan line is truncated at record start with
// no warning of its own (parser.go's startRecord), so the record's
// field is the one signal guaranteed to be set whenever content was cut.
func countIfTruncated(collector *stats.Collector, rec *types.LogRecord) {
	if rec.Truncated {
		collector.IncRecordOversize()
		collector.IncRecordTruncated()
	}
}

func handleRecord(rec *types.LogRecord, item types.WorkItem, chain *filter.Chain, w writer.Writer, scratch *eval.Scratch, report *types.FileReport, buf *bytes.Buffer, opts Options) {
	report.RecordsTotal++

	if !chain.Accept(rec, scratch) {
		return
	}
	report.RecordsMatched++

	buf.Reset()
	formatRecord(buf, rec, chain.Expr, opts)
	data := append([]byte(nil), buf.Bytes()...)

	err := submitWithBackoff(context.Background(), func() error {
		return w.Submit(item.SeqNum, rec.LineStart, data)
	})
	if err != nil {
		report.Error, report.ErrorDetail = classify(err)
	}
}

func formatRecord(buf *bytes.Buffer, rec *types.LogRecord, expr *types.Node, opts Options) {
	if opts.IncludePath {
		path := pathutil.ToRelative(rec.SourcePath, opts.SearchRoot)
		fmt.Fprintf(buf, "=== %s (lines %d-%d) ===\n", path, rec.LineStart, rec.LineEnd)
	}
	content := rec.Content
	if opts.Highlight && expr != nil {
		content = eval.Highlight(expr, content)
	}
	buf.Write(content)
	if len(content) == 0 || content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
}

// submitWithBackoff retries fn with exponential backoff, grounded on the
// teacher's pipeline_processor.go back-pressure loop for a saturated
// channel — here the analogous saturation point is the writer's own
// internal buffering, and fn is either a Submit or a MarkFileDone call.
func submitWithBackoff(ctx context.Context, fn func() error) error {
	delay := initialSubmitBackoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errkit.IsFatal(err) && attempt < 5 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxSubmitBackoff {
				delay = maxSubmitBackoff
			}
			continue
		}
		return err
	}
}

func classify(err error) (types.ErrorKind, string) {
	if fe, ok := err.(*errkit.FileError); ok {
		switch fe.Kind {
		case errkit.NotFound:
			return types.ErrNotFound, fe.Error()
		case errkit.PermissionDenied:
			return types.ErrPermissionDenied, fe.Error()
		case errkit.DecompressionFailed:
			return types.ErrDecompressionFailed, fe.Error()
		default:
			return types.ErrIO, fe.Error()
		}
	}
	return types.ErrIO, err.Error()
}
