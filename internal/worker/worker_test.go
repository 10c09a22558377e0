package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/eval"
	"github.com/standardbeagle/logfilt/internal/filter"
	"github.com/standardbeagle/logfilt/internal/stats"
	"github.com/standardbeagle/logfilt/internal/types"
)

// recordingWriter captures every Submit call in order for assertion,
// without needing the full FileWriter's ordering machinery.
type recordingWriter struct {
	mu       sync.Mutex
	subs     [][]byte
	done     []uint64
	failOnce bool
	failed   bool
}

func (w *recordingWriter) Submit(seqNum, lineStart uint64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOnce && !w.failed {
		w.failed = true
		return errkit.NewFileError(errkit.IoError, "", errors.New("transient"))
	}
	w.subs = append(w.subs, append([]byte(nil), data...))
	return nil
}

func (w *recordingWriter) MarkFileDone(seqNum uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = append(w.done, seqNum)
}

func (w *recordingWriter) Flush() error { return nil }
func (w *recordingWriter) Close() error { return nil }

func mustExpr(t *testing.T, literal string) *types.Node {
	t.Helper()
	node := &types.Node{Kind: types.NodeTerm, Literal: literal}
	return eval.Attach(node, false)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestProcessesFileAndSubmitsMatches(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.log",
		"2026-01-01 10:00:00 hello world\ncontinuation line\n2026-01-01 10:00:01 goodbye\n")

	w := &recordingWriter{}
	chain := &filter.Chain{Expr: mustExpr(t, "hello")}
	collector := stats.New()

	var reports []types.FileReport
	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: path, SeqNum: 0}
	close(items)

	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 1 << 20, IncludePath: true},
		func(r types.FileReport) { reports = append(reports, r) })

	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	r := reports[0]
	if r.Error != "" {
		t.Fatalf("unexpected error: %s (%s)", r.Error, r.ErrorDetail)
	}
	if r.RecordsTotal != 2 {
		t.Errorf("RecordsTotal = %d, want 2", r.RecordsTotal)
	}
	if r.RecordsMatched != 1 {
		t.Errorf("RecordsMatched = %d, want 1", r.RecordsMatched)
	}
	if len(w.subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(w.subs))
	}
	if len(w.done) != 1 || w.done[0] != 0 {
		t.Errorf("MarkFileDone calls = %v, want [0]", w.done)
	}
}

func TestMissingFileProducesNotFoundReport(t *testing.T) {
	w := &recordingWriter{}
	chain := &filter.Chain{}
	collector := stats.New()

	var reports []types.FileReport
	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: filepath.Join(t.TempDir(), "missing.log"), SeqNum: 5}
	close(items)

	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 1024},
		func(r types.FileReport) { reports = append(reports, r) })

	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if reports[0].Error != types.ErrNotFound {
		t.Errorf("Error = %s, want %s", reports[0].Error, types.ErrNotFound)
	}
	if len(w.done) != 1 || w.done[0] != 5 {
		t.Errorf("MarkFileDone calls = %v, want [5]", w.done)
	}
}

func TestOversizeRecordIncrementsStatsCounters(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.log",
		"2026-01-01 10:00:00 short\nthis continuation line is long enough to overflow the cap\n")

	w := &recordingWriter{}
	chain := &filter.Chain{}
	collector := stats.New()

	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: path, SeqNum: 0}
	close(items)

	// maxRecordSize smaller than the header + continuation forces a
	// truncation warning on the second line.
	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 30},
		func(types.FileReport) {})

	snap := collector.Snapshot()
	if snap.RecordsOversize != 1 {
		t.Errorf("RecordsOversize = %d, want 1", snap.RecordsOversize)
	}
	if snap.RecordsTruncated != 1 {
		t.Errorf("RecordsTruncated = %d, want 1", snap.RecordsTruncated)
	}
}

func TestOversizeSingleLineIsTruncatedAndCounted(t *testing.T) {
	dir := t.TempDir()
	longLine := "2026-01-01 10:00:00 " + strings.Repeat("x", 100)
	path := writeFile(t, dir, "onebig.log", longLine+"\n2026-01-01 10:00:01 next\n")

	w := &recordingWriter{}
	chain := &filter.Chain{}
	collector := stats.New()

	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: path, SeqNum: 0}
	close(items)

	// A single line alone exceeds maxSize; it must still be capped to
	// maxSize and counted, not emitted whole.
	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 30},
		func(types.FileReport) {})

	snap := collector.Snapshot()
	if snap.RecordsOversize != 1 {
		t.Errorf("RecordsOversize = %d, want 1", snap.RecordsOversize)
	}
	if snap.RecordsTruncated != 1 {
		t.Errorf("RecordsTruncated = %d, want 1", snap.RecordsTruncated)
	}
}

func TestPanicDuringProcessingIsRecoveredAsInternalError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ok.log", "2026-01-01 10:00:00 fine\n")

	w := &recordingWriter{}
	// A nil Chain panics the moment Accept dereferences its Date field —
	// exercising processFileSafely's recover boundary directly rather
	// than relying on a contrived evaluator edge case.
	var chain *filter.Chain
	collector := stats.New()

	var reports []types.FileReport
	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: path, SeqNum: 1}
	close(items)

	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 1024},
		func(r types.FileReport) { reports = append(reports, r) })

	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	if reports[0].Error != types.ErrInternal {
		t.Errorf("Error = %s, want %s", reports[0].Error, types.ErrInternal)
	}
	if len(w.done) != 1 || w.done[0] != 1 {
		t.Errorf("MarkFileDone calls = %v, want [1]", w.done)
	}
}

func TestSubmitRetriesOnTransientWriterFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "retry.log", "2026-01-01 10:00:00 match me\n")

	w := &recordingWriter{failOnce: true}
	chain := &filter.Chain{Expr: mustExpr(t, "match")}
	collector := stats.New()

	var reports []types.FileReport
	items := make(chan types.WorkItem, 1)
	items <- types.WorkItem{Path: path, SeqNum: 0}
	close(items)

	Run(context.Background(), items, chain, w, collector, Options{MaxRecordSize: 1024},
		func(r types.FileReport) { reports = append(reports, r) })

	if reports[0].Error != "" {
		t.Errorf("Error = %s, want none after retry succeeds", reports[0].Error)
	}
	if len(w.subs) != 1 {
		t.Errorf("got %d submissions, want 1 after retry", len(w.subs))
	}
}
