// Package stats implements the pipeline's thread-safe counter set and its
// text/JSON snapshot reporter (spec.md §4.11).
package stats

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/standardbeagle/logfilt/internal/types"
)

// Collector holds the running counters a worker updates once per
// FileReport. Consistency between counters is not guaranteed at read
// time (spec.md §4.11: "readers tolerate slight skew").
type Collector struct {
	start time.Time

	filesScanned int64
	filesMatched int64
	filesSkipped int64
	filesErrored int64

	recordsScanned   int64
	recordsMatched   int64
	recordsOversize  int64
	recordsTruncated int64
	recordsNoTimestamp int64

	bytesRead int64

	errorKinds errorKindCounters
}

type errorKindCounters struct {
	mu     sync.Mutex
	byKind map[types.ErrorKind]int64
}

// New creates a Collector with its start time set to now.
func New() *Collector {
	return &Collector{
		start:      time.Now(),
		errorKinds: errorKindCounters{byKind: make(map[types.ErrorKind]int64)},
	}
}

// Apply folds one worker's FileReport into the running counters.
func (c *Collector) Apply(r types.FileReport, matched bool) {
	atomic.AddInt64(&c.filesScanned, 1)
	atomic.AddInt64(&c.recordsScanned, r.RecordsTotal)
	atomic.AddInt64(&c.recordsMatched, r.RecordsMatched)
	atomic.AddInt64(&c.bytesRead, r.BytesRead)

	if matched {
		atomic.AddInt64(&c.filesMatched, 1)
	}
	if r.Error != "" {
		atomic.AddInt64(&c.filesErrored, 1)
		c.errorKinds.mu.Lock()
		c.errorKinds.byKind[r.Error]++
		c.errorKinds.mu.Unlock()
	}
}

// IncSkipped records a scanner-level skip of an oversize file. Files left
// out by include/exclude globs are not counted.
func (c *Collector) IncSkipped() { atomic.AddInt64(&c.filesSkipped, 1) }

// IncRecordOversize/IncRecordTruncated/IncRecordNoTimestamp track the
// record- and filter-level counters spec.md and Open Question 3 name.
func (c *Collector) IncRecordOversize()   { atomic.AddInt64(&c.recordsOversize, 1) }
func (c *Collector) IncRecordTruncated()  { atomic.AddInt64(&c.recordsTruncated, 1) }
func (c *Collector) IncRecordNoTimestamp() { atomic.AddInt64(&c.recordsNoTimestamp, 1) }

// SetRecordNoTimestamp overwrites the no-timestamp counter wholesale,
// for a caller (the pipeline) that tracks the running total itself via
// its own atomic counter (filter.Counter, shared read-only across
// workers) and folds it in once at snapshot time rather than calling
// IncRecordNoTimestamp from inside the hot filtering path.
func (c *Collector) SetRecordNoTimestamp(n int64) { atomic.StoreInt64(&c.recordsNoTimestamp, n) }

// Snapshot is an immutable point-in-time view suitable for formatting or
// JSON serialization.
type Snapshot struct {
	FilesScanned       int64                       `json:"files_scanned"`
	FilesMatched       int64                       `json:"files_matched"`
	FilesSkipped       int64                       `json:"files_skipped"`
	FilesErrored       int64                       `json:"files_errored"`
	RecordsScanned     int64                       `json:"records_scanned"`
	RecordsMatched     int64                       `json:"records_matched"`
	RecordsOversize    int64                       `json:"records_oversize"`
	RecordsTruncated   int64                       `json:"records_truncated"`
	RecordsNoTimestamp int64                       `json:"records_no_timestamp"`
	BytesRead          int64                       `json:"bytes_read"`
	Elapsed            time.Duration               `json:"elapsed_ns"`
	ErrorsByKind       map[types.ErrorKind]int64   `json:"errors_by_kind"`
}

func (c *Collector) Snapshot() Snapshot {
	c.errorKinds.mu.Lock()
	byKind := make(map[types.ErrorKind]int64, len(c.errorKinds.byKind))
	for k, v := range c.errorKinds.byKind {
		byKind[k] = v
	}
	c.errorKinds.mu.Unlock()

	return Snapshot{
		FilesScanned:       atomic.LoadInt64(&c.filesScanned),
		FilesMatched:       atomic.LoadInt64(&c.filesMatched),
		FilesSkipped:       atomic.LoadInt64(&c.filesSkipped),
		FilesErrored:       atomic.LoadInt64(&c.filesErrored),
		RecordsScanned:     atomic.LoadInt64(&c.recordsScanned),
		RecordsMatched:     atomic.LoadInt64(&c.recordsMatched),
		RecordsOversize:    atomic.LoadInt64(&c.recordsOversize),
		RecordsTruncated:   atomic.LoadInt64(&c.recordsTruncated),
		RecordsNoTimestamp: atomic.LoadInt64(&c.recordsNoTimestamp),
		BytesRead:          atomic.LoadInt64(&c.bytesRead),
		Elapsed:            time.Since(c.start),
		ErrorsByKind:       byKind,
	}
}

// Summary renders a human-readable text report, using humanize for byte
// counts (SPEC_FULL.md §3's C11 dependency) and time.Duration's own
// formatting for the elapsed time.
func (s Snapshot) Summary() string {
	out := fmt.Sprintf(
		"files: %d scanned, %d matched, %d skipped, %d errored\n"+
			"records: %d scanned, %d matched, %d oversize, %d truncated, %d without timestamp\n"+
			"bytes read: %s\n"+
			"elapsed: %s\n",
		s.FilesScanned, s.FilesMatched, s.FilesSkipped, s.FilesErrored,
		s.RecordsScanned, s.RecordsMatched, s.RecordsOversize, s.RecordsTruncated, s.RecordsNoTimestamp,
		humanize.Bytes(uint64(s.BytesRead)),
		s.Elapsed.Round(time.Millisecond),
	)
	for kind, count := range s.ErrorsByKind {
		out += fmt.Sprintf("  %s: %d\n", kind, count)
	}
	return out
}

// JSON renders the snapshot as an indented JSON document.
func (s Snapshot) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
