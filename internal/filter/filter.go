// Package filter implements the fixed-order predicate chain a worker
// runs over each reconstructed record before handing it to the writer
// (spec.md §4.7): date window, time-of-day window, then the boolean
// expression. Each stage short-circuits the chain on rejection.
package filter

import (
	"sync/atomic"
	"time"

	"github.com/standardbeagle/logfilt/internal/eval"
	"github.com/standardbeagle/logfilt/internal/types"
)

// Window bounds an optional inclusive range. A nil From/To means that
// side of the window is unbounded.
type DateWindow struct {
	From *time.Time
	To   *time.Time
}

// TimeWindow bounds an inclusive time-of-day range. When From > To the
// window wraps across midnight (e.g. 22:00–06:00 matches either side).
type TimeWindow struct {
	From *time.Duration // offset since midnight
	To   *time.Duration
}

// Chain is the per-pipeline, per-worker-shared set of predicates. It
// holds no mutable state itself — the record's AST evaluation scratch
// space is owned by the caller (each worker's own eval.Scratch).
type Chain struct {
	Date        DateWindow
	Time        TimeWindow
	Expr        *types.Node
	NoTimestamp *Counter
}

// Counter tallies how often the date/time filters see a record with no
// timestamp (spec.md §9 Open Question 3's "add a counter"). A Chain is
// shared read-only across concurrently running workers, so Add uses an
// atomic increment rather than a plain one.
type Counter struct {
	count int64
}

func (c *Counter) Add() {
	if c != nil {
		atomic.AddInt64(&c.count, 1)
	}
}

func (c *Counter) Value() int64 {
	if c == nil {
		return 0
	}
	return atomic.LoadInt64(&c.count)
}

// Accept runs the full chain against one record's reconstructed content,
// short-circuiting on the first rejecting predicate.
func (c *Chain) Accept(rec *types.LogRecord, scratch *eval.Scratch) bool {
	if !c.acceptDate(rec) {
		return false
	}
	if !c.acceptTime(rec) {
		return false
	}
	if c.Expr == nil {
		return true
	}
	scratch.Reset(rec.Content)
	return eval.Eval(c.Expr, scratch)
}

func (c *Chain) acceptDate(rec *types.LogRecord) bool {
	if c.Date.From == nil && c.Date.To == nil {
		return true
	}
	if rec.Timestamp == nil {
		c.NoTimestamp.Add()
		return true
	}
	ts := *rec.Timestamp
	if c.Date.From != nil && ts.Before(*c.Date.From) {
		return false
	}
	if c.Date.To != nil && ts.After(*c.Date.To) {
		return false
	}
	return true
}

func (c *Chain) acceptTime(rec *types.LogRecord) bool {
	if c.Time.From == nil && c.Time.To == nil {
		return true
	}
	if rec.Timestamp == nil {
		c.NoTimestamp.Add()
		return true
	}
	ts := *rec.Timestamp
	tod := time.Duration(ts.Hour())*time.Hour +
		time.Duration(ts.Minute())*time.Minute +
		time.Duration(ts.Second())*time.Second +
		time.Duration(ts.Nanosecond())

	from, to := c.Time.From, c.Time.To
	switch {
	case from == nil:
		return tod <= *to
	case to == nil:
		return tod >= *from
	case *from <= *to:
		return tod >= *from && tod <= *to
	default:
		// Wraps across midnight: accept either side of the split.
		return tod >= *from || tod <= *to
	}
}
