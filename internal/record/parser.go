// Package record reconstructs multi-line log records from a stream of
// lines via a small state machine (spec.md §4.4): Idle (no pending
// record) and Accumulating (one record being built). A line starting with
// a recognizable timestamp prefix begins a new record; anything else is a
// continuation appended to the record in progress.
package record

import (
	"regexp"
	"time"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/types"
)

var (
	// YYYY-MM-DD[ T]HH:MM:SS(.fff)?(Z|±HH:MM)? at the start of the line.
	headerTimeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ](\d{2}:\d{2}:\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?`)
	// YYYY-MM-DD alone at the start, not followed by a time component.
	headerDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:[^T\d]|$)`)
)

type state int

const (
	stateIdle state = iota
	stateAccumulating
)

// Parser is a streaming, single-file record reconstructor. One Parser is
// created per file, fed lines in order, and dropped after Finalize — it
// is never shared between files or goroutines.
type Parser struct {
	sourcePath string
	maxSize    int64

	state    state
	skipping bool

	content    []byte
	timestamp  *time.Time
	lineStart  uint64
	lineEnd    uint64
	truncated  bool
	size       int64
}

// New creates a Parser for one file's stream. maxSize bounds a single
// record's accumulated content in bytes (spec.md §4.4's L_max).
func New(sourcePath string, maxSize int64) *Parser {
	return &Parser{sourcePath: sourcePath, maxSize: maxSize, state: stateIdle}
}

// Feed processes one line (without its terminator) at the given 1-based
// line number. Returns a completed record if this line's transition ended
// one, and/or a recoverable RecordError if this line triggered a warning
// (orphan continuation, oversize truncation). Both return values may be
// non-nil together (an oversize truncation always completes a record).
func (p *Parser) Feed(lineNo uint64, line []byte) (*types.LogRecord, *errkit.RecordError) {
	isHeader, ts := classify(line)

	if p.skipping {
		if !isHeader {
			return nil, nil
		}
		p.skipping = false
		p.startRecord(lineNo, line, ts)
		return nil, nil
	}

	switch p.state {
	case stateIdle:
		if isHeader {
			p.startRecord(lineNo, line, ts)
			return nil, nil
		}
		p.startRecord(lineNo, line, nil)
		return nil, errkit.NewRecordError(errkit.OrphanContinuation, p.sourcePath, lineNo,
			"continuation line encountered with no preceding header; starting a synthetic record")

	default: // stateAccumulating
		if isHeader {
			completed := p.finishRecord()
			p.startRecord(lineNo, line, ts)
			return completed, nil
		}

		addSize := int64(len(line)) + 1
		if p.size+addSize > p.maxSize {
			p.truncated = true
			completed := p.finishRecord()
			p.skipping = true
			return completed, errkit.NewRecordError(errkit.OversizeTruncated, p.sourcePath, completed.LineStart,
				"record exceeded max_record_size; truncated and skipping to next header")
		}

		p.appendLine(lineNo, line)
		return nil, nil
	}
}

// Finalize flushes any pending record at end-of-stream, transitioning back
// to Idle. Returns nil if there was nothing pending.
func (p *Parser) Finalize() *types.LogRecord {
	if p.state != stateAccumulating {
		return nil
	}
	return p.finishRecord()
}

// startRecord begins a new record from line, bounding its content to
// maxSize immediately — a single line longer than maxSize is truncated
// right here rather than only on a later continuation-append overflow,
// so a lone oversize header/orphan line still ends up with content
// length at most maxSize (spec.md §8 scenario 6).
func (p *Parser) startRecord(lineNo uint64, line []byte, ts *time.Time) {
	p.state = stateAccumulating
	p.timestamp = ts
	p.lineStart = lineNo
	p.lineEnd = lineNo

	if int64(len(line)) > p.maxSize {
		p.content = append([]byte(nil), line[:p.maxSize]...)
		p.truncated = true
		p.size = p.maxSize
		return
	}
	p.content = append([]byte(nil), line...)
	p.truncated = false
	p.size = int64(len(line))
}

func (p *Parser) appendLine(lineNo uint64, line []byte) {
	p.content = append(p.content, '\n')
	p.content = append(p.content, line...)
	p.lineEnd = lineNo
	p.size += int64(len(line)) + 1
}

func (p *Parser) finishRecord() *types.LogRecord {
	rec := &types.LogRecord{
		Content:    p.content,
		Timestamp:  p.timestamp,
		SourcePath: p.sourcePath,
		LineStart:  p.lineStart,
		LineEnd:    p.lineEnd,
		Truncated:  p.truncated,
	}
	p.state = stateIdle
	p.content = nil
	p.timestamp = nil
	p.size = 0
	return rec
}

// classify reports whether line begins with a recognizable timestamp
// prefix (a header line) and, if so, the timestamp it carries — nil if
// the prefix shape matched but no priority-1/2 pattern could be parsed
// into a concrete time (shouldn't happen given the regexes only match
// well-formed digit groups, but defensive since regex and time.Parse can
// disagree on calendar validity, e.g. 2026-02-30).
func classify(line []byte) (isHeader bool, ts *time.Time) {
	if m := headerTimeRe.FindSubmatch(line); m != nil {
		layout := "2006-01-02T15:04:05"
		value := string(m[1]) + "T" + string(m[2])
		if len(m[3]) > 0 {
			layout += ".999999999"
			value += string(m[3])
		}
		if len(m[4]) > 0 {
			if string(m[4]) == "Z" {
				layout += "Z"
				value += "Z"
			} else {
				layout += "-07:00"
				value += string(m[4])
			}
		}
		t, err := time.Parse(layout, value)
		if err != nil {
			return true, nil
		}
		return true, &t
	}

	if m := headerDateRe.FindSubmatch(line); m != nil {
		t, err := time.Parse("2006-01-02", string(m[1]))
		if err != nil {
			return true, nil
		}
		return true, &t
	}

	return false, nil
}
