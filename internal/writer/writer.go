// Package writer is the pipeline's single append-only sink (spec.md
// §4.10): workers submit pre-formatted record bytes, and the writer
// guarantees each submission appears contiguously in the output, never
// interleaved with another submission's bytes.
package writer

import (
	"bufio"
	"container/heap"
	"errors"
	"io"
	"sync"

	"github.com/standardbeagle/logfilt/internal/errkit"
)

var (
	errClosed           = errors.New("writer is closed")
	errPriorWriteFailed = errors.New("a prior write to the output stream failed")
)

// Writer is the sink workers submit matched, pre-formatted records to.
type Writer interface {
	// Submit writes one record's bytes atomically with respect to other
	// submissions. seqNum is the file's scan-order sequence number and
	// lineStart the record's starting line, both used only when
	// deterministic ordering is requested.
	Submit(seqNum uint64, lineStart uint64, data []byte) error
	// MarkFileDone signals that no more records will be submitted for
	// this file's sequence number — required for deterministic mode to
	// know a file's buffer is complete and can be released in order.
	MarkFileDone(seqNum uint64)
	Flush() error
	Close() error
}

// FileWriter wraps an underlying stream with the ordering and atomicity
// guarantees spec.md §4.10 requires. In non-deterministic mode it writes
// each submission directly under a mutex; in deterministic mode it
// buffers each file's records in a per-file min-heap and releases whole
// files, in ascending sequence-number order, only once that file's
// worker has signalled completion (SPEC_FULL.md §4, grounded on the
// teacher's single-writer-owns-serialization convention).
type FileWriter struct {
	mu            sync.Mutex
	bw            *bufio.Writer
	closer        io.Closer
	closed        bool
	failed        bool
	deterministic bool

	pending       map[uint64]*fileBuffer
	done          map[uint64]bool
	nextToRelease uint64
}

type fileBuffer struct {
	items recordHeap
}

type record struct {
	lineStart uint64
	data      []byte
}

type recordHeap []record

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return h[i].lineStart < h[j].lineStart }
func (h recordHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *recordHeap) Push(x interface{}) { *h = append(*h, x.(record)) }
func (h *recordHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// New wraps dst as a Writer. When deterministic is true, Submit's
// seqNum/lineStart ordering is honored; otherwise records are written as
// soon as they arrive.
func New(dst io.Writer, closer io.Closer, deterministic bool) *FileWriter {
	return &FileWriter{
		bw:            bufio.NewWriterSize(dst, 64*1024),
		closer:        closer,
		deterministic: deterministic,
		pending:       make(map[uint64]*fileBuffer),
		done:          make(map[uint64]bool),
	}
}

func (w *FileWriter) Submit(seqNum uint64, lineStart uint64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errkit.NewFileError(errkit.IoError, "", errClosed)
	}
	if w.failed {
		return errkit.NewFileError(errkit.IoError, "", errPriorWriteFailed)
	}

	if !w.deterministic {
		if _, err := w.bw.Write(data); err != nil {
			w.failed = true
			return errkit.NewFileError(errkit.IoError, "", err)
		}
		return nil
	}

	buf, ok := w.pending[seqNum]
	if !ok {
		buf = &fileBuffer{}
		w.pending[seqNum] = buf
	}
	cp := append([]byte(nil), data...)
	heap.Push(&buf.items, record{lineStart: lineStart, data: cp})
	return nil
}

func (w *FileWriter) MarkFileDone(seqNum uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.deterministic {
		return
	}
	w.done[seqNum] = true
	w.releaseReady()
}

// releaseReady flushes whole files, in ascending sequence-number order,
// starting from nextToRelease, stopping at the first not-yet-done file.
func (w *FileWriter) releaseReady() {
	for {
		if !w.done[w.nextToRelease] {
			return
		}
		buf, ok := w.pending[w.nextToRelease]
		if ok {
			for buf.items.Len() > 0 {
				r := heap.Pop(&buf.items).(record)
				if _, err := w.bw.Write(r.data); err != nil {
					w.failed = true
					break
				}
			}
			delete(w.pending, w.nextToRelease)
		}
		delete(w.done, w.nextToRelease)
		w.nextToRelease++
	}
}

func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.bw.Flush()
	var closeErr error
	if w.closer != nil {
		closeErr = w.closer.Close()
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
