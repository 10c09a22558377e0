package writer

import "sync"

// CountingWriter is the dry-run sink (spec.md §4.9): it accepts every
// Submit call and tallies bytes/records without touching a real output
// stream, so the rest of the pipeline runs unmodified in dry-run mode.
type CountingWriter struct {
	mu      sync.Mutex
	records int64
	bytes   int64
}

func NewCounting() *CountingWriter {
	return &CountingWriter{}
}

func (w *CountingWriter) Submit(seqNum uint64, lineStart uint64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records++
	w.bytes += int64(len(data))
	return nil
}

func (w *CountingWriter) MarkFileDone(seqNum uint64) {}

func (w *CountingWriter) Flush() error { return nil }
func (w *CountingWriter) Close() error { return nil }

func (w *CountingWriter) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

func (w *CountingWriter) Bytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}
