// Package filehandler gives the worker pool a lazy (line_number, line)
// iterator over a file, regardless of whether it's plain text or gzip
// compressed (spec.md §4.5). Dispatch is by file extension.
package filehandler

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/standardbeagle/logfilt/internal/errkit"
)

// LineReader lazily yields successive lines from a file, each with its
// 1-based line number, a trailing single '\r' stripped but otherwise
// byte-for-byte preserved (invalid UTF-8 included — decoding is deferred
// to the evaluator).
type LineReader interface {
	// Next returns the next line and its line number, or io.EOF when the
	// stream is exhausted. It never panics on corrupt input; decompression
	// failures surface once as a FileError and then behave as EOF.
	Next() ([]byte, uint64, error)
	Close() error
}

// DefaultMaxDecompressionRatio bounds how many bytes of decompressed
// output a .gz input may yield per compressed byte before the reader Open
// returned aborts it as a decompression bomb (SPEC_FULL.md §4). 0 disables
// the guard.
const DefaultMaxDecompressionRatio = 200

// Open dispatches to the Plain or Gzip handler by file extension and
// returns a LineReader. The caller is responsible for calling Close.
// maxDecompressionRatio bounds decompressed-to-compressed size for .gz
// inputs; 0 disables the guard.
func Open(path string, maxDecompressionRatio int64) (LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".gz") {
		var compressedSize int64
		if info, statErr := f.Stat(); statErr == nil {
			compressedSize = info.Size()
		}
		return newGzipReader(path, f, compressedSize, maxDecompressionRatio)
	}
	return newPlainReader(path, f), nil
}

func classifyOpenError(path string, err error) error {
	if os.IsNotExist(err) {
		return errkit.NewFileError(errkit.NotFound, path, err)
	}
	if os.IsPermission(err) {
		return errkit.NewFileError(errkit.PermissionDenied, path, err)
	}
	return errkit.NewFileError(errkit.IoError, path, err)
}

// plainReader is a buffered byte reader splitting on '\n', stripping a
// trailing '\r'.
type plainReader struct {
	path   string
	f      *os.File
	br     *bufio.Reader
	lineNo uint64
}

func newPlainReader(path string, f *os.File) *plainReader {
	return &plainReader{path: path, f: f, br: bufio.NewReaderSize(f, 64*1024)}
}

func (r *plainReader) Next() ([]byte, uint64, error) {
	line, err := r.br.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, 0, io.EOF
	}
	line = stripTerminators(line)
	r.lineNo++
	if err != nil && err != io.EOF {
		return line, r.lineNo, errkit.NewFileError(errkit.IoError, r.path, err)
	}
	return line, r.lineNo, nil
}

func (r *plainReader) Close() error {
	return r.f.Close()
}

// gzipReader streams-decompresses a .gz file through the same
// line-splitting logic as plainReader, aborting if the decompressed
// output grows disproportionately to the compressed input (a
// decompression-bomb guard, SPEC_FULL.md §4).
type gzipReader struct {
	path   string
	f      *os.File
	gz     *gzip.Reader
	br     *bufio.Reader
	lineNo  uint64
	failed  bool
	limited *limitedReader
}

func newGzipReader(path string, f *os.File, compressedSize, maxRatio int64) (*gzipReader, error) {
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errkit.NewFileError(errkit.DecompressionFailed, path, err)
	}

	var src io.Reader = gz
	lr := &limitedReader{r: gz}
	if maxRatio > 0 && compressedSize > 0 {
		lr.max = compressedSize * maxRatio
		lr.enabled = true
		src = lr
	}

	return &gzipReader{path: path, f: f, gz: gz, br: bufio.NewReaderSize(src, 64*1024), limited: lr}, nil
}

// limitedReader counts bytes read through it and fails once the count
// exceeds max, when enabled.
type limitedReader struct {
	r       io.Reader
	read    int64
	max     int64
	enabled bool
}

var errDecompressionBomb = errors.New("decompressed size exceeds configured ratio of compressed size")

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if n > 0 {
		l.read += int64(n)
		if l.enabled && l.read > l.max {
			return n, errDecompressionBomb
		}
	}
	return n, err
}

func (r *gzipReader) Next() ([]byte, uint64, error) {
	if r.failed {
		return nil, 0, io.EOF
	}
	line, err := r.br.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		if err != io.EOF {
			r.failed = true
			return nil, 0, r.classifyReadError(err)
		}
		return nil, 0, io.EOF
	}
	line = stripTerminators(line)
	r.lineNo++
	if err != nil && err != io.EOF {
		r.failed = true
		return line, r.lineNo, r.classifyReadError(err)
	}
	return line, r.lineNo, nil
}

func (r *gzipReader) classifyReadError(err error) error {
	if errors.Is(err, errDecompressionBomb) {
		return errkit.NewFileError(errkit.DecompressionFailed, r.path,
			errors.New("gzip input exceeded the configured decompression ratio; aborting as a likely decompression bomb"))
	}
	return errkit.NewFileError(errkit.DecompressionFailed, r.path, err)
}

func (r *gzipReader) Close() error {
	gzErr := r.gz.Close()
	fErr := r.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// stripTerminators removes the trailing '\n' (always present from
// ReadBytes unless at EOF) and one trailing '\r', per spec.md §4.5.
func stripTerminators(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
