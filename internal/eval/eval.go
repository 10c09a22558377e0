package eval

import (
	"bytes"
	"strings"

	"github.com/standardbeagle/logfilt/internal/types"
)

// Scratch is per-worker evaluation state: the current record's buffer plus
// a lazily-computed, cached case-folded view of it. Owned exclusively by
// one worker goroutine — never shared — so Eval itself needs no locking.
type Scratch struct {
	buf        []byte
	foldedOnce bool
	folded     string
}

// Reset points the scratch at a new record's content. Must be called
// before evaluating any Term against a new buffer.
func (s *Scratch) Reset(buf []byte) {
	s.buf = buf
	s.foldedOnce = false
	s.folded = ""
}

// foldedHaystack computes and caches the Unicode case-folded form of the
// current buffer on first use, per spec.md §4.3: "folds lazily... when and
// only when the first case-folded Term is evaluated against that record."
func (s *Scratch) foldedHaystack() string {
	if !s.foldedOnce {
		s.folded = foldString(string(s.buf))
		s.foldedOnce = true
	}
	return s.folded
}

// Eval evaluates node against the buffer currently loaded into scratch.
// And/Or short-circuit: the right operand is not evaluated once the
// result is already determined.
func Eval(node *types.Node, scratch *Scratch) bool {
	switch node.Kind {
	case types.NodeTerm:
		return evalTerm(node, scratch)
	case types.NodeNot:
		return !Eval(node.Child, scratch)
	case types.NodeAnd:
		return Eval(node.Left, scratch) && Eval(node.Right, scratch)
	case types.NodeOr:
		return Eval(node.Left, scratch) || Eval(node.Right, scratch)
	default:
		return false
	}
}

func evalTerm(node *types.Node, scratch *Scratch) bool {
	if !node.CaseFold {
		return bytes.Contains(scratch.buf, []byte(node.Literal))
	}
	if node.ASCIIOnly {
		// Fast path: the needle is pure ASCII, so matching can be done by
		// comparing raw haystack bytes case-insensitively without ever
		// materializing a folded copy of the whole record.
		return containsASCIIFold(scratch.buf, node.Folded)
	}
	return strings.Contains(scratch.foldedHaystack(), node.Folded)
}

// containsASCIIFold reports whether haystack contains needleLower as an
// ASCII case-insensitive substring. needleLower must already be lowercased
// (node.Folded, for an ASCII-only term, is exactly this).
func containsASCIIFold(haystack []byte, needleLower string) bool {
	nl := len(needleLower)
	if nl == 0 {
		return true
	}
	hl := len(haystack)
	for i := 0; i+nl <= hl; i++ {
		match := true
		for j := 0; j < nl; j++ {
			if asciiLower(haystack[i+j]) != needleLower[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
