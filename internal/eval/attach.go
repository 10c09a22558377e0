package eval

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/standardbeagle/logfilt/internal/types"
)

var foldTransformer = cases.Lower(language.Und)

// foldString applies Unicode simple case-folding, the same
// cases.Lower(language.Und) transform the evaluator uses on record
// buffers, so a Term's precomputed Folded field compares equal to what the
// evaluator produces from a haystack at match time.
func foldString(s string) string {
	return foldTransformer.String(s)
}

// isASCII reports whether s contains only ASCII bytes — Term nodes with an
// ASCII-only literal can skip the Unicode fold path entirely and fall back
// to a byte-for-byte case-insensitive comparison, satisfying spec.md
// §4.3's "ASCII-fast path required".
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Attach walks a parsed AST once, fixing each Term's case-folding mode at
// "AST-attachment time" per spec.md §4.3: every Term node gets a
// precomputed Folded needle (if caseSensitive is false), an ASCIIOnly
// flag, and a Negated flag set by counting enclosing Not ancestors. The
// evaluator never mutates these fields at evaluation time.
func Attach(root *types.Node, caseSensitive bool) *types.Node {
	attach(root, caseSensitive, false)
	return root
}

func attach(n *types.Node, caseSensitive bool, negated bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case types.NodeTerm:
		n.CaseFold = !caseSensitive
		n.ASCIIOnly = isASCII(n.Literal)
		if n.CaseFold {
			n.Folded = foldString(n.Literal)
		}
		n.Negated = negated
	case types.NodeNot:
		attach(n.Child, caseSensitive, !negated)
	case types.NodeAnd, types.NodeOr:
		attach(n.Left, caseSensitive, negated)
		attach(n.Right, caseSensitive, negated)
	}
}
