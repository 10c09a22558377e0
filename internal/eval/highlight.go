package eval

import (
	"strings"

	"github.com/standardbeagle/logfilt/internal/types"
)

const (
	highlightOpen  = "<<<"
	highlightClose = ">>>"
)

// Highlight wraps every literal substring occurrence of a non-negated Term
// in content with <<<…>>>, per spec.md §6's highlight option. Occurrences
// inside a negated sub-expression's Term nodes are never wrapped (DESIGN.md
// Open Question 1). Matching follows the same case-folding rules Eval uses
// for each Term.
func Highlight(root *types.Node, content []byte) []byte {
	var spans []span
	collectSpans(root, content, &spans)
	if len(spans) == 0 {
		return content
	}
	spans = mergeSpans(spans)
	return applySpans(content, spans)
}

type span struct {
	start, end int
}

func collectSpans(n *types.Node, content []byte, spans *[]span) {
	if n == nil {
		return
	}
	switch n.Kind {
	case types.NodeTerm:
		if n.Negated {
			return
		}
		*spans = append(*spans, findOccurrences(n, content)...)
	case types.NodeNot:
		collectSpans(n.Child, content, spans)
	case types.NodeAnd, types.NodeOr:
		collectSpans(n.Left, content, spans)
		collectSpans(n.Right, content, spans)
	}
}

func findOccurrences(n *types.Node, content []byte) []span {
	var out []span
	if !n.CaseFold {
		needle := []byte(n.Literal)
		if len(needle) == 0 {
			return out
		}
		start := 0
		for {
			idx := indexBytes(content[start:], needle)
			if idx < 0 {
				break
			}
			abs := start + idx
			out = append(out, span{abs, abs + len(needle)})
			start = abs + len(needle)
		}
		return out
	}

	if n.ASCIIOnly {
		needle := n.Folded
		if len(needle) == 0 {
			return out
		}
		for i := 0; i+len(needle) <= len(content); i++ {
			match := true
			for j := 0; j < len(needle); j++ {
				if asciiLower(content[i+j]) != needle[j] {
					match = false
					break
				}
			}
			if match {
				out = append(out, span{i, i + len(needle)})
			}
		}
		return out
	}

	// Unicode path: fold the whole buffer once and search within it. Byte
	// offsets in the folded string only line up with the original when the
	// fold is length-preserving, which cases.Lower is for the overwhelming
	// majority of text; where it is not, span offsets can be misplaced.
	folded := foldString(string(content))
	needle := n.Folded
	if len(needle) == 0 {
		return out
	}
	start := 0
	for {
		idx := strings.Index(folded[start:], needle)
		if idx < 0 {
			break
		}
		abs := start + idx
		if abs+len(needle) <= len(content) {
			out = append(out, span{abs, abs + len(needle)})
		}
		start = abs + len(needle)
	}
	return out
}

func indexBytes(haystack, needle []byte) int {
	return strings.Index(string(haystack), string(needle))
}

// mergeSpans sorts and merges overlapping/adjacent spans so overlapping
// term matches don't produce nested or doubled markers.
func mergeSpans(spans []span) []span {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1].start > spans[j].start; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func applySpans(content []byte, spans []span) []byte {
	var sb strings.Builder
	sb.Grow(len(content) + len(spans)*(len(highlightOpen)+len(highlightClose)))
	prev := 0
	for _, s := range spans {
		sb.Write(content[prev:s.start])
		sb.WriteString(highlightOpen)
		sb.Write(content[s.start:s.end])
		sb.WriteString(highlightClose)
		prev = s.end
	}
	sb.Write(content[prev:])
	return []byte(sb.String())
}
