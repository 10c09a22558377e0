package eval

import (
	"testing"

	"github.com/standardbeagle/logfilt/internal/expr"
)

func evalString(t *testing.T, exprStr string, caseSensitive bool, buf string) bool {
	t.Helper()
	node, err := expr.Parse(exprStr)
	if err != nil {
		t.Fatalf("Parse(%q): %v", exprStr, err)
	}
	Attach(node, caseSensitive)
	var s Scratch
	s.Reset([]byte(buf))
	return Eval(node, &s)
}

func TestEvalSimpleTerm(t *testing.T) {
	if !evalString(t, "error", true, "an error occurred") {
		t.Fatal("expected match")
	}
	if evalString(t, "error", true, "all good") {
		t.Fatal("expected no match")
	}
}

func TestEvalCaseInsensitiveASCII(t *testing.T) {
	if !evalString(t, "ERROR", false, "an Error occurred") {
		t.Fatal("expected case-insensitive match")
	}
	if evalString(t, "ERROR", true, "an Error occurred") {
		t.Fatal("expected case-sensitive mismatch")
	}
}

func TestEvalAnd(t *testing.T) {
	if evalString(t, "error AND missing", true, "error here") {
		t.Fatal("AND should require both sides")
	}
	if !evalString(t, "error AND here", true, "error here") {
		t.Fatal("expected AND match")
	}
}

func TestEvalOr(t *testing.T) {
	if !evalString(t, "error OR warning", true, "a warning was logged") {
		t.Fatal("expected OR match")
	}
	if evalString(t, "error OR warning", true, "all fine") {
		t.Fatal("expected no match")
	}
}

func TestEvalNot(t *testing.T) {
	if !evalString(t, "NOT error", true, "all fine") {
		t.Fatal("expected NOT match")
	}
	if evalString(t, "NOT error", true, "an error occurred") {
		t.Fatal("expected NOT mismatch")
	}
}

func TestEvalGrouping(t *testing.T) {
	if !evalString(t, "(error OR warning) AND critical", true, "critical warning") {
		t.Fatal("expected grouped match")
	}
}

func TestEvalUnicodeCaseFold(t *testing.T) {
	if !evalString(t, "café", false, "visiting the CAFÉ today") {
		t.Fatal("expected unicode case-fold match")
	}
}

func TestAttachSetsNegated(t *testing.T) {
	node, err := expr.Parse("NOT error AND warning")
	if err != nil {
		t.Fatal(err)
	}
	Attach(node, true)
	// root is AND; left is NOT(error), right is warning
	if !node.Left.Child.Negated {
		t.Fatal("expected Term under NOT to be marked Negated")
	}
	if node.Right.Negated {
		t.Fatal("expected Term not under NOT to not be marked Negated")
	}
}

func TestHighlightSkipsNegatedTerms(t *testing.T) {
	node, err := expr.Parse("error AND NOT debug")
	if err != nil {
		t.Fatal(err)
	}
	Attach(node, true)
	out := Highlight(node, []byte("error: debug info here"))
	want := "<<<error>>>: debug info here"
	if string(out) != want {
		t.Fatalf("Highlight = %q, want %q", out, want)
	}
}

func TestHighlightMultipleOccurrences(t *testing.T) {
	node, err := expr.Parse("error")
	if err != nil {
		t.Fatal(err)
	}
	Attach(node, true)
	out := Highlight(node, []byte("error then another error"))
	want := "<<<error>>> then another <<<error>>>"
	if string(out) != want {
		t.Fatalf("Highlight = %q, want %q", out, want)
	}
}
