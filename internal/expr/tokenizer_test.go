package expr

import (
	"errors"
	"testing"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/types"
)

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize(`error AND NOT debug`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []types.TokenKind{types.TokenTerm, types.TokenAnd, types.TokenNot, types.TokenTerm, types.TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestTokenizeCaseInsensitiveOperators(t *testing.T) {
	toks, err := Tokenize(`a and b or not c`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	kinds := make([]types.TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	want := []types.TokenKind{
		types.TokenTerm, types.TokenAnd, types.TokenTerm, types.TokenOr,
		types.TokenNot, types.TokenTerm, types.TokenEOF,
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestTokenizeQuotedString(t *testing.T) {
	toks, err := Tokenize(`"hello \"world\"" AND x`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != types.TokenTerm || toks[0].Lexeme != `hello "world"` {
		t.Fatalf("toks[0] = %+v, want unescaped quoted term", toks[0])
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	var pe *errkit.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Kind != errkit.UnterminatedString {
		t.Fatalf("Kind = %v, want UnterminatedString", pe.Kind)
	}
}

func TestTokenizeEmptyExpression(t *testing.T) {
	_, err := Tokenize(`   `)
	var pe *errkit.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Kind != errkit.EmptyExpression {
		t.Fatalf("Kind = %v, want EmptyExpression", pe.Kind)
	}
}

func TestTokenizeParens(t *testing.T) {
	toks, err := Tokenize(`(a OR b) AND c`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []types.TokenKind{
		types.TokenLParen, types.TokenTerm, types.TokenOr, types.TokenTerm,
		types.TokenRParen, types.TokenAnd, types.TokenTerm, types.TokenEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestTokenizeBareOperatorAliasesAreTerms(t *testing.T) {
	// && || ! are not operators in this grammar (see DESIGN.md Open Question 2).
	toks, err := Tokenize(`a && b`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[1].Kind != types.TokenTerm || toks[1].Lexeme != "&&" {
		t.Fatalf("toks[1] = %+v, want TERM \"&&\"", toks[1])
	}
}
