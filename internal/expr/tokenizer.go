// Package expr tokenizes and parses logfilt's boolean search expressions
// into an internal/types.Node AST: bare words AND/OR/NOT, parentheses for
// grouping, and everything else a literal term, combined with the usual
// short-circuiting boolean semantics.
package expr

import (
	"strings"
	"unicode"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/types"
)

// Tokenize converts an expression string into a token sequence terminated
// by an EOF token.
func Tokenize(src string) ([]types.Token, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errkit.NewParseError(errkit.EmptyExpression, -1, "expression is empty")
	}

	var toks []types.Token
	runes := []rune(src)
	i := 0
	n := len(runes)

	byteOffset := func(runeIdx int) int {
		return len(string(runes[:runeIdx]))
	}

	for i < n {
		c := runes[i]

		if unicode.IsSpace(c) {
			i++
			continue
		}

		switch c {
		case '(':
			toks = append(toks, types.Token{Kind: types.TokenLParen, Lexeme: "(", Position: byteOffset(i)})
			i++
			continue
		case ')':
			toks = append(toks, types.Token{Kind: types.TokenRParen, Lexeme: ")", Position: byteOffset(i)})
			i++
			continue
		case '"':
			start := i
			pos := byteOffset(i)
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				ch := runes[i]
				if ch == '\\' && i+1 < n && (runes[i+1] == '"' || runes[i+1] == '\\') {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if ch == '"' {
					closed = true
					i++
					break
				}
				sb.WriteRune(ch)
				i++
			}
			if !closed {
				return nil, errkit.NewParseError(errkit.UnterminatedString, pos, "unterminated quoted string starting here")
			}
			_ = start
			toks = append(toks, types.Token{Kind: types.TokenTerm, Lexeme: sb.String(), Position: pos})
			continue
		}

		// Maximal run of non-whitespace, non-paren, non-quote characters.
		start := i
		pos := byteOffset(i)
		for i < n && !unicode.IsSpace(runes[i]) && runes[i] != '(' && runes[i] != ')' && runes[i] != '"' {
			i++
		}
		word := string(runes[start:i])

		switch strings.ToUpper(word) {
		case "AND":
			toks = append(toks, types.Token{Kind: types.TokenAnd, Lexeme: word, Position: pos})
		case "OR":
			toks = append(toks, types.Token{Kind: types.TokenOr, Lexeme: word, Position: pos})
		case "NOT":
			toks = append(toks, types.Token{Kind: types.TokenNot, Lexeme: word, Position: pos})
		default:
			toks = append(toks, types.Token{Kind: types.TokenTerm, Lexeme: word, Position: pos})
		}
	}

	toks = append(toks, types.Token{Kind: types.TokenEOF, Lexeme: "", Position: byteOffset(n)})
	return toks, nil
}
