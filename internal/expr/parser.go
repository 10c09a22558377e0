package expr

import (
	"fmt"

	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/types"
)

// parser is a recursive-descent parser over the fixed grammar:
//
//	expression := or_expr
//	or_expr    := and_expr ( OR and_expr )*
//	and_expr   := not_expr ( AND not_expr )*
//	not_expr   := NOT not_expr | primary
//	primary    := TERM | LPAREN expression RPAREN
//
// AND/OR are left-associative, NOT is right-associative; precedence
// lowest-to-highest is OR < AND < NOT < grouping.
type parser struct {
	toks []types.Token
	pos  int
}

// Parse tokenizes and parses src into a single root AST node.
func Parse(src string) (*types.Node, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current().Kind != types.TokenEOF {
		t := p.current()
		if t.Kind == types.TokenRParen {
			return nil, errkit.NewParseError(errkit.UnbalancedParen, t.Position,
				"unexpected closing parenthesis")
		}
		return nil, errkit.NewParseError(errkit.UnexpectedToken, t.Position,
			fmt.Sprintf("unexpected trailing input %q after complete expression", t.Lexeme))
	}
	return node, nil
}

func (p *parser) current() types.Token {
	return p.toks[p.pos]
}

func (p *parser) advance() types.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) parseExpression() (*types.Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (*types.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == types.TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &types.Node{Kind: types.NodeOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*types.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Kind == types.TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &types.Node{Kind: types.NodeAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (*types.Node, error) {
	if p.current().Kind == types.TokenNot {
		p.advance()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &types.Node{Kind: types.NodeNot, Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*types.Node, error) {
	t := p.current()
	switch t.Kind {
	case types.TokenTerm:
		p.advance()
		return &types.Node{Kind: types.NodeTerm, Literal: t.Lexeme}, nil
	case types.TokenLParen:
		p.advance()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Kind != types.TokenRParen {
			return nil, errkit.NewParseError(errkit.UnbalancedParen, p.current().Position,
				"expected closing parenthesis")
		}
		p.advance()
		return node, nil
	case types.TokenRParen:
		return nil, errkit.NewParseError(errkit.UnbalancedParen, t.Position,
			"unexpected closing parenthesis")
	case types.TokenEOF:
		return nil, errkit.NewParseError(errkit.UnexpectedToken, t.Position,
			"expected a term, NOT, or '(' but found end of expression")
	default:
		return nil, errkit.NewParseError(errkit.UnexpectedToken, t.Position,
			fmt.Sprintf("unexpected token %q", t.Lexeme))
	}
}
