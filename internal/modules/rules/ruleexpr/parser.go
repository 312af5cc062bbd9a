package ruleexpr

import (
	"strconv"
	"strings"
)

// Parse parses a filter expression into an AST. An optional leading WHERE
// is stripped; an empty (or all-whitespace) expression parses to the
// constant true.
func Parse(input string) (Expr, error) {
	trimmed := strings.TrimSpace(input)
	if upper := strings.ToUpper(trimmed); strings.HasPrefix(upper, "WHERE ") {
		trimmed = strings.TrimSpace(trimmed[len("WHERE "):])
	} else if upper == "WHERE" {
		trimmed = ""
	}
	if trimmed == "" {
		return &TrueExpr{}, nil
	}

	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxErrorf(tok.pos, "unexpected %q", tok.text)
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, syntaxErrorf(tok.pos, "expected %s, got %q", what, tok.text)
	}
	return tok, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return p.parsePredicate()
}

// parsePredicate parses an operand optionally followed by a comparison,
// IN list, or LIKE pattern. A bare operand is legal only when it already
// evaluates to a boolean (a parenthesised sub-expression).
func (p *parser) parsePredicate() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	switch tok := p.peek(); tok.kind {
	case tokOp:
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &CompareExpr{Op: tok.text, Left: left, Right: right}, nil

	case tokIn:
		p.next()
		return p.parseInList(left, false)

	case tokLike:
		p.next()
		pattern, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Operand: left, Pattern: pattern}, nil

	case tokNot:
		// NOT IN / NOT LIKE
		p.next()
		switch after := p.next(); after.kind {
		case tokIn:
			return p.parseInList(left, true)
		case tokLike:
			pattern, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &LikeExpr{Operand: left, Pattern: pattern, Negated: true}, nil
		default:
			return nil, syntaxErrorf(after.pos, "expected IN or LIKE after NOT, got %q", after.text)
		}
	}

	return left, nil
}

func (p *parser) parseInList(operand Expr, negated bool) (Expr, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}

	var list []Expr
	for {
		item, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		list = append(list, item)

		tok := p.next()
		if tok.kind == tokComma {
			continue
		}
		if tok.kind == tokRParen {
			break
		}
		return nil, syntaxErrorf(tok.pos, "expected , or ) in IN list, got %q", tok.text)
	}

	return &InExpr{Operand: operand, List: list, Negated: negated}, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		value, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxErrorf(tok.pos, "malformed number %q", tok.text)
		}
		return &NumberLit{Value: value}, nil

	case tokString:
		return &StringLit{Value: tok.text}, nil

	case tokIdent:
		name, ok := resolveColumn(strings.ToLower(tok.text))
		if !ok {
			return nil, syntaxErrorf(tok.pos, "unknown column %q", tok.text)
		}
		return &ColumnRef{Name: name}, nil

	case tokLParen:
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, syntaxErrorf(tok.pos, "unexpected %q", tok.text)
	}
}
