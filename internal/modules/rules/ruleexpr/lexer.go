// Package ruleexpr implements the restricted filter-expression sublanguage
// rule authors use. Expressions are parsed into an AST and evaluated
// in-process against one joined holding row at a time; user text never
// reaches the data store.
//
// Supported: =, !=, <>, <, <=, >, >=, IN/NOT IN, LIKE/NOT LIKE (% and _
// wildcards), AND/OR/NOT, parentheses, integer/decimal literals,
// single-quoted string literals, and column references from the closed
// schema in schema.go. A leading WHERE is stripped; the empty expression is
// the constant true.
package ruleexpr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp     // = != <> < <= > >=
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
	tokNot
	tokIn
	tokLike
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError reports a lexing or parsing failure with its position.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
}

func syntaxErrorf(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// lex tokenises the expression. Semicolons are rejected outright.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == ';':
			return nil, syntaxErrorf(i, "semicolons are not allowed")

		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++

		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++

		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++

		case c == '=':
			tokens = append(tokens, token{tokOp, "=", i})
			i++

		case c == '!':
			if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokOp, "!=", i})
				i += 2
			} else {
				return nil, syntaxErrorf(i, "unexpected character %q", c)
			}

		case c == '<':
			if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokOp, "<=", i})
				i += 2
			} else if i+1 < n && input[i+1] == '>' {
				tokens = append(tokens, token{tokOp, "!=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokOp, "<", i})
				i++
			}

		case c == '>':
			if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokOp, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokOp, ">", i})
				i++
			}

		case c == '\'':
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				if input[i] == '\'' {
					// Doubled quote is an escaped quote
					if i+1 < n && input[i+1] == '\'' {
						sb.WriteByte('\'')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, syntaxErrorf(start, "unterminated string literal")
			}
			tokens = append(tokens, token{tokString, sb.String(), start})

		case c >= '0' && c <= '9':
			start := i
			sawDot := false
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				if input[i] == '.' {
					if sawDot {
						return nil, syntaxErrorf(i, "malformed number")
					}
					sawDot = true
				}
				i++
			}
			tokens = append(tokens, token{tokNumber, input[start:i], start})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{tokAnd, word, start})
			case "OR":
				tokens = append(tokens, token{tokOr, word, start})
			case "NOT":
				tokens = append(tokens, token{tokNot, word, start})
			case "IN":
				tokens = append(tokens, token{tokIn, word, start})
			case "LIKE":
				tokens = append(tokens, token{tokLike, word, start})
			default:
				tokens = append(tokens, token{tokIdent, word, start})
			}

		default:
			return nil, syntaxErrorf(i, "unexpected character %q", c)
		}
	}

	tokens = append(tokens, token{tokEOF, "", n})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}
