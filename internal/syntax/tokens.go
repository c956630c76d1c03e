// Package syntax parses the one-line instruction and expression notation
// used in program definitions, e.g. "cond (bit(q[0])) x q[1]" or
// "set r[0] = r[0] + 1", into IR statements and expressions.
package syntax

import (
	"fmt"
	"unicode"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
)

// Error is a syntax or type error in a statement or expression.
type Error struct {
	Source string
	Pos    int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.Msg, e.Pos, e.Source)
}

// Unwrap classifies syntax errors as user errors.
func (e *Error) Unwrap() error { return errs.ErrUser }

type tokenKind int

const (
	tokWord   tokenKind = iota // identifier or keyword
	tokOp                      // operators and '='
	tokNumber                  // 42
	tokBool                    // true | false
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	val  string
	pos  int
}

// twoCharOps are matched before single-character operators.
var twoCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true,
	"&&": true, "||": true, "^^": true,
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		ch := src[i]
		if unicode.IsSpace(rune(ch)) {
			i++
			continue
		}
		switch ch {
		case '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
			continue
		case '[':
			tokens = append(tokens, token{tokLBracket, "[", i})
			i++
			continue
		case ']':
			tokens = append(tokens, token{tokRBracket, "]", i})
			i++
			continue
		case ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
			continue
		}
		if i+1 < len(src) && twoCharOps[src[i:i+2]] {
			tokens = append(tokens, token{tokOp, src[i : i+2], i})
			i += 2
			continue
		}
		if ch == '=' || ch == '!' || ch == '<' || ch == '>' ||
			ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '%' {
			tokens = append(tokens, token{tokOp, string(ch), i})
			i++
			continue
		}
		if unicode.IsDigit(rune(ch)) {
			j := i
			for j < len(src) && unicode.IsDigit(rune(src[j])) {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j], i})
			i = j
			continue
		}
		if unicode.IsLetter(rune(ch)) || ch == '_' {
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			if word == "true" || word == "false" {
				tokens = append(tokens, token{tokBool, word, i})
			} else {
				tokens = append(tokens, token{tokWord, word, i})
			}
			i = j
			continue
		}
		return nil, &Error{Source: src, Pos: i, Msg: fmt.Sprintf("unexpected character %q", ch)}
	}
	tokens = append(tokens, token{tokEOF, "", len(src)})
	return tokens, nil
}
