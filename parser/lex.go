package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokString
	tokPunct
	tokLoad
)

type token struct {
	kind tokKind
	text string
	// pos and end are byte offsets into the file text.
	pos, end int
}

var keywords = map[string]bool{
	"module":   true,
	"function": true,
	"event":    true,
	"hook":     true,
	"local":    true,
	"if":       true,
	"else":     true,
	"while":    true,
	"break":    true,
	"return":   true,
	"when":     true,
	"print":    true,
}

// twoCharPuncts are matched before single characters.
var twoCharPuncts = []string{"&&", "||", "==", "!=", "<=", ">="}

const oneCharPuncts = "(){},;=+-*/%<>!"

// lex splits text into tokens.
// On failure it returns the offset of the bad character
// and a description of what was wanted there.
func lex(text string) ([]token, int, string) {
	var toks []token
	i := 0
	for i < len(text) {
		r, w := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r == '#':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case isIdentStart(r):
			start := i
			for i < len(text) {
				r, w := utf8.DecodeRuneInString(text[i:])
				if isIdentStart(r) || unicode.IsDigit(r) {
					i += w
					continue
				}
				if r == ':' && i+1 < len(text) && text[i+1] == ':' {
					i += 2
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokIdent, text: text[start:i], pos: start, end: i})
		case r >= '0' && r <= '9':
			start := i
			for i < len(text) && text[i] >= '0' && text[i] <= '9' {
				i++
			}
			toks = append(toks, token{kind: tokInt, text: text[start:i], pos: start, end: i})
		case r == '"':
			start := i
			i++
			for i < len(text) && text[i] != '"' && text[i] != '\n' {
				i++
			}
			if i >= len(text) || text[i] != '"' {
				return nil, i, `"\""`
			}
			i++
			toks = append(toks, token{kind: tokString, text: text[start+1 : i-1], pos: start, end: i})
		case r == '@':
			start := i
			i++
			for i < len(text) && isIdentStart(rune(text[i])) {
				i++
			}
			if text[start:i] != "@load" {
				return nil, start, `"@load"`
			}
			toks = append(toks, token{kind: tokLoad, text: "@load", pos: start, end: i})
		default:
			matched := false
			for _, p := range twoCharPuncts {
				if len(text)-i >= 2 && text[i:i+2] == p {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i, end: i + 2})
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if r < utf8.RuneSelf && strings.IndexByte(oneCharPuncts, byte(r)) >= 0 {
				toks = append(toks, token{kind: tokPunct, text: text[i : i+1], pos: i, end: i + 1})
				i++
				continue
			}
			return nil, i, "token"
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(text), end: len(text)})
	return toks, -1, ""
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
