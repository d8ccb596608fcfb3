package evallang

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokSymbol
	tokInt
	tokString
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

type lexer struct {
	src []byte
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []byte(src)}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == ';':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func isSymbolByte(c byte) bool {
	switch c {
	case '(', ')', ' ', '\t', '\r', '\n', ';', '"':
		return false
	default:
		return true
	}
}

func (l *lexer) next() (token, error) {
	l.skipTrivia()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, start: start, end: start}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", start: start, end: l.pos}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", start: start, end: l.pos}, nil
	case c == '"':
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string literal at offset %d", start)
		}
		text := string(l.src[start+1 : l.pos])
		l.pos++ // consume closing quote
		return token{kind: tokString, text: text, start: start, end: l.pos}, nil
	default:
		for l.pos < len(l.src) && isSymbolByte(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		if _, err := strconv.ParseInt(text, 10, 64); err == nil {
			return token{kind: tokInt, text: text, start: start, end: l.pos}, nil
		}
		return token{kind: tokSymbol, text: text, start: start, end: l.pos}, nil
	}
}
