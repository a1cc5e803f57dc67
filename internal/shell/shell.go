// Package shell splits command strings into argument vectors using
// POSIX-flavoured quoting, and joins them back into a single shell line.
package shell

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrDanglingEscape    = errors.New("dangling backslash at end of input")
	ErrUnterminatedQuote = errors.New("unclosed quote")
	ErrInvalidUTF8       = errors.New("invalid utf-8 in token")
)

// Split converts s into an argument vector.
//
// Outside quotes a backslash escapes the next byte and unescaped whitespace
// ends a token. Single quotes are fully literal. Inside double quotes a
// backslash escapes the next byte. Escapes translate n, t and r; any other
// byte is taken verbatim.
func Split(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	b := []byte(s)
	if !hasQuoteOrEscape(b) && !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}
	if isSingleToken(b) {
		return []string{s}, nil
	}
	if !hasQuoteOrEscape(b) {
		return splitWhitespace(s), nil
	}
	return splitFull(b)
}

// SplitOrEmpty is Split with every failure mapped to an empty result.
func SplitOrEmpty(s string) []string {
	args, err := Split(s)
	if err != nil {
		return nil
	}
	return args
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', 0x0B, 0x0C:
		return true
	}
	return false
}

func isQuoteOrEscape(c byte) bool { return c == '\'' || c == '"' || c == '\\' }

func isSingleToken(b []byte) bool {
	for _, c := range b {
		if isSpace(c) || isQuoteOrEscape(c) {
			return false
		}
	}
	return true
}

func hasQuoteOrEscape(b []byte) bool {
	for _, c := range b {
		if isQuoteOrEscape(c) {
			return true
		}
	}
	return false
}

func splitWhitespace(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r < utf8.RuneSelf && isSpace(byte(r))
	})
}

// estimateTokens counts whitespace → non-whitespace transitions.
func estimateTokens(b []byte) int {
	n := 0
	inSpace := true
	for _, c := range b {
		sp := isSpace(c)
		if inSpace && !sp {
			n++
		}
		inSpace = sp
	}
	return max(n, 1)
}
