package shell

import "unicode/utf8"

type lexState uint8

const (
	stateUnquoted lexState = iota
	stateSingle
	stateDouble
	stateEscaping
)

// lexer is the general tokenizer. Each state has its own step function;
// escaping remembers which state it returns to.
type lexer struct {
	state  lexState
	resume lexState

	buf  []byte
	args []string
	err  error
}

func splitFull(input []byte) ([]string, error) {
	lx := &lexer{
		buf:  make([]byte, 0, len(input)),
		args: make([]string, 0, estimateTokens(input)),
	}
	for _, c := range input {
		switch lx.state {
		case stateUnquoted:
			lx.unquoted(c)
		case stateSingle:
			lx.single(c)
		case stateDouble:
			lx.double(c)
		case stateEscaping:
			lx.escaping(c)
		}
		if lx.err != nil {
			return nil, lx.err
		}
	}

	switch lx.state {
	case stateEscaping:
		return nil, ErrDanglingEscape
	case stateSingle, stateDouble:
		return nil, ErrUnterminatedQuote
	}
	if lx.emit(); lx.err != nil {
		return nil, lx.err
	}
	return lx.args, nil
}

func (lx *lexer) unquoted(c byte) {
	switch {
	case c == '\\':
		lx.resume = stateUnquoted
		lx.state = stateEscaping
	case c == '\'':
		lx.state = stateSingle
	case c == '"':
		lx.state = stateDouble
	case isSpace(c):
		lx.emit()
	default:
		lx.buf = append(lx.buf, c)
	}
}

func (lx *lexer) single(c byte) {
	if c == '\'' {
		lx.state = stateUnquoted
		return
	}
	lx.buf = append(lx.buf, c)
}

func (lx *lexer) double(c byte) {
	switch c {
	case '"':
		lx.state = stateUnquoted
	case '\\':
		lx.resume = stateDouble
		lx.state = stateEscaping
	default:
		lx.buf = append(lx.buf, c)
	}
}

func (lx *lexer) escaping(c byte) {
	lx.buf = append(lx.buf, unescape(c))
	lx.state = lx.resume
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	}
	return c
}

// emit flushes the pending token. Runs of whitespace produce nothing.
func (lx *lexer) emit() {
	if len(lx.buf) == 0 {
		return
	}
	if !utf8.Valid(lx.buf) {
		lx.err = ErrInvalidUTF8
		return
	}
	lx.args = append(lx.args, string(lx.buf))
	lx.buf = lx.buf[:0]
}
