package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"croner/internal/cronexpr"
	"croner/internal/jobs"
	"croner/internal/shell"
)

// MaxFanout caps `fanout = N` so a typo cannot spawn an unbounded number of
// processes per firing.
const MaxFanout = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads job files. The zero value is not usable; see NewLoader.
type Loader struct {
	parser *cronexpr.Parser
}

// NewLoader returns a Loader compiling schedules with p. Nil uses the
// default parser (strict calendar, UTC).
func NewLoader(p *cronexpr.Parser) *Loader {
	if p == nil {
		p = cronexpr.NewParser()
	}
	return &Loader{parser: p}
}

// Load reads and parses the job file at path with the default parser.
func Load(path string) ([]*jobs.Spec, error) {
	return NewLoader(nil).Load(path)
}

func (l *Loader) Load(path string) ([]*jobs.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.Parse(data)
}

// section accumulates one [job:<id>] block until it is closed.
type section struct {
	id        string
	line      int
	schedule  *string
	command   *string
	fanoutN   *int
	fanoutArg []string
}

// Parse turns the job file contents into validated specs. It either returns
// every job or an error; never a partial list.
func (l *Loader) Parse(data []byte) ([]*jobs.Spec, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var (
		out    []*jobs.Spec
		seen   = map[string]struct{}{}
		cur    *section
		lineno int
	)

	closeSection := func() error {
		if cur == nil {
			return nil
		}
		spec, err := l.finalize(cur)
		if err != nil {
			return err
		}
		if _, dup := seen[spec.ID]; dup {
			return &ParseError{Line: cur.line, JobID: spec.ID, Err: ErrDuplicateJobID}
		}
		seen[spec.ID] = struct{}{}
		out = append(out, spec)
		cur = nil
		return nil
	}

	for len(data) > 0 {
		lineno++

		var raw []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			raw, data = data[:i], data[i+1:]
		} else {
			raw, data = data, nil
		}
		raw = bytes.TrimSuffix(raw, []byte{'\r'})

		if i := bytes.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		line := trimASCII(raw)
		if len(line) == 0 {
			continue
		}
		if !utf8.Valid(line) {
			return nil, &ParseError{Line: lineno, Err: ErrInvalidUTF8}
		}

		if id, ok := sectionHeader(line); ok {
			if err := closeSection(); err != nil {
				return nil, err
			}
			cur = &section{id: id, line: lineno}
			continue
		}

		key, value, ok := keyValue(line)
		if !ok {
			return nil, &ParseError{Line: lineno, Err: ErrExpectedKeyValue}
		}
		if cur == nil {
			return nil, &ParseError{Line: lineno, Err: ErrKeyOutsideSection}
		}
		if err := cur.set(key, value); err != nil {
			return nil, &ParseError{Line: lineno, JobID: cur.id, Err: err}
		}
	}

	if err := closeSection(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *section) set(key, value string) error {
	switch key {
	case "schedule":
		if s.schedule != nil {
			return fmt.Errorf("%w `schedule`", ErrDuplicateKey)
		}
		s.schedule = &value

	case "command":
		if s.command != nil {
			return fmt.Errorf("%w `command`", ErrDuplicateKey)
		}
		if value == "" {
			return fmt.Errorf("command %w", ErrEmptyValue)
		}
		s.command = &value

	case "fanout":
		if len(s.fanoutArg) > 0 {
			return fmt.Errorf("%w: `fanout` conflicts with `fanout[]`", ErrFanoutConflict)
		}
		if s.fanoutN != nil {
			return fmt.Errorf("%w `fanout`", ErrDuplicateKey)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return ErrFanoutNotInteger
		}
		if n > MaxFanout {
			return fmt.Errorf("%w: %d > %d", ErrFanoutTooLarge, n, MaxFanout)
		}
		v := int(n)
		s.fanoutN = &v

	case "fanout[]":
		if s.fanoutN != nil {
			return fmt.Errorf("%w: `fanout[]` conflicts with `fanout`", ErrFanoutConflict)
		}
		if value == "" {
			return fmt.Errorf("fanout[] value %w", ErrEmptyValue)
		}
		s.fanoutArg = append(s.fanoutArg, value)

	default:
		return fmt.Errorf("%w %s", ErrUnknownKey, key)
	}
	return nil
}

// finalize compiles the schedule and tokenizes the command and fanout
// entries. Errors point at the section header.
func (l *Loader) finalize(s *section) (*jobs.Spec, error) {
	fail := func(err error) error {
		return &ParseError{Line: s.line, JobID: s.id, Err: err}
	}

	if s.schedule == nil {
		return nil, fail(ErrMissingSchedule)
	}
	sched, err := l.parser.Parse(*s.schedule)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %w", ErrInvalidSchedule, err))
	}

	if s.command == nil {
		return nil, fail(ErrMissingCommand)
	}
	argv, err := shell.Split(*s.command)
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %w", ErrInvalidCommand, err))
	}
	if len(argv) == 0 {
		return nil, fail(fmt.Errorf("%w: command has no arguments", ErrInvalidCommand))
	}

	plan := jobs.NoFanout()
	switch {
	case s.fanoutN != nil:
		plan = jobs.Replicate(*s.fanoutN)
	case len(s.fanoutArg) > 0:
		extras := make([][]string, len(s.fanoutArg))
		for i, arg := range s.fanoutArg {
			toks, err := shell.Split(arg)
			if err != nil {
				return nil, fail(fmt.Errorf("%w: fanout[] #%d: %w", ErrInvalidCommand, i, err))
			}
			extras[i] = toks
		}
		plan = jobs.Explicit(argv, extras)
	}

	return &jobs.Spec{
		ID:           s.id,
		ScheduleText: *s.schedule,
		Schedule:     sched,
		Argv:         argv,
		Fanout:       plan,
		Line:         s.line,
	}, nil
}

func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', 0x0B, 0x0C:
		return true
	}
	return false
}

func trimASCII(b []byte) []byte {
	for len(b) > 0 && isASCIISpace(b[0]) {
		b = b[1:]
	}
	for len(b) > 0 && isASCIISpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

// sectionHeader accepts exactly "[job:<id>]" with a non-blank id.
func sectionHeader(line []byte) (string, bool) {
	if len(line) < len("[job:x]") || !bytes.HasPrefix(line, []byte("[job:")) || line[len(line)-1] != ']' {
		return "", false
	}
	id := trimASCII(line[len("[job:") : len(line)-1])
	if len(id) == 0 {
		return "", false
	}
	return string(id), true
}

func keyValue(line []byte) (string, string, bool) {
	k, v, ok := bytes.Cut(line, []byte{'='})
	if !ok {
		return "", "", false
	}
	return string(trimASCII(k)), string(trimASCII(v)), true
}
