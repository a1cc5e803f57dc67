package cronexpr

import (
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Expression is anything that can produce the next deadline after now.
type Expression interface {
	Next(now time.Time) (time.Time, bool)
}

// descriptorParser only ever sees strings starting with "@".
var descriptorParser = robfig.NewParser(robfig.Descriptor)

// Parser compiles schedule text with a fixed calendar mode and zone.
type Parser struct {
	calendar Calendar
	loc      *time.Location
}

type ParserOption func(*Parser)

func WithCalendar(c Calendar) ParserOption {
	return func(p *Parser) { p.calendar = c }
}

// WithLocation sets the zone schedules are evaluated in. Nil means UTC.
func WithLocation(loc *time.Location) ParserOption {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{calendar: CalendarStrict, loc: time.UTC}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse compiles expr. Five-field expressions become a *Schedule,
// "@" descriptors are delegated to robfig/cron.
func (p *Parser) Parse(expr string) (Expression, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "@") {
		sched, err := descriptorParser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("descriptor %q: %w", expr, err)
		}
		return &Descriptor{text: expr, sched: sched, loc: p.loc}, nil
	}

	s, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	s.calendar = p.calendar
	s.loc = p.loc
	return s, nil
}

// Descriptor adapts a robfig/cron schedule to Expression. Descriptors parse
// with time.Local, which robfig treats as "use the zone of the time passed
// to Next", so evaluating in loc only needs a conversion.
type Descriptor struct {
	text  string
	sched robfig.Schedule
	loc   *time.Location
}

func (d *Descriptor) String() string { return d.text }

func (d *Descriptor) Next(now time.Time) (time.Time, bool) {
	next := d.sched.Next(now.In(d.loc))
	if next.IsZero() || !next.After(now) {
		return time.Time{}, false
	}
	return now.Add(next.Sub(now)), true
}
