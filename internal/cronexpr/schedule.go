package cronexpr

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"time"
)

// Calendar selects which fields the next-fire search consults.
type Calendar int

const (
	// CalendarStrict matches minute, hour, month and the day rule. When both
	// day-of-month and weekday are restricted either one may match, as in
	// classic cron.
	CalendarStrict Calendar = iota
	// CalendarLegacy matches minute, hour and weekday only. Day-of-month and
	// month are compiled and validated but never consulted.
	CalendarLegacy
)

func (c Calendar) String() string {
	switch c {
	case CalendarLegacy:
		return "legacy"
	default:
		return "strict"
	}
}

// ParseCalendar maps "strict" or "legacy" to a Calendar. Empty means strict.
func ParseCalendar(s string) (Calendar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return CalendarStrict, nil
	case "legacy":
		return CalendarLegacy, nil
	}
	return CalendarStrict, fmt.Errorf("unknown calendar mode %q (use strict or legacy)", s)
}

type fieldRange struct {
	name     string
	min, max uint8
}

var fields = [5]fieldRange{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day", min: 1, max: 31},
	{name: "month", min: 1, max: 12},
	{name: "weekday", min: 0, max: 6},
}


// searchHorizon bounds the next-fire search so impossible dates
// (for example February 30th) terminate.
const searchHorizon = 5 * 366 * 24 * time.Hour

// Schedule is a compiled cron expression. A set bit means the value matches.
type Schedule struct {
	Minute  uint64 // bits 0..59
	Hour    uint32 // bits 0..23
	Day     uint32 // bits 1..31
	Month   uint16 // bits 1..12
	Weekday uint8  // bits 0..6

	// A day or weekday field written starting with "*" (including "*/n")
	// does not restrict the day, as in classic cron.
	dayStar     bool
	weekdayStar bool

	calendar Calendar
	loc      *time.Location
}

// Compile parses a five-field expression into a Schedule evaluated in UTC
// with the strict calendar.
func Compile(expr string) (*Schedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(fields) {
		return nil, fmt.Errorf("%w, got: %d", ErrFieldCount, len(parts))
	}

	var masks [5]uint64
	for i, part := range parts {
		m, err := compileField(part, fields[i])
		if err != nil {
			return nil, err
		}
		masks[i] = m
	}

	return &Schedule{
		Minute:  masks[0],
		Hour:    uint32(masks[1]),
		Day:     uint32(masks[2]),
		Month:   uint16(masks[3]),
		Weekday: uint8(masks[4]),

		dayStar:     strings.HasPrefix(parts[2], "*"),
		weekdayStar: strings.HasPrefix(parts[4], "*"),
		loc:         time.UTC,
	}, nil
}

func compileField(text string, fr fieldRange) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(text, ",") {
		switch {
		case part == "*":
			mask |= spanBits(fr.min, fr.max)

		case strings.HasPrefix(part, "*/"):
			step, ok := parseUint8(part[2:])
			if !ok || step == 0 {
				return 0, &FieldError{Field: fr.name, Token: part, Err: ErrInvalidStep}
			}
			for v := uint(fr.min); v <= uint(fr.max); v += uint(step) {
				mask |= 1 << v
			}

		case strings.Contains(part, "-"):
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return 0, &FieldError{Field: fr.name, Token: part, Err: ErrInvalidRange}
			}
			a, okA := parseUint8(bounds[0])
			b, okB := parseUint8(bounds[1])
			if !okA || !okB || a > b || a < fr.min || b > fr.max {
				return 0, &FieldError{Field: fr.name, Token: part, Err: ErrInvalidRange}
			}
			mask |= spanBits(a, b)

		default:
			v, ok := parseUint8(part)
			if !ok || v < fr.min || v > fr.max {
				return 0, &FieldError{Field: fr.name, Token: part, Err: ErrInvalidValue}
			}
			mask |= 1 << v
		}
	}
	return mask, nil
}

func spanBits(lo, hi uint8) uint64 {
	var m uint64
	for v := uint(lo); v <= uint(hi); v++ {
		m |= 1 << v
	}
	return m
}

func parseUint8(s string) (uint8, bool) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(v), true
}

// Calendar reports the calendar mode used by Next.
func (s *Schedule) Calendar() Calendar { return s.calendar }

// Location reports the zone the schedule is evaluated in.
func (s *Schedule) Location() *time.Location { return s.loc }

// String renders the masks as bit counts, mostly for logs.
func (s *Schedule) String() string {
	return fmt.Sprintf("minute=%d hour=%d day=%d month=%d weekday=%d (%s, %s)",
		bits.OnesCount64(s.Minute), bits.OnesCount32(s.Hour), bits.OnesCount32(s.Day),
		bits.OnesCount16(s.Month), bits.OnesCount8(s.Weekday), s.calendar, s.loc)
}

func (s *Schedule) monthOK(t time.Time) bool {
	if s.calendar == CalendarLegacy {
		return true
	}
	return s.Month&(1<<uint(t.Month())) != 0
}

func (s *Schedule) dayOK(t time.Time) bool {
	dow := s.Weekday&(1<<uint(t.Weekday())) != 0
	if s.calendar == CalendarLegacy {
		return dow
	}
	dom := s.Day&(1<<uint(t.Day())) != 0
	if !s.dayStar && !s.weekdayStar {
		return dom || dow
	}
	return dom && dow
}

// Next returns the deadline of the first matching minute strictly after the
// minute containing now. The deadline is now plus a whole number of minutes,
// so it keeps now's monotonic clock reading. It reports false if nothing
// matches within the search horizon.
func (s *Schedule) Next(now time.Time) (time.Time, bool) {
	start := now.In(s.loc).Truncate(time.Minute)
	limit := start.Add(searchHorizon)

	t := start.Add(time.Minute)
	for t.Before(limit) {
		var next time.Time
		switch {
		case !s.monthOK(t):
			next = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, s.loc)
		case !s.dayOK(t):
			next = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.loc)
		case s.Hour&(1<<uint(t.Hour())) == 0:
			next = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, s.loc)
		case s.Minute&(1<<uint(t.Minute())) == 0:
			next = t.Add(time.Minute)
		default:
			return now.Add(t.Sub(start)), true
		}
		// DST transitions can normalize a wall-clock date backwards.
		if !next.After(t) {
			next = t.Add(time.Minute)
		}
		t = next
	}
	return time.Time{}, false
}
