// Package jobs holds the immutable job definitions produced by a config load
// and their expansion into concrete instances at firing time.
package jobs

import (
	"strconv"

	"croner/internal/cronexpr"
)

// PlanKind selects how a job fans out.
type PlanKind int

const (
	PlanNone PlanKind = iota
	PlanReplicate
	PlanExplicit
)

func (k PlanKind) String() string {
	switch k {
	case PlanReplicate:
		return "replicate"
	case PlanExplicit:
		return "explicit"
	default:
		return "none"
	}
}

// Plan is a fanout plan, computed once at load time.
//
// For PlanReplicate, Count instances share the base argv. For PlanExplicit,
// Argvs holds one complete argv (base command plus the entry's tokens) per
// instance.
type Plan struct {
	Kind  PlanKind
	Count int
	Argvs [][]string
}

func NoFanout() Plan { return Plan{Kind: PlanNone} }

func Replicate(n int) Plan { return Plan{Kind: PlanReplicate, Count: n} }

// Explicit builds a plan whose entries are appended to base.
func Explicit(base []string, extras [][]string) Plan {
	argvs := make([][]string, len(extras))
	for i, extra := range extras {
		argv := make([]string, 0, len(base)+len(extra))
		argv = append(argv, base...)
		argv = append(argv, extra...)
		argvs[i] = argv
	}
	return Plan{Kind: PlanExplicit, Argvs: argvs}
}

// Size is the number of instances the plan expands to.
func (p Plan) Size() int {
	switch p.Kind {
	case PlanReplicate:
		return p.Count
	case PlanExplicit:
		return len(p.Argvs)
	default:
		return 1
	}
}

// Spec is one job definition. It is never mutated after a load, so the
// scheduler heap and in-flight runs share it by pointer.
type Spec struct {
	ID           string
	ScheduleText string
	Schedule     cronexpr.Expression
	Argv         []string
	Fanout       Plan

	// Line is the 1-based line of the [job:<id>] header.
	Line int
}

// Instance is one resolved invocation of a Spec.
type Instance struct {
	ID   string
	Argv []string
}

// Expand resolves the fanout plan into instances. Replicated instances
// share the base argv slice; callers must not modify it.
func (s *Spec) Expand() []Instance {
	if s.Fanout.Kind == PlanNone {
		return []Instance{{ID: s.ID, Argv: s.Argv}}
	}
	out := make([]Instance, s.Fanout.Size())
	for i := range out {
		argv := s.Argv
		if s.Fanout.Kind == PlanExplicit {
			argv = s.Fanout.Argvs[i]
		}
		out[i] = Instance{ID: instanceID(s.ID, i), Argv: argv}
	}
	return out
}

func instanceID(id string, i int) string {
	return id + "-" + strconv.Itoa(i)
}
