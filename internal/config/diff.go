package config

import (
	"slices"
	"sort"

	"croner/internal/jobs"
	logx "croner/pkg/logx"
)

// JobSetChange summarizes how an accepted reload differs from the previous
// job set. Ids are sorted.
type JobSetChange struct {
	Added   []string
	Removed []string
	Changed []string
}

func (c JobSetChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Fields renders the change as log fields. Ids are only listed at small
// sizes so a large reload does not produce an unreadable line.
func (c JobSetChange) Fields() []logx.Field {
	const maxListed = 16
	attrs := []logx.Field{
		logx.Int("jobs.added", len(c.Added)),
		logx.Int("jobs.removed", len(c.Removed)),
		logx.Int("jobs.changed", len(c.Changed)),
	}
	if n := len(c.Added) + len(c.Removed) + len(c.Changed); n > 0 && n <= maxListed {
		if len(c.Added) > 0 {
			attrs = append(attrs, logx.Any("added", c.Added))
		}
		if len(c.Removed) > 0 {
			attrs = append(attrs, logx.Any("removed", c.Removed))
		}
		if len(c.Changed) > 0 {
			attrs = append(attrs, logx.Any("changed", c.Changed))
		}
	}
	return attrs
}

// DiffJobs compares two job sets by id. A job counts as changed when its
// schedule text, argv or fanout plan differs.
func DiffJobs(oldSet, newSet []*jobs.Spec) JobSetChange {
	oldByID := make(map[string]*jobs.Spec, len(oldSet))
	for _, s := range oldSet {
		oldByID[s.ID] = s
	}

	var c JobSetChange
	seen := make(map[string]struct{}, len(newSet))
	for _, n := range newSet {
		seen[n.ID] = struct{}{}
		o, ok := oldByID[n.ID]
		if !ok {
			c.Added = append(c.Added, n.ID)
			continue
		}
		if !sameJob(o, n) {
			c.Changed = append(c.Changed, n.ID)
		}
	}
	for id := range oldByID {
		if _, ok := seen[id]; !ok {
			c.Removed = append(c.Removed, id)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}

func sameJob(a, b *jobs.Spec) bool {
	if a.ScheduleText != b.ScheduleText || !slices.Equal(a.Argv, b.Argv) {
		return false
	}
	if a.Fanout.Kind != b.Fanout.Kind || a.Fanout.Count != b.Fanout.Count {
		return false
	}
	return slices.EqualFunc(a.Fanout.Argvs, b.Fanout.Argvs, func(x, y []string) bool {
		return slices.Equal(x, y)
	})
}
