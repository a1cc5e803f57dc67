package config

import (
	"strings"
	"testing"
)

func TestDiffJobs(t *testing.T) {
	t.Parallel()

	l := NewLoader(nil)
	oldSet, err := l.Parse([]byte(`
[job:keep]
schedule = * * * * *
command = echo keep

[job:edit]
schedule = 0 * * * *
command = echo edit
fanout = 2

[job:drop]
schedule = * * * * *
command = echo drop
`))
	if err != nil {
		t.Fatalf("parse old: %v", err)
	}
	newSet, err := l.Parse([]byte(`
[job:keep]
schedule = * * * * *
command = echo keep

[job:edit]
schedule = 0 * * * *
command = echo edit
fanout = 3

[job:add]
schedule = * * * * *
command = echo add
`))
	if err != nil {
		t.Fatalf("parse new: %v", err)
	}

	c := DiffJobs(oldSet, newSet)
	got := strings.Join(c.Added, ",") + "|" + strings.Join(c.Removed, ",") + "|" + strings.Join(c.Changed, ",")
	if got != "add|drop|edit" {
		t.Fatalf("diff = %q", got)
	}
	if c.Empty() {
		t.Fatalf("diff should not be empty")
	}
	if len(c.Fields()) != 6 {
		t.Fatalf("fields = %d, want 6", len(c.Fields()))
	}

	if !DiffJobs(newSet, newSet).Empty() {
		t.Fatalf("identical sets should produce an empty diff")
	}
}

func TestDiffJobsExplicitFanout(t *testing.T) {
	t.Parallel()

	l := NewLoader(nil)
	a, _ := l.Parse([]byte("[job:x]\nschedule = * * * * *\ncommand = run\nfanout[] = --a\n"))
	b, _ := l.Parse([]byte("[job:x]\nschedule = * * * * *\ncommand = run\nfanout[] = --b\n"))
	if c := DiffJobs(a, b); len(c.Changed) != 1 {
		t.Fatalf("changed = %v", c.Changed)
	}
}
