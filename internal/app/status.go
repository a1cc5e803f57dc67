package app

import (
	"sync"
	"time"

	"croner/internal/eventbus"
	"croner/internal/runtime/supervisor"
)

// Status is the snapshot served on the debug listener's /status.
type Status struct {
	StartedAt     time.Time           `json:"started_at"`
	ConfigPath    string              `json:"config_path"`
	Jobs          int                 `json:"jobs"`
	Dispatched    uint64              `json:"dispatched"`
	SpawnFailures uint64              `json:"spawn_failures"`
	Reloads       uint64              `json:"reloads"`
	Rejected      uint64              `json:"rejected"`
	LastReload    *time.Time          `json:"last_reload,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	Supervisor    supervisor.Snapshot `json:"supervisor"`
}

// tracker folds bus events into a Status.
type tracker struct {
	mu  sync.Mutex
	st  Status
	sup *supervisor.Supervisor
}

func newTracker(path string, jobs int) *tracker {
	return &tracker{st: Status{StartedAt: time.Now(), ConfigPath: path, Jobs: jobs}}
}

func (t *tracker) attach(sup *supervisor.Supervisor) {
	t.mu.Lock()
	t.sup = sup
	t.mu.Unlock()
}

func (t *tracker) observe(e eventbus.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch d := e.Data.(type) {
	case eventbus.Dispatch:
		t.st.Dispatched++
	case eventbus.SpawnFailure:
		t.st.SpawnFailures++
	case eventbus.Reload:
		t.st.Reloads++
		t.st.Jobs = d.Jobs
		at := e.Time
		t.st.LastReload = &at
		t.st.LastError = ""
	case eventbus.Rejection:
		t.st.Rejected++
		if d.Err != nil {
			t.st.LastError = d.Err.Error()
		}
	}
}

func (t *tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.st
	st.Supervisor = t.sup.Snapshot()
	return st
}
