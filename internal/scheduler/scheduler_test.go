package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"croner/internal/config"
	"croner/internal/eventbus"
	"croner/internal/jobs"
)

type recordRunner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordRunner) Run(job *jobs.Spec, _ string) int {
	r.mu.Lock()
	r.ids = append(r.ids, job.ID)
	r.mu.Unlock()
	return len(job.Expand())
}

func (r *recordRunner) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func writeConfig(t *testing.T, path, body string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func loadedCache(t *testing.T, path string) *config.Cache {
	t.Helper()
	c := config.NewCache(nil)
	if _, err := c.ReloadIfChanged(path); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	return c
}

var fileTime = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

func TestStepFiresDueJobsInOrder(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, `
[job:hourly]
schedule = 0 * * * *
command = echo hourly

[job:minutely]
schedule = * * * * *
command = echo minutely
`, fileTime)

	clock := &fakeClock{t: time.Date(2026, 3, 15, 11, 58, 0, 0, time.UTC)}
	runner := &recordRunner{}
	s := New(loadedCache(t, p), runner, WithNow(clock.now))
	s.Init()

	if got := len(s.Pending()); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	// Nothing is due yet; the loop should sleep until 11:59.
	if wait := s.step(clock.now()); wait != time.Minute {
		t.Fatalf("wait = %v, want 1m", wait)
	}

	clock.advance(time.Minute) // 11:59
	if wait := s.step(clock.now()); wait != 0 {
		t.Fatalf("due step returned wait %v", wait)
	}
	clock.advance(time.Minute) // 12:00: both due, hourly has the older entry
	for len(runner.fired()) < 3 && s.step(clock.now()) == 0 {
	}
	want := []string{"minutely", "hourly", "minutely"}
	got := runner.fired()
	if len(got) != len(want) {
		t.Fatalf("fired = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fired = %v, want %v", got, want)
		}
	}

	// Each fired job is back in the queue at its next deadline.
	for _, e := range s.Pending() {
		if !e.When.After(clock.now()) {
			t.Fatalf("%s requeued at %v, not after %v", e.Job.ID, e.When, clock.now())
		}
	}
}

func TestStepIdleWhenEmpty(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, "# nothing yet\n", fileTime)

	s := New(loadedCache(t, p), &recordRunner{}, WithIdleInterval(250*time.Millisecond))
	s.Init()
	if wait := s.step(time.Now()); wait != 250*time.Millisecond {
		t.Fatalf("idle wait = %v", wait)
	}
}

func TestUnsatisfiableScheduleIsNotQueued(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, "[job:never]\nschedule = 0 0 30 2 *\ncommand = echo\n", fileTime)

	s := New(loadedCache(t, p), &recordRunner{})
	s.Init()
	if n := len(s.Pending()); n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}
}

func TestPollReloadsAndRejects(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, "[job:a]\nschedule = * * * * *\ncommand = echo a\n", fileTime)

	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	s := New(loadedCache(t, p), &recordRunner{}, WithBus(bus))
	s.Init()

	// Unchanged file: nothing happens.
	s.poll(p)
	select {
	case e := <-events:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}

	writeConfig(t, p, "[job:b]\nschedule = * * * * *\ncommand = echo b\n", fileTime.Add(time.Minute))
	s.poll(p)
	e := <-events
	r, ok := e.Data.(eventbus.Reload)
	if e.Type != eventbus.ConfigReloaded || !ok {
		t.Fatalf("event = %+v", e)
	}
	if len(r.Added) != 1 || r.Added[0] != "b" || len(r.Removed) != 1 || r.Removed[0] != "a" {
		t.Fatalf("reload diff = %+v", r)
	}
	if pend := s.Pending(); len(pend) != 1 || pend[0].Job.ID != "b" {
		t.Fatalf("queue not rebuilt: %+v", pend)
	}

	writeConfig(t, p, "[job:b]\nschedule = * * * * *\n", fileTime.Add(2*time.Minute))
	s.poll(p)
	if e := <-events; e.Type != eventbus.ConfigRejected {
		t.Fatalf("event = %s, want %s", e.Type, eventbus.ConfigRejected)
	}
	// The same error on the next iteration is rate limited.
	s.poll(p)
	select {
	case e := <-events:
		t.Fatalf("repeated error published again: %s", e.Type)
	default:
	}
	if pend := s.Pending(); len(pend) != 1 || pend[0].Job.ID != "b" {
		t.Fatalf("failed reload disturbed the queue: %+v", pend)
	}
}

func TestRunDispatchesAndStops(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, "[job:tick]\nschedule = @every 1s\ncommand = echo tick\n", fileTime)

	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	runner := &recordRunner{}
	s := New(loadedCache(t, p), runner, WithBus(bus))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, p) }()

	select {
	case e := <-events:
		d, ok := e.Data.(eventbus.Dispatch)
		if e.Type != eventbus.JobDispatched || !ok || d.JobID != "tick" || d.RunID == "" || d.Instances != 1 {
			t.Fatalf("event = %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("job never dispatched")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestRunWakesOnNudge(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "config.croner")
	writeConfig(t, p, "[job:later]\nschedule = 0 0 1 1 *\ncommand = echo\n", fileTime)

	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	nudge := make(chan struct{}, 1)
	s := New(loadedCache(t, p), &recordRunner{}, WithBus(bus), WithNudge(nudge))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx, p) }()

	// The only job is months away; without the nudge the loop would sleep.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, p, "[job:later]\nschedule = 0 0 1 1 *\ncommand = echo changed\n", fileTime.Add(time.Hour))
	nudge <- struct{}{}

	select {
	case e := <-events:
		if e.Type != eventbus.ConfigReloaded {
			t.Fatalf("event = %s", e.Type)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("reload not picked up after nudge")
	}
}
