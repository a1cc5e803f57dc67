package systemd

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	logx "croner/pkg/logx"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) send(state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

func TestNotifierStates(t *testing.T) {
	rec := &recorder{}
	n := New(true, true, logx.Nop(), WithSender(rec.send))
	n.Ready()
	n.Reloaded()
	n.Status("%d jobs", 3)
	n.Stopping()

	want := []string{"READY=1", "RELOADING=1", "READY=1", "STATUS=3 jobs", "STOPPING=1"}
	if got := rec.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("states = %q, want %q", got, want)
	}
}

func TestNotifierDisabled(t *testing.T) {
	rec := &recorder{}
	n := New(false, true, logx.Nop(), WithSender(rec.send),
		WithWatchdogTimeout(func() (time.Duration, error) { return time.Second, nil }))
	n.Ready()
	n.Stopping()
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("disabled notifier sent %q", got)
	}
	if got := n.WatchdogInterval(); got != 0 {
		t.Fatalf("WatchdogInterval = %v, want 0", got)
	}

	var nilN *Notifier
	nilN.Ready()
}

func TestWatchdogInterval(t *testing.T) {
	cases := []struct {
		name     string
		watchdog bool
		timeout  time.Duration
		err      error
		want     time.Duration
	}{
		{name: "half of timeout", watchdog: true, timeout: 10 * time.Second, want: 5 * time.Second},
		{name: "not under watchdog", watchdog: true, timeout: 0, want: 0},
		{name: "disabled in settings", watchdog: false, timeout: 10 * time.Second, want: 0},
		{name: "lookup error", watchdog: true, err: errors.New("bad WATCHDOG_USEC"), want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := New(true, tc.watchdog, logx.Nop(),
				WithSender(func(string) (bool, error) { return false, nil }),
				WithWatchdogTimeout(func() (time.Duration, error) { return tc.timeout, tc.err }))
			if got := n.WatchdogInterval(); got != tc.want {
				t.Fatalf("WatchdogInterval = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWatchdogPings(t *testing.T) {
	rec := &recorder{}
	n := New(true, true, logx.Nop(), WithSender(rec.send))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Watchdog(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.snapshot()) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	got := rec.snapshot()
	if len(got) < 2 {
		t.Fatalf("pings = %d, want at least 2", len(got))
	}
	for _, s := range got {
		if s != "WATCHDOG=1" {
			t.Fatalf("unexpected state %q", s)
		}
	}
}
