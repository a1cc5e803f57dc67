package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"croner/internal/cronexpr"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Parallel()

	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !s.Logging.Console || s.Logging.Level != "info" {
		t.Fatalf("logging defaults = %+v", s.Logging)
	}
	if !s.Scheduler.Reap || s.Scheduler.Watch {
		t.Fatalf("scheduler defaults = %+v", s.Scheduler)
	}
	if d, err := s.Scheduler.Idle(); err != nil || d != time.Second {
		t.Fatalf("Idle = %v, %v", d, err)
	}
	if len(s.Scheduler.Shell) != 2 {
		t.Fatalf("shell = %q", s.Scheduler.Shell)
	}
}

func TestLoadSettingsYAML(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "croner.yaml")
	writeFile(t, p, `
logging:
  level: debug
  file:
    enabled: true
    path: /tmp/croner.log
scheduler:
  calendar: legacy
  timezone: UTC
  idle_interval: 250ms
  watch: true
systemd:
  watchdog: false
debug:
  addr: 127.0.0.1:6060
`)

	s, err := LoadSettings(p)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Logging.Level != "debug" || !s.Logging.File.Enabled {
		t.Fatalf("logging = %+v", s.Logging)
	}
	// Omitted keys keep their defaults.
	if !s.Logging.Console || !s.Scheduler.Reap || !s.Systemd.Notify {
		t.Fatalf("defaults lost: %+v", s)
	}
	if s.Systemd.Watchdog {
		t.Fatalf("watchdog should be off")
	}
	if s.Debug.Addr != "127.0.0.1:6060" || s.Debug.Token != "" {
		t.Fatalf("debug = %+v", s.Debug)
	}
	if d, _ := s.Scheduler.Idle(); d != 250*time.Millisecond {
		t.Fatalf("Idle = %v", d)
	}

	p2, err := s.Scheduler.Parser()
	if err != nil {
		t.Fatalf("Parser: %v", err)
	}
	expr, err := p2.Parse("* * * * *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sched, ok := expr.(*cronexpr.Schedule); !ok || sched.Calendar() != cronexpr.CalendarLegacy {
		t.Fatalf("expected legacy schedule, got %T", expr)
	}
}

func TestLoadSettingsJSON(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "croner.json")
	writeFile(t, p, `{"scheduler": {"shell": ["bash", "-c"]}}`)

	s, err := LoadSettings(p)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if strings.Join(s.Scheduler.Shell, " ") != "bash -c" {
		t.Fatalf("shell = %q", s.Scheduler.Shell)
	}
}

func TestLoadSettingsRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, body, want string
	}{
		{"unknown field", "scheduler:\n  workers: 4\n", "unknown field"},
		{"bad calendar", "scheduler:\n  calendar: lunar\n", "scheduler.calendar"},
		{"bad timezone", "scheduler:\n  timezone: Mars/Olympus\n", "scheduler.timezone"},
		{"bad duration", "scheduler:\n  idle_interval: soon\n", "scheduler.idle_interval"},
		{"negative duration", "scheduler:\n  idle_interval: -1s\n", "must be >= 0"},
		{"empty shell", "scheduler:\n  shell: []\n", "scheduler.shell"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "s.yaml")
			writeFile(t, p, tc.body)
			_, err := LoadSettings(p)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadSettingsEmptyFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, p, "")
	if _, err := LoadSettings(p); err != nil {
		t.Fatalf("empty settings file should be accepted: %v", err)
	}
}
