package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"croner/internal/cronexpr"
)

// Settings configures the daemon itself. Jobs live in the job file; this is
// the optional YAML (or JSON) file passed with --settings.
//
// Example:
//
//	logging:
//	  level: debug
//	  file: { enabled: true, path: /var/log/croner.log }
//	scheduler:
//	  calendar: legacy
//	  timezone: Europe/Berlin
//	  watch: true
type Settings struct {
	Logging   LoggingSettings   `json:"logging"`
	Scheduler SchedulerSettings `json:"scheduler"`
	Systemd   SystemdSettings   `json:"systemd"`
	Debug     DebugSettings     `json:"debug"`
}

type LoggingSettings struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerSettings controls how schedules are evaluated and how commands
// are launched.
//
// IdleInterval is a Go duration string; it is how long the loop sleeps when
// no job is scheduled.
type SchedulerSettings struct {
	Calendar     string   `json:"calendar"`
	Timezone     string   `json:"timezone"`
	IdleInterval string   `json:"idle_interval"`
	Watch        bool     `json:"watch"`
	Shell        []string `json:"shell"`
	Reap         bool     `json:"reap"`
}

type SystemdSettings struct {
	Notify   bool `json:"notify"`
	Watchdog bool `json:"watchdog"`
}

// DebugSettings enables the local debug listener (/healthz, /status,
// /debug/pprof). Empty Addr disables it.
type DebugSettings struct {
	Addr          string `json:"addr"`
	Token         string `json:"token"`
	AllowInsecure bool   `json:"allow_insecure"`
}

const DefaultIdleInterval = time.Second

// DefaultShell is the interpreter each command line is handed to.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

func DefaultSettings() *Settings {
	return &Settings{
		Logging: LoggingSettings{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Path: "croner.log"},
		},
		Scheduler: SchedulerSettings{
			Calendar:     cronexpr.CalendarStrict.String(),
			Timezone:     "UTC",
			IdleInterval: DefaultIdleInterval.String(),
			Shell:        DefaultShell(),
			Reap:         true,
		},
		Systemd: SystemdSettings{Notify: true, Watchdog: true},
	}
}

// LoadSettings reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	jb, err := toJSON(path, b)
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := decodeStrict(jb, s); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if _, err := s.Scheduler.Parser(); err != nil {
		return err
	}
	if _, err := s.Scheduler.Idle(); err != nil {
		return err
	}
	if len(s.Scheduler.Shell) == 0 || strings.TrimSpace(s.Scheduler.Shell[0]) == "" {
		return fmt.Errorf("scheduler.shell: must name an interpreter")
	}
	return nil
}

// Parser builds the schedule parser for the configured calendar and zone.
func (s SchedulerSettings) Parser() (*cronexpr.Parser, error) {
	cal, err := cronexpr.ParseCalendar(s.Calendar)
	if err != nil {
		return nil, fmt.Errorf("scheduler.calendar: %w", err)
	}
	loc, err := loadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return cronexpr.NewParser(cronexpr.WithCalendar(cal), cronexpr.WithLocation(loc)), nil
}

func (s SchedulerSettings) Idle() (time.Duration, error) {
	return parseDuration("scheduler.idle_interval", s.IdleInterval, DefaultIdleInterval)
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "UTC", "utc":
		return time.UTC, nil
	case "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(strings.TrimSpace(name))
	}
}
