package app

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"croner/internal/config"
	"croner/internal/eventbus"
	"croner/internal/observability/debughttp"
	"croner/internal/palette"
	"croner/internal/printer"
	"croner/internal/runtime/supervisor"
	"croner/internal/scheduler"
	logx "croner/pkg/logx"
	"croner/pkg/systemd"
)

// shutdownGrace bounds how long Run waits for output relays after the
// scheduler stopped. Children are never killed; only their relays are
// waited for.
const shutdownGrace = 2 * time.Second

// LoadError reports that the job file could not be loaded at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load " + e.Path + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

type Options struct {
	ConfigPath   string
	SettingsPath string

	// Print enables job output and console diagnostics.
	Print bool
	// LogLevel overrides logging.level from the settings file when set.
	LogLevel string

	// Stdout receives job output; nil means os.Stdout.
	Stdout io.Writer
	// Palette overrides color detection for job prefixes.
	Palette []palette.Option
	// Systemd replaces the sd_notify transport, mostly for tests.
	Systemd []systemd.Option
}

type App struct {
	opts     Options
	settings *config.Settings

	logs *logx.Service
	log  logx.Logger
	bus  eventbus.Bus

	cache   *config.Cache
	printer *printer.Printer
	sd      *systemd.Notifier
	stats   *tracker
}

// New reads settings, starts logging and loads the job file. Any error here
// means the daemon must not start.
func New(opts Options) (*App, error) {
	settings, err := config.LoadSettings(opts.SettingsPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		settings.Logging.Level = opts.LogLevel
	}

	logs, log := logx.New(logx.Config{
		Level:   settings.Logging.Level,
		Console: settings.Logging.Console && opts.Print,
		File: logx.FileConfig{
			Enabled: settings.Logging.File.Enabled,
			Path:    settings.Logging.File.Path,
		},
	})

	parser, err := settings.Scheduler.Parser()
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	cache := config.NewCache(config.NewLoader(parser))
	if _, err := cache.ReloadIfChanged(opts.ConfigPath); err != nil {
		_ = logs.Close()
		return nil, &LoadError{Path: opts.ConfigPath, Err: err}
	}

	a := &App{
		opts:     opts,
		settings: settings,
		logs:     logs,
		log:      log.With(logx.String("comp", "app")),
		bus:      eventbus.New(),
		cache:    cache,
		printer:  printer.New(opts.Print, opts.Stdout),
		stats:    newTracker(opts.ConfigPath, len(cache.Jobs())),
	}
	a.sd = systemd.New(settings.Systemd.Notify, settings.Systemd.Watchdog,
		log.With(logx.String("comp", "systemd")), opts.Systemd...)
	a.log.Info("config loaded",
		logx.String("path", opts.ConfigPath),
		logx.Int("jobs", len(cache.Jobs())),
		logx.String("calendar", settings.Scheduler.Calendar),
		logx.String("timezone", settings.Scheduler.Timezone))
	return a, nil
}

func (a *App) Settings() *config.Settings { return a.settings }

func (a *App) Bus() eventbus.Bus { return a.bus }

// Status reports counters gathered from the event bus since startup.
func (a *App) Status() Status { return a.stats.snapshot() }

// Run schedules jobs until ctx is done. The scheduler loop, the optional
// file watcher, the event consumer and the systemd watchdog run in one
// errgroup and the first failing member stops the rest. Output relays and
// the debug listener live on the supervisor.
func (a *App) Run(ctx context.Context) error {
	root := a.logs.Logger()
	sup := supervisor.New(ctx, supervisor.WithLogger(root.With(logx.String("comp", "supervisor"))))
	a.stats.attach(sup)

	exec := scheduler.NewExecutor(sup,
		scheduler.WithShell(a.settings.Scheduler.Shell...),
		scheduler.WithPrinter(a.printer),
		scheduler.WithPalette(palette.New(a.opts.Palette...)),
		scheduler.WithExecLogger(root.With(logx.String("comp", "executor"))),
		scheduler.WithExecBus(a.bus),
		scheduler.WithReap(a.settings.Scheduler.Reap),
	)

	idle, err := a.settings.Scheduler.Idle()
	if err != nil {
		return err
	}
	schedOpts := []scheduler.Option{
		scheduler.WithLogger(root.With(logx.String("comp", "scheduler"))),
		scheduler.WithBus(a.bus),
		scheduler.WithIdleInterval(idle),
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.settings.Scheduler.Watch {
		w := config.NewWatcher(a.opts.ConfigPath, root.With(logx.String("comp", "watcher")))
		schedOpts = append(schedOpts, scheduler.WithNudge(w.C()))
		g.Go(func() error { return w.Run(gctx) })
	}

	events, unsub := a.bus.Subscribe(128)
	g.Go(func() error {
		defer unsub()
		a.consume(gctx, events)
		return nil
	})

	if every := a.sd.WatchdogInterval(); every > 0 {
		g.Go(func() error {
			a.sd.Watchdog(gctx, every)
			return nil
		})
	}

	dbg := debughttp.Config{
		Addr:          a.settings.Debug.Addr,
		Token:         a.settings.Debug.Token,
		AllowInsecure: a.settings.Debug.AllowInsecure,
	}
	if dbg.Enabled() {
		srv := debughttp.New(dbg, root.With(logx.String("comp", "debug")), func() any { return a.Status() })
		sup.GoRestart("debug.http", srv.Run,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
			supervisor.WithMaxRestarts(10))
	}

	a.sd.Status("%d jobs", len(a.cache.Jobs()))
	a.sd.Ready()

	sched := scheduler.New(a.cache, exec, schedOpts...)
	g.Go(func() error { return sched.Run(gctx, a.opts.ConfigPath) })
	err = g.Wait()

	a.sd.Stopping()
	a.log.Info("stopping")
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if werr := sup.Stop(waitCtx); werr != nil {
		c := sup.Counters()
		a.log.Warn("supervised goroutines did not stop cleanly", logx.Err(werr), logx.Int64("active", c.Active))
	}
	a.log.Info("stopped",
		logx.Uint64("goroutines", sup.Counters().Started),
		logx.Uint64("events_dropped", eventbus.Dropped(a.bus)))
	return err
}

// consume turns bus events into log lines and systemd reload notices.
func (a *App) consume(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.stats.observe(e)
			switch d := e.Data.(type) {
			case eventbus.Reload:
				a.sd.Status("%d jobs", d.Jobs)
				a.sd.Reloaded()
			case eventbus.SpawnFailure:
				a.log.Warn("instance failed to start",
					logx.String("instance", d.InstanceID), logx.String("run_id", d.RunID), logx.Err(d.Err))
			case eventbus.Dispatch:
				a.log.Trace("event", logx.String("type", e.Type), logx.String("job", d.JobID))
			default:
				a.log.Trace("event", logx.String("type", e.Type))
			}
		}
	}
}

// Close flushes and closes the log sinks.
func (a *App) Close() error {
	if a == nil || a.logs == nil {
		return nil
	}
	return a.logs.Close()
}
