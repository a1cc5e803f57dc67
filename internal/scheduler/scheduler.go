package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"croner/internal/config"
	"croner/internal/eventbus"
	"croner/internal/jobs"
	logx "croner/pkg/logx"
)

// reloadErrorEvery bounds how often an unchanged reload error is logged.
// A broken file is re-parsed on every iteration until it is fixed.
const reloadErrorEvery = 30 * time.Second

type Scheduler struct {
	cache  *config.Cache
	runner Runner
	log    logx.Logger
	bus    eventbus.Bus

	now   func() time.Time
	idle  time.Duration
	nudge <-chan struct{}

	q queue

	errLimiter *rate.Limiter
	lastErr    string
}

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithNow replaces the clock. The returned times should carry a monotonic
// reading, as time.Now does, for deadlines to survive wall-clock jumps.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdleInterval sets the sleep used when no job is scheduled.
func WithIdleInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithNudge wakes the loop early whenever ch receives, so a file change
// is picked up before the current deadline.
func WithNudge(ch <-chan struct{}) Option {
	return func(s *Scheduler) { s.nudge = ch }
}

func New(cache *config.Cache, runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:      cache,
		runner:     runner,
		bus:        eventbus.Discard,
		now:        time.Now,
		idle:       config.DefaultIdleInterval,
		errLimiter: rate.NewLimiter(rate.Every(reloadErrorEvery), 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Init rebuilds the queue from the cache: one entry per job at its next
// deadline. Jobs whose schedule can never fire are left out.
func (s *Scheduler) Init() {
	s.q.Reset()
	now := s.now()
	for _, job := range s.cache.Jobs() {
		s.schedule(job, now)
	}
	s.log.Debug("queue rebuilt", logx.Int("entries", s.q.Len()))
}

func (s *Scheduler) schedule(job *jobs.Spec, now time.Time) {
	when, ok := job.Schedule.Next(now)
	if !ok {
		s.log.Warn("schedule never fires; job not queued",
			logx.String("job", job.ID), logx.String("schedule", job.ScheduleText))
		return
	}
	s.q.Push(when, job)
}

// Pending returns the queued entries in no particular order.
func (s *Scheduler) Pending() []Entry {
	out := make([]Entry, 0, s.q.Len())
	for _, e := range s.q.h {
		out = append(out, *e)
	}
	return out
}

// Run loops until ctx is done: poll the config file, fire the earliest job
// if it is due, otherwise sleep until its deadline. It always returns nil
// after cancellation; reload and spawn failures never end the loop.
func (s *Scheduler) Run(ctx context.Context, path string) error {
	s.Init()
	s.log.Info("scheduler running", logx.String("config", path), logx.Int("jobs", s.q.Len()))
	for ctx.Err() == nil {
		s.poll(path)
		if wait := s.step(s.now()); wait > 0 {
			s.sleep(ctx, wait)
		}
	}
	s.log.Info("scheduler stopped")
	return nil
}

// poll reloads the cache when the file fingerprint changed and rebuilds the
// queue after an accepted reload.
func (s *Scheduler) poll(path string) {
	before := s.cache.Jobs()
	changed, err := s.cache.ReloadIfChanged(path)
	if err != nil {
		s.reportReloadError(path, err)
		return
	}
	s.lastErr = ""
	if !changed {
		return
	}

	diff := config.DiffJobs(before, s.cache.Jobs())
	s.Init()
	s.log.Info("config reloaded",
		append([]logx.Field{logx.String("config", path), logx.Int("jobs", len(s.cache.Jobs()))}, diff.Fields()...)...)
	s.bus.Publish(eventbus.Event{
		Type: eventbus.ConfigReloaded,
		Data: eventbus.Reload{
			Path:    path,
			Jobs:    len(s.cache.Jobs()),
			Added:   diff.Added,
			Removed: diff.Removed,
			Changed: diff.Changed,
		},
	})
}

func (s *Scheduler) reportReloadError(path string, err error) {
	msg := err.Error()
	if msg == s.lastErr {
		if !s.errLimiter.Allow() {
			return
		}
	} else {
		// A different error is reported at once and restarts the window.
		s.lastErr = msg
		s.errLimiter = rate.NewLimiter(rate.Every(reloadErrorEvery), 1)
		s.errLimiter.Allow()
	}
	s.log.Warn("config reload failed; keeping previous jobs", logx.String("config", path), logx.Err(err))
	s.bus.Publish(eventbus.Event{
		Type: eventbus.ConfigRejected,
		Data: eventbus.Rejection{Path: path, Err: err},
	})
}

// step handles the earliest entry at now and returns how long to sleep
// before the next iteration (zero means loop again right away).
func (s *Scheduler) step(now time.Time) time.Duration {
	e, ok := s.q.Peek()
	if !ok {
		return s.idle
	}
	if e.When.After(now) {
		return e.When.Sub(now)
	}

	s.q.Pop()
	s.fire(e.Job)
	s.schedule(e.Job, s.now())
	return 0
}

func (s *Scheduler) fire(job *jobs.Spec) {
	runID := uuid.NewString()
	started := s.runner.Run(job, runID)
	s.log.Debug("job dispatched",
		logx.String("job", job.ID), logx.String("run_id", runID), logx.Int("started", started))
	s.bus.Publish(eventbus.Event{
		Type: eventbus.JobDispatched,
		Data: eventbus.Dispatch{JobID: job.ID, RunID: runID, Instances: started},
	})
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	case <-s.nudge:
	}
}
