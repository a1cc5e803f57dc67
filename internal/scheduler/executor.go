package scheduler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"croner/internal/config"
	"croner/internal/eventbus"
	"croner/internal/jobs"
	"croner/internal/palette"
	"croner/internal/printer"
	"croner/internal/runtime/supervisor"
	logx "croner/pkg/logx"
)

// maxLineBytes bounds a single relayed output line.
const maxLineBytes = 1 << 20

// Runner starts every instance of a fired job. The scheduler does not wait
// for the instances to finish.
type Runner interface {
	Run(job *jobs.Spec, runID string) (started int)
}

// Executor launches job instances through the host shell and relays their
// stdout and stderr line by line to the printer, prefixed with the instance
// id in the job's color.
type Executor struct {
	shell   []string
	printer *printer.Printer
	colors  *palette.Picker
	sup     *supervisor.Supervisor
	log     logx.Logger
	bus     eventbus.Bus
	reap    bool
}

type ExecutorOption func(*Executor)

// WithShell sets the interpreter argv; the joined command line is appended
// as its last argument.
func WithShell(argv ...string) ExecutorOption {
	return func(e *Executor) {
		if len(argv) > 0 {
			e.shell = append([]string(nil), argv...)
		}
	}
}

func WithPrinter(p *printer.Printer) ExecutorOption {
	return func(e *Executor) { e.printer = p }
}

func WithPalette(p *palette.Picker) ExecutorOption {
	return func(e *Executor) { e.colors = p }
}

func WithExecLogger(log logx.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

func WithExecBus(bus eventbus.Bus) ExecutorOption {
	return func(e *Executor) { e.bus = bus }
}

// WithReap controls whether exited children are waited for. Without it the
// relays still drain output but the child is never collected.
func WithReap(enabled bool) ExecutorOption {
	return func(e *Executor) { e.reap = enabled }
}

// NewExecutor returns an executor whose relay goroutines run under sup.
func NewExecutor(sup *supervisor.Supervisor, opts ...ExecutorOption) *Executor {
	e := &Executor{
		shell: config.DefaultShell(),
		sup:   sup,
		reap:  true,
		bus:   eventbus.Discard,
	}
	for _, o := range opts {
		o(e)
	}
	if e.printer == nil {
		e.printer = printer.New(true, nil)
	}
	if e.colors == nil {
		e.colors = palette.New()
	}
	if e.log.IsZero() {
		e.log = logx.Nop()
	}
	return e
}

// Run expands job and starts each instance. A start failure is reported
// on the printer and the bus; the remaining instances still start.
func (e *Executor) Run(job *jobs.Spec, runID string) int {
	key := palette.Key(job.ID)
	started := 0
	for _, inst := range job.Expand() {
		prefix := e.colors.Prefix(key, inst.ID)
		if err := e.start(inst, prefix); err != nil {
			e.printer.Println(fmt.Sprintf("%s failed to start: %v", prefix, err))
			e.log.Debug("spawn failed",
				logx.String("instance", inst.ID), logx.String("run_id", runID), logx.Err(err))
			e.bus.Publish(eventbus.Event{
				Type: eventbus.SpawnFailed,
				Data: eventbus.SpawnFailure{InstanceID: inst.ID, RunID: runID, Err: err},
			})
			continue
		}
		started++
	}
	return started
}

func (e *Executor) command(argv []string) *exec.Cmd {
	line := joinCommand(argv)
	args := make([]string, 0, len(e.shell))
	args = append(args, e.shell[1:]...)
	args = append(args, line)
	cmd := exec.Command(e.shell[0], args...)
	prepareCommand(cmd, e.shell, line)
	return cmd
}

func (e *Executor) start(inst jobs.Instance, prefix string) error {
	if len(inst.Argv) == 0 {
		return errors.New("empty command")
	}
	cmd := e.command(inst.Argv)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	e.log.Trace("instance started", logx.String("instance", inst.ID), logx.Int("pid", cmd.Process.Pid))

	var relays sync.WaitGroup
	relays.Add(2)
	e.sup.Go0(inst.ID+"/stdout", func(context.Context) {
		defer relays.Done()
		e.relay(inst.ID, prefix, stdout)
	})
	e.sup.Go0(inst.ID+"/stderr", func(context.Context) {
		defer relays.Done()
		e.relay(inst.ID, prefix, stderr)
	})

	if e.reap {
		// Wait closes the pipes, so it must follow the last read.
		e.sup.Go0(inst.ID+"/wait", func(context.Context) {
			relays.Wait()
			err := cmd.Wait()
			var exitErr *exec.ExitError
			switch {
			case err == nil:
				e.log.Debug("instance exited", logx.String("instance", inst.ID))
			case errors.As(err, &exitErr):
				e.log.Debug("instance exited",
					logx.String("instance", inst.ID), logx.Int("code", exitErr.ExitCode()))
			default:
				e.log.Warn("instance wait failed", logx.String("instance", inst.ID), logx.Err(err))
			}
		})
	}
	return nil
}

// relay prints r line by line until EOF. An over-long line ends the line
// relay but the rest of the stream is still drained so the child never
// blocks on a full pipe.
func (e *Executor) relay(id, prefix string, r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for sc.Scan() {
		e.printer.Println(prefix + " " + sc.Text())
	}
	if err := sc.Err(); err != nil {
		e.log.Warn("output relay stopped", logx.String("instance", id), logx.Err(err))
		_, _ = io.Copy(io.Discard, r)
	}
}
