// Package systemd speaks the sd_notify protocol for units of Type=notify.
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "croner/pkg/logx"
)

type Notifier struct {
	enabled  bool
	watchdog bool
	log      logx.Logger

	send            func(state string) (bool, error)
	watchdogEnabled func() (time.Duration, error)
}

type Option func(*Notifier)

// WithSender replaces daemon.SdNotify; tests record states with it.
func WithSender(send func(state string) (bool, error)) Option {
	return func(n *Notifier) {
		if send != nil {
			n.send = send
		}
	}
}

// WithWatchdogTimeout replaces the WATCHDOG_USEC lookup.
func WithWatchdogTimeout(fn func() (time.Duration, error)) Option {
	return func(n *Notifier) {
		if fn != nil {
			n.watchdogEnabled = fn
		}
	}
}

func New(enabled, watchdog bool, log logx.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		enabled:  enabled,
		watchdog: watchdog,
		log:      log,
		send: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
		watchdogEnabled: func() (time.Duration, error) {
			return daemon.SdWatchdogEnabled(false)
		},
	}
	for _, o := range opts {
		o(n)
	}
	if n.log.IsZero() {
		n.log = logx.Nop()
	}
	return n
}

func (n *Notifier) notify(state string) {
	if n == nil || !n.enabled {
		return
	}
	sent, err := n.send(state)
	switch {
	case err != nil:
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case sent:
		n.log.Trace("sd_notify", logx.String("state", state))
	}
}

func (n *Notifier) Ready()    { n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.notify(daemon.SdNotifyStopping) }

// Reloaded reports a reload that has already been applied, so the manager
// sees RELOADING=1 immediately followed by READY=1.
func (n *Notifier) Reloaded() {
	n.notify(daemon.SdNotifyReloading)
	n.notify(daemon.SdNotifyReady)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) {
	n.notify("STATUS=" + fmt.Sprintf(format, args...))
}

// WatchdogInterval is how often to ping: half the unit's WatchdogSec, or
// zero when the watchdog is off or disabled in settings.
func (n *Notifier) WatchdogInterval() time.Duration {
	if n == nil || !n.enabled || !n.watchdog {
		return 0
	}
	timeout, err := n.watchdogEnabled()
	if err != nil {
		n.log.Warn("watchdog lookup failed", logx.Err(err))
		return 0
	}
	return timeout / 2
}

// Watchdog pings every interval until ctx is done.
func (n *Notifier) Watchdog(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	n.log.Debug("watchdog enabled", logx.Duration("every", every))
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.notify(daemon.SdNotifyWatchdog)
		}
	}
}
