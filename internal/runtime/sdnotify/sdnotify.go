// Package sdnotify reports service state to systemd. Every call is a no-op
// when the process was not started by systemd with NOTIFY_SOCKET set.
package sdnotify

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "hwbot/pkg/logx"
)

// Notifier sends sd_notify datagrams.
type Notifier struct {
	log      logx.Logger
	interval time.Duration
}

func New(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := &Notifier{log: log}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.interval = d
	}
	return n
}

// WatchdogInterval is the WatchdogSec of the unit, or 0 when disabled.
func (n *Notifier) WatchdogInterval() time.Duration { return n.interval }

func (n *Notifier) Ready() { n.send(daemon.SdNotifyReady) }

func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Reloading marks a config reload in progress; call Ready when it is done.
func (n *Notifier) Reloading() { n.send(daemon.SdNotifyReloading) }

// Watchdog pings the service manager when the unit enables a watchdog.
func (n *Notifier) Watchdog() {
	if n.interval > 0 {
		n.send(daemon.SdNotifyWatchdog)
	}
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }

// KeepAlive pings the watchdog at half its interval until ctx is done.
// Pings are withheld while alive reports false, so systemd restarts a
// process whose work is stuck. A nil alive always pings.
func (n *Notifier) KeepAlive(ctx context.Context, alive func() bool) {
	if n.interval <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(n.interval / 2)
	defer t.Stop()
	withheld := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if alive != nil && !alive() {
				if !withheld {
					n.log.Warn("watchdog ping withheld: work is stalled")
					withheld = true
				}
				continue
			}
			withheld = false
			n.Watchdog()
		}
	}
}

func (n *Notifier) send(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}
