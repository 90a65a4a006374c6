package app

import (
	"context"
	"strings"

	"hwbot/internal/config"
	"hwbot/internal/poller"
	logx "hwbot/pkg/logx"
)

// applyReloads applies hot-reloadable sections (logging, poll schedule,
// notifier) from every config the manager publishes.
func (a *App) applyReloads(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts: keep only the newest
			for drained := false; !drained; {
				select {
				case newer, ok := <-sub:
					if !ok {
						return
					}
					if newer != nil {
						newCfg = newer
					}
				default:
					drained = true
				}
			}
			if newCfg == nil {
				continue
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		a.metrics.ConfigReloads.WithLabelValues("noop").Inc()
		return
	}
	a.sd.Reloading()
	defer a.sd.Ready()

	if restart := config.RestartRequired(sections); len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if sched, err := poller.NewSchedule(newCfg.Poll.Interval); err != nil {
		a.log.Warn("invalid poll.interval; keeping previous", logx.Err(err))
	} else {
		a.loop.SetSchedule(sched)
	}

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		// destination and send timeout belong to the startup client
		ncfg.Target = a.target
		ncfg.SendTimeout = a.sendTimeout
		a.notif.Apply(ncfg)
	}

	a.metrics.ConfigReloads.WithLabelValues("applied").Inc()
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
