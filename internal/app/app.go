package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/observability"
	"hwbot/internal/poller"
	"hwbot/internal/runtime/sdnotify"
	"hwbot/internal/runtime/supervisor"
	"hwbot/internal/storage"
	kit "hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

// Options override collaborators, mainly for tests. The zero value builds
// the real Telegram client and HTTP client.
type Options struct {
	// ConfigPath is the optional JSON/YAML config file; "" means env only.
	ConfigPath string
	// Sender replaces the Telegram adapter.
	Sender kit.Sender
	// HTTPClient is used for the homework API.
	HTTPClient *http.Client
	// BotURL overrides the Bot API endpoint.
	BotURL string
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store   storage.Store
	metrics *observability.Metrics
	obs     *observability.Server
	sd      *sdnotify.Notifier

	target kit.ChatTarget
	// fixed by the Telegram client built at startup
	sendTimeout time.Duration
	// a cycle running longer than this withholds watchdog pings
	stallLimit time.Duration
	notif      *notifier.Service
	loop       *poller.Loop
}

// New loads the configuration and wires every component. Missing
// credentials are reported before anything touches the network.
func New(opts Options) (*App, error) {
	cfgm := config.NewManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.CheckTokens(cfg); err != nil {
		return nil, err
	}

	reqTimeout, err := config.ParseDurationOrDefault("practicum.request_timeout", cfg.Practicum.RequestTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	sched, err := poller.NewSchedule(cfg.Poll.Interval)
	if err != nil {
		return nil, fmt.Errorf("poll.interval: %w", err)
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	sc, storeEnabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}

	sender := opts.Sender
	if sender == nil {
		bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
		// Offline: no getMe handshake, the first send reports a bad token.
		ad, err := telegram.New(telegram.Config{
			Token:          cfg.Telegram.Token,
			RequestTimeout: ncfg.SendTimeout,
			URL:            opts.BotURL,
			Offline:        true,
		}, bootLog)
		if err != nil {
			return nil, err
		}
		sender = ad
	}

	logSvc, log := logx.New(mapLogConfig(cfg), sender, chatTarget(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()
	metrics := observability.NewMetrics()

	var store storage.Store
	if storeEnabled {
		store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
	}

	notif := notifier.New(ncfg, sender, log.With(logx.String("comp", "notifier")), bus)

	client, err := homework.NewClient(homework.ClientConfig{
		Endpoint: cfg.Practicum.Endpoint,
		Token:    cfg.Practicum.Token,
		Timeout:  reqTimeout,
	}, opts.HTTPClient, log.With(logx.String("comp", "homework")))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = logSvc.Close()
		return nil, err
	}

	sd := sdnotify.New(log.With(logx.String("comp", "systemd")))

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     bus,
		store:   store,
		metrics: metrics,
		sd:      sd,
		target:  ncfg.Target,

		sendTimeout: ncfg.SendTimeout,
		stallLimit:  stallLimit(reqTimeout, ncfg.SendTimeout),
		notif:       notif,
	}
	a.loop = poller.New(client, notif, sched,
		poller.WithLogger(log.With(logx.String("comp", "poller"))),
		poller.WithRecorder(metrics),
		poller.WithBus(bus),
	)
	if cfg.Observability.Enabled {
		a.obs = observability.NewServer(mapObservabilityConfig(cfg), metrics, log.With(logx.String("comp", "observability")))
	}
	return a, nil
}

// stallLimit bounds a healthy cycle: one API request plus a few sends.
func stallLimit(reqTimeout, sendTimeout time.Duration) time.Duration {
	return max(reqTimeout+5*sendTimeout, time.Minute)
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Notifier exposes the delivery service (last message, history).
func (a *App) Notifier() *notifier.Service { return a.notif }

// Journal returns the delivery journal, or nil when storage is disabled.
func (a *App) Journal() storage.Store { return a.store }

func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Start launches the poll loop and its support goroutines.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.metrics.GaugeFunc("goroutines_supervised", "Goroutines currently run by the app supervisor", func() float64 {
		return float64(a.sup.Counters().Active)
	})

	// subscribe before the loop runs so no delivery is missed
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("journal", func(c context.Context) {
		defer unsub()
		a.consumeEvents(c, events)
	})

	a.sup.Go("poller", a.loop.Run)

	if a.obs != nil {
		a.sup.GoRestart("observability", a.obs.Serve,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.applyReloads(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		a.sd.KeepAlive(c, func() bool { return !a.loop.Stalled(a.stallLimit) })
	})

	a.sd.Ready()
	a.sd.Status("polling")
	a.log.Info("bot started",
		logx.Int64("chat_id", a.cfgm.Get().Telegram.ChatID),
		logx.String("poll_interval", a.cfgm.Get().Poll.Interval),
		logx.Bool("journal", a.store != nil),
	)
	return nil
}

// Stop cancels every goroutine, waits for them within ctx and closes the
// journal and log sinks.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()
	a.sup.Cancel()

	werr := a.sup.Wait(ctx)
	if werr != nil {
		a.log.Warn("shutdown incomplete", logx.Err(werr))
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			a.log.Warn("journal close failed", logx.Err(cerr))
		}
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return werr
}
