package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"hwbot/internal/eventbus"
	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

// Fetcher retrieves the raw statuses body changed since ts (unix seconds).
type Fetcher interface {
	Fetch(ctx context.Context, ts int64) (json.RawMessage, error)
}

// Notifier delivers chat messages and remembers the last one delivered.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	IsNew(text string) bool
}

// Recorder receives per-cycle counters. failedStage is empty on success.
type Recorder interface {
	CycleFinished(failedStage string, took time.Duration)
	MessageSent(kind string)
	ErrorSuppressed()
}

type nopRecorder struct{}

func (nopRecorder) CycleFinished(string, time.Duration) {}
func (nopRecorder) MessageSent(string)                  {}
func (nopRecorder) ErrorSuppressed()                    {}

// CycleEvent is the Data of poller.cycle bus events.
type CycleEvent struct {
	ID        string        `json:"id"`
	Timestamp int64         `json:"timestamp"`
	Records   int           `json:"records"`
	Took      time.Duration `json:"took"`
	Stage     string        `json:"stage,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Loop polls the homework API on a schedule and reports status changes.
//
// Only Run mutates the poll timestamp; Cycle must not be called concurrently
// with Run.
type Loop struct {
	fetch  Fetcher
	notify Notifier

	log logx.Logger
	rec Recorder
	bus eventbus.Bus

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error

	schedMu sync.RWMutex
	sched   cron.Schedule

	ts atomic.Int64
	// unix nanos of the running cycle's start, 0 while waiting
	busySince atomic.Int64
}

type Option func(*Loop)

func WithLogger(log logx.Logger) Option { return func(l *Loop) { l.log = log } }

func WithRecorder(r Recorder) Option {
	return func(l *Loop) {
		if r != nil {
			l.rec = r
		}
	}
}

func WithBus(b eventbus.Bus) Option { return func(l *Loop) { l.bus = b } }

func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithWait replaces the sleep between cycles. It must return ctx.Err() when
// ctx is done.
func WithWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Loop) {
		if fn != nil {
			l.wait = fn
		}
	}
}

// WithStartTimestamp overrides the initial poll timestamp (default: now).
func WithStartTimestamp(ts int64) Option { return func(l *Loop) { l.ts.Store(ts) } }

func New(f Fetcher, n Notifier, sched cron.Schedule, opts ...Option) *Loop {
	l := &Loop{
		fetch:  f,
		notify: n,
		log:    logx.Nop(),
		rec:    nopRecorder{},
		now:    time.Now,
		wait:   sleepCtx,
		sched:  sched,
	}
	for _, o := range opts {
		o(l)
	}
	if l.log.IsZero() {
		l.log = logx.Nop()
	}
	if l.sched == nil {
		l.sched = cron.Every(10 * time.Minute)
	}
	return l
}

// SetSchedule swaps the schedule; it takes effect from the next wait.
func (l *Loop) SetSchedule(s cron.Schedule) {
	if s == nil {
		return
	}
	l.schedMu.Lock()
	l.sched = s
	l.schedMu.Unlock()
}

// Timestamp returns the unix time the next cycle polls from.
func (l *Loop) Timestamp() int64 { return l.ts.Load() }

// Stalled reports whether the running cycle has taken longer than limit.
// Waiting between cycles never counts as stalled.
func (l *Loop) Stalled(limit time.Duration) bool {
	since := l.busySince.Load()
	if since == 0 {
		return false
	}
	return l.now().Sub(time.Unix(0, since)) > limit
}

// Run polls until ctx is done. It only returns ctx.Err(): cycle failures are
// logged, reported to the chat, and retried on the next tick.
func (l *Loop) Run(ctx context.Context) error {
	if l.ts.Load() == 0 {
		l.ts.Store(l.now().Unix())
	}
	l.log.Info("polling started", logx.Int64("from", l.ts.Load()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.handleFailure(ctx, err)
		}

		if err := l.wait(ctx, l.nextDelay()); err != nil {
			l.log.Info("polling stopped")
			return err
		}
	}
}

func (l *Loop) nextDelay() time.Duration {
	l.schedMu.RLock()
	s := l.sched
	l.schedMu.RUnlock()

	now := l.now()
	return max(s.Next(now).Sub(now), 0)
}

// Cycle runs one fetch, validate, translate and notify pass. The poll
// timestamp only advances when every record was delivered. A panic inside
// the pass is returned as a CycleError with StageUnknown.
func (l *Loop) Cycle(ctx context.Context) error {
	id := uuid.NewString()
	log := l.log.With(logx.String("cycle_id", id))
	start := l.now()
	ts := l.ts.Load()

	l.busySince.Store(start.UnixNano())
	defer l.busySince.Store(0)

	ev := CycleEvent{ID: id, Timestamp: ts}
	err := l.guardedCycle(ctx, log, ts, &ev)
	took := l.now().Sub(start)
	ev.Took = took

	stage := ""
	if err != nil {
		s, _ := stageOf(err)
		stage = string(s)
		ev.Stage = stage
		ev.Error = err.Error()
	}
	l.rec.CycleFinished(stage, took)
	if l.bus != nil {
		l.bus.Publish(eventbus.Event{Type: eventbus.TypeCycleDone, Time: start, Data: ev})
	}
	return err
}

func (l *Loop) guardedCycle(ctx context.Context, log logx.Logger, ts int64, ev *CycleEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("polling cycle panicked", logx.String("stack", string(debug.Stack())))
			err = &CycleError{Stage: StageUnknown, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return l.cycle(ctx, log, ts, ev)
}

func (l *Loop) cycle(ctx context.Context, log logx.Logger, ts int64, ev *CycleEvent) error {
	raw, err := l.fetch.Fetch(ctx, ts)
	if err != nil {
		return &CycleError{Stage: StageFetch, Err: err}
	}

	p, err := homework.Validate(raw)
	if err != nil {
		log.Warn("malformed api response", logx.Err(err))
		return &CycleError{Stage: StageValidate, Err: err}
	}
	ev.Records = len(p.Homeworks)

	if len(p.Homeworks) == 0 {
		log.Debug("no new statuses")
	}
	for _, r := range p.Homeworks {
		msg, err := homework.Translate(r)
		if err != nil {
			return &CycleError{Stage: StageTranslate, Err: err}
		}
		if err := l.notify.Notify(ctx, msg); err != nil {
			return &CycleError{Stage: StageNotify, Err: err}
		}
		l.rec.MessageSent("status")
		log.Debug("status reported", logx.String("homework", r.Name), logx.String("status", r.Status))
	}

	next := l.now().Unix()
	if p.CurrentDate != nil {
		next = *p.CurrentDate
	} else {
		log.Warn("response has no current_date, using local time", logx.Int64("from", next))
	}
	l.ts.Store(next)
	ev.Timestamp = next
	return nil
}

func (l *Loop) handleFailure(ctx context.Context, err error) {
	stage, cause := stageOf(err)
	fields := []logx.Field{logx.String("stage", string(stage)), logx.Err(cause)}

	var rse *homework.RemoteStatusError
	var use *homework.UnknownStatusError
	switch {
	case errors.As(cause, &rse):
		fields = append(fields, logx.Int("status_code", rse.Code))
	case errors.As(cause, &use):
		fields = append(fields, logx.String("status", use.Status))
	}
	l.log.Error("polling cycle failed", fields...)

	msg := FailureMessage(cause)
	if !l.notify.IsNew(msg) {
		l.rec.ErrorSuppressed()
		l.log.Debug("duplicate error suppressed", logx.String("stage", string(stage)))
		return
	}
	if nerr := l.notify.Notify(ctx, msg); nerr != nil {
		l.log.Error("failed to report failure to chat", logx.Err(nerr))
		return
	}
	l.rec.MessageSent("failure")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
