package app

import (
	"context"
	"time"

	"hwbot/internal/eventbus"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/storage"
	logx "hwbot/pkg/logx"
)

// consumeEvents journals deliveries and counts send failures until ctx is
// done or the bus closes the channel.
func (a *App) consumeEvents(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.handleEvent(ctx, e)
		}
	}
}

func (a *App) handleEvent(ctx context.Context, e eventbus.Event) {
	switch e.Type {
	case eventbus.TypeMessageSent, eventbus.TypeMessageFailed:
		ev, ok := e.Data.(notifier.DeliveryEvent)
		if !ok {
			return
		}
		if e.Type == eventbus.TypeMessageFailed {
			a.metrics.SendFailures.Inc()
		}
		if a.store == nil {
			return
		}
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := a.store.AppendDelivery(wctx, deliveryFromEvent(ev)); err != nil {
			a.log.Warn("journal append failed", logx.Err(err))
		}
	case eventbus.TypeCycleDone:
		if ev, ok := e.Data.(poller.CycleEvent); ok {
			a.log.Debug("cycle done",
				logx.String("cycle_id", ev.ID),
				logx.Int("records", ev.Records),
				logx.Duration("took", ev.Took),
				logx.String("stage", ev.Stage),
			)
		}
	default:
		a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
	}
}

func deliveryFromEvent(ev notifier.DeliveryEvent) storage.Delivery {
	return storage.Delivery{
		At:        ev.At,
		ChatID:    ev.ChatID,
		ThreadID:  ev.ThreadID,
		MessageID: ev.MessageID,
		Text:      ev.Text,
		Error:     ev.Error,
		TookMS:    ev.Took.Milliseconds(),
	}
}
