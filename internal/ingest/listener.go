package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/board"
)

// Listener is the Redis pub/sub ingestion transport: a resilient
// subscribe loop that decodes canonical job-event JSON from a channel
// and feeds the store. Redelivery on reconnect means at-least-once
// semantics, which the store accepts.
type Listener struct {
	rdb     *redis.Client
	channel string
	store   Recorder
	logger  *zap.Logger
	metrics *board.Metrics
	nowFn   func() time.Time
}

func NewListener(rdb *redis.Client, channel string, store Recorder, logger *zap.Logger, metrics *board.Metrics) *Listener {
	if metrics == nil {
		metrics = board.NewMetrics(nil)
	}
	return &Listener{
		rdb:     rdb,
		channel: channel,
		store:   store,
		logger:  logger.Named("ingest"),
		metrics: metrics,
		nowFn:   time.Now,
	}
}

// Run subscribes and consumes until ctx is cancelled, reconnecting with
// a flat backoff after any subscription failure or channel close.
func (l *Listener) Run(ctx context.Context) {
	l.logger.Info("redis job-event listener started", zap.String("channel", l.channel))

	for {
		pubsub := l.rdb.Subscribe(ctx, l.channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("failed to subscribe", zap.String("channel", l.channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		ch := pubsub.Channel()

	consume:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				l.logger.Info("redis listener stopping")
				return
			case msg, ok := <-ch:
				if !ok {
					break consume // channel closed, go reconnect
				}
				l.handle(msg.Payload)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func (l *Listener) handle(payload string) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		l.metrics.RejectedTotal.WithLabelValues("decode").Inc()
		l.logger.Warn("discarding malformed job event", zap.Error(err))
		return
	}

	ev := Normalize(raw, l.nowFn())
	err := l.store.RecordEvent(ev.Dashboard, ev.Operator, ev.Quantity, ev.Category, ev.Comment, ev.At)
	if err != nil {
		if errors.Is(err, board.ErrDashboardNotFound) {
			// Misrouted events are a routing problem upstream, not ours.
			return
		}
		l.logger.Warn("record failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
