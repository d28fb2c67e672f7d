// Package dispatch delivers outbox events after their transition committed.
// Delivery is at-least-once, so every handler must be idempotent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/logging"
	"studio-orders/internal/metrics"

	"gorm.io/gorm"
)

// Handler performs the side effect of one event.
type Handler func(ctx context.Context, ev *outbox.Event) error

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts is the number of deliveries before an event is marked failed.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Lease is how long a processing event may stay claimed before another
	// dispatcher takes it over.
	Lease time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Minute
	}
	if c.Lease <= 0 {
		c.Lease = 2 * time.Minute
	}
	return c
}

type Dispatcher struct {
	db       *gorm.DB
	cfg      Config
	handlers map[outbox.EventType]Handler
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(db *gorm.DB, cfg Config, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		db:       db,
		cfg:      cfg.withDefaults(),
		handlers: make(map[outbox.EventType]Handler),
		metrics:  m,
		log:      logging.Module("dispatch"),
		now:      time.Now,
	}
}

// Register sets the handler for an event type, replacing any previous one.
func (d *Dispatcher) Register(t outbox.EventType, h Handler) {
	d.handlers[t] = h
}

// Run drains the outbox every PollInterval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info("dispatcher started", "poll_interval", d.cfg.PollInterval, "batch_size", d.cfg.BatchSize)
	for {
		if _, err := d.DrainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("outbox drain failed", "error", err)
		}
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// DrainOnce claims and delivers one batch of due events and returns how many
// were delivered. Delivery failures are recorded on the event, not returned.
func (d *Dispatcher) DrainOnce(ctx context.Context) (int, error) {
	now := d.now()

	var due []outbox.Event
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", outbox.StatusPending, now).
		Or("status = ? AND updated_at < ?", outbox.StatusProcessing, now.Add(-d.cfg.Lease)).
		Order("next_attempt_at ASC").
		Limit(d.cfg.BatchSize).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("load due events: %w", err)
	}

	claimed := 0
	delivered := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		ev := &due[i]
		ok, err := d.claim(ctx, ev, now)
		if err != nil {
			return delivered, err
		}
		if !ok {
			continue
		}
		claimed++
		if d.deliver(ctx, ev) {
			delivered++
		}
	}
	d.metrics.OutboxBatch(claimed)
	return delivered, nil
}

// claim moves an event to processing. The attempts counter doubles as the
// compare-and-swap token, so two dispatchers never claim the same delivery.
func (d *Dispatcher) claim(ctx context.Context, ev *outbox.Event, now time.Time) (bool, error) {
	res := d.db.WithContext(ctx).Model(&outbox.Event{}).
		Where("id = ? AND status = ? AND attempts = ?", ev.ID, ev.Status, ev.Attempts).
		Updates(map[string]any{
			"status":     outbox.StatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim event %s: %w", ev.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	ev.Status = outbox.StatusProcessing
	ev.Attempts++
	return true, nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev *outbox.Event) bool {
	h, ok := d.handlers[ev.Type]
	if !ok {
		d.finish(ctx, ev, fmt.Errorf("no handler for event type %q", ev.Type), true)
		return false
	}

	err := h(ctx, ev)
	if err == nil {
		d.finish(ctx, ev, nil, false)
		return true
	}
	d.finish(ctx, ev, err, ev.Attempts >= d.cfg.MaxAttempts)
	return false
}

func (d *Dispatcher) finish(ctx context.Context, ev *outbox.Event, cause error, final bool) {
	now := d.now()
	updates := map[string]any{"updated_at": now}
	var result string

	switch {
	case cause == nil:
		result = "delivered"
		updates["status"] = outbox.StatusDone
		updates["processed_at"] = now
		updates["last_error"] = ""
	case final:
		result = "failed"
		updates["status"] = outbox.StatusFailed
		updates["last_error"] = cause.Error()
		d.log.Error("outbox event failed permanently",
			"event", ev.ID, "type", ev.Type, "order", ev.OrderID, "attempts", ev.Attempts, "error", cause)
	default:
		result = "retry"
		next := now.Add(d.backoff(ev.Attempts))
		updates["status"] = outbox.StatusPending
		updates["next_attempt_at"] = next
		updates["last_error"] = cause.Error()
		d.log.Warn("outbox event delivery failed",
			"event", ev.ID, "type", ev.Type, "order", ev.OrderID, "attempts", ev.Attempts, "retry_at", next, "error", cause)
	}
	d.metrics.Outbox(string(ev.Type), result)

	// The result is persisted even when ctx was cancelled mid-delivery.
	err := d.db.WithContext(context.WithoutCancel(ctx)).Model(&outbox.Event{}).
		Where("id = ? AND status = ?", ev.ID, outbox.StatusProcessing).
		Updates(updates).Error
	if err != nil {
		d.log.Error("record outbox result", "event", ev.ID, "error", err)
	}
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return delay
}
