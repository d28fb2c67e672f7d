package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"

	"gorm.io/gorm"
)

// Transition is the single status-mutating entry point. Guards, ledger
// writes, the status change and queued side effects commit as one unit.
// Serialized actions are retried on a stale order so concurrent uploads
// end up numbered one after the other.
func (s *Service) Transition(ctx context.Context, orderID string, actor Actor, action workflow.Action, p workflow.Payload) (*orders.Order, error) {
	return s.TransitionWith(ctx, orderID, actor, action, p, nil)
}

// TransitionWith is Transition with extra writes that commit or roll back
// together with it. also sees the order after the status change.
func (s *Service) TransitionWith(ctx context.Context, orderID string, actor Actor, action workflow.Action, p workflow.Payload, also func(tx *gorm.DB, o *orders.Order) error) (*orders.Order, error) {
	start := time.Now()
	var (
		order *orders.Order
		kind  orders.Kind
		err   error
	)
	for attempt := 1; ; attempt++ {
		var serialized bool
		order, kind, serialized, err = s.transitionOnce(ctx, orderID, actor, action, p, also)
		if err == nil || !orders.Retryable(err) || !serialized || attempt >= s.cfg.SerializedRetries {
			break
		}
		s.metrics.StaleRetry(string(action))
		s.log.Debug("retrying stale transition", "order_id", orderID, "action", action, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.cfg.RetryDelay):
		}
	}

	result := "ok"
	if err != nil {
		result = string(orders.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	s.metrics.Transition(string(kind), string(action), result, time.Since(start))

	if err != nil {
		s.log.Info("transition rejected", "order_id", orderID, "action", action, "role", actor.Role, "error", err)
		return nil, err
	}
	s.log.Info("transition applied", "order", order.OrderNumber, "action", action, "status", order.Status)
	return order, nil
}

func (s *Service) transitionOnce(ctx context.Context, orderID string, actor Actor, action workflow.Action, p workflow.Payload, also func(tx *gorm.DB, o *orders.Order) error) (*orders.Order, orders.Kind, bool, error) {
	var (
		out        *orders.Order
		kind       orders.Kind
		serialized bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		kind = o.Kind
		if err := authorize(actor, o); err != nil {
			return err
		}
		rule, err := s.apply(tx, o, actor, action, p)
		serialized = rule.Serialized
		if err != nil {
			return err
		}
		if also != nil {
			if err := also(tx, o); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	return out, kind, serialized, err
}

// apply runs one transition against o inside tx. o must be the state the
// caller decided on; if the row moved since, apply fails with ErrStaleState
// before writing anything.
func (s *Service) apply(tx *gorm.DB, o *orders.Order, actor Actor, action workflow.Action, p workflow.Payload) (workflow.Rule, error) {
	rule, err := workflow.Lookup(o.Kind, o.Status, action, actor.Role)
	if err != nil {
		return rule, err
	}
	snap, err := snapshot(tx, o)
	if err != nil {
		return rule, err
	}
	if err := rule.Check(snap, p); err != nil {
		return rule, err
	}

	if err := claim(tx, o); err != nil {
		return rule, err
	}

	fx := effectResult{}
	switch rule.Effect {
	case workflow.EffectNone:
	case workflow.EffectStartProduction:
		if p.DeliveryDate != nil {
			d := *p.DeliveryDate
			o.EstimatedDeliveryDate = &d
		}
	case workflow.EffectAppendDemos:
		for _, f := range p.Files {
			v, err := appendVersion(tx, o, orders.VersionDemo, f, p.Notes)
			if err != nil {
				return rule, err
			}
			fx.version = v
		}
	case workflow.EffectAppendRevision:
		v, err := appendVersion(tx, o, orders.VersionRevision, p.Files[0], p.Notes)
		if err != nil {
			return rule, err
		}
		// the first full version is free
		if v.VersionNumber > 1 {
			o.RevisionsUsed++
		}
		fx.version = v
	case workflow.EffectSelectVersion:
		v, err := findVersion(tx, o.ID, p.VersionID)
		if err != nil {
			return rule, err
		}
		if err := selectVersion(tx, o.ID, v, orders.VersionSelected); err != nil {
			return rule, err
		}
		if o.DirectionLocked() {
			o.ConfirmedVersionID = &v.ID
		}
		fx.version = v
	case workflow.EffectConfirmDirection:
		v := snap.Selected
		if p.VersionID != "" {
			if v, err = findVersion(tx, o.ID, p.VersionID); err != nil {
				return rule, err
			}
		}
		if v.VersionType != orders.VersionDemo {
			return rule, orders.Errorf(orders.ErrValidation, "only a demo can set the direction")
		}
		if err := selectVersion(tx, o.ID, v, orders.VersionSelected); err != nil {
			return rule, err
		}
		o.ConfirmedVersionID = &v.ID
		fx.version = v
	case workflow.EffectConfirmVersion:
		v := snap.Latest
		if p.VersionID != "" {
			if v, err = findVersion(tx, o.ID, p.VersionID); err != nil {
				return rule, err
			}
		}
		if err := selectVersion(tx, o.ID, v, orders.VersionApproved); err != nil {
			return rule, err
		}
		o.ConfirmedVersionID = &v.ID
		fx.version = v
	case workflow.EffectRequestChanges:
		v := snap.Latest
		if p.VersionID != "" {
			if v, err = findVersion(tx, o.ID, p.VersionID); err != nil {
				return rule, err
			}
		}
		if err := recordChangeRequest(tx, v, p); err != nil {
			return rule, err
		}
		fx.version = v
	case workflow.EffectAddDeliverable:
		for _, f := range p.Files {
			if _, err := addDeliverable(tx, o.ID, f); err != nil {
				return rule, err
			}
		}
	case workflow.EffectRemoveDeliverable:
		if err := removeDeliverable(tx, o.ID, p.DeliverableID); err != nil {
			return rule, err
		}
	case workflow.EffectComplete:
		fx.completed = true
	default:
		return rule, fmt.Errorf("unhandled effect %d for %s", rule.Effect, action)
	}

	o.Status = rule.To
	if err := save(tx, o); err != nil {
		return rule, err
	}

	events, err := s.events(o, rule, fx, p)
	if err != nil {
		return rule, err
	}
	if err := enqueue(tx, events); err != nil {
		return rule, err
	}
	return rule, nil
}

type effectResult struct {
	version   *orders.Version
	completed bool
}

// claim bumps lock_version only if nobody else did since o was read. The
// row stays locked for the rest of the transaction.
func claim(tx *gorm.DB, o *orders.Order) error {
	res := tx.Model(&orders.Order{}).
		Where("id = ? AND lock_version = ?", o.ID, o.LockVersion).
		UpdateColumn("lock_version", gorm.Expr("lock_version + 1"))
	if res.Error != nil {
		return fmt.Errorf("claim order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return orders.Errorf(orders.ErrStaleState, "order %s changed since it was read", o.OrderNumber)
	}
	o.LockVersion++
	return nil
}

func save(tx *gorm.DB, o *orders.Order) error {
	err := tx.Model(&orders.Order{}).Where("id = ?", o.ID).Updates(map[string]any{
		"status":                  o.Status,
		"revisions_used":          o.RevisionsUsed,
		"confirmed_version_id":    o.ConfirmedVersionID,
		"estimated_delivery_date": o.EstimatedDeliveryDate,
		"updated_at":              time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func snapshot(tx *gorm.DB, o *orders.Order) (workflow.Snapshot, error) {
	snap := workflow.Snapshot{Order: o}

	var n int64
	if err := tx.Model(&orders.Deliverable{}).Where("order_id = ?", o.ID).Count(&n).Error; err != nil {
		return snap, fmt.Errorf("count deliverables: %w", err)
	}
	snap.Deliverables = int(n)

	var selected orders.Version
	err := tx.Where("order_id = ? AND status IN ?", o.ID,
		[]orders.VersionStatus{orders.VersionSelected, orders.VersionApproved}).
		Take(&selected).Error
	switch {
	case err == nil:
		snap.Selected = &selected
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return snap, fmt.Errorf("load selection: %w", err)
	}

	var latest orders.Version
	err = tx.Where("order_id = ? AND version_type = ?", o.ID, orders.VersionRevision).
		Order("version_number DESC").
		Take(&latest).Error
	switch {
	case err == nil:
		snap.Latest = &latest
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return snap, fmt.Errorf("load latest version: %w", err)
	}
	return snap, nil
}
