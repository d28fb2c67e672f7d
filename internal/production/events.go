package production

import (
	"fmt"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"

	"gorm.io/gorm"
)

// events builds the side effects of a committed rule. They are delivered
// later by the dispatcher, so a failing mail server never undoes a transition.
func (s *Service) events(o *orders.Order, rule workflow.Rule, fx effectResult, p workflow.Payload) ([]*outbox.Event, error) {
	var out []*outbox.Event

	if rule.Notify != nil {
		recipient := o.Email
		if rule.Notify.Audience == workflow.AudienceAdmin {
			recipient = s.cfg.AdminEmail
		}
		if recipient == "" {
			s.log.Warn("no recipient for notification", "order", o.OrderNumber, "template", rule.Notify.Template)
		} else {
			ev := &outbox.Event{
				Type:      outbox.TypeNotification,
				OrderID:   o.ID,
				Recipient: recipient,
				Template:  rule.Notify.Template,
			}
			c := orderContext(o)
			if fx.version != nil {
				c.VersionNumber = fx.version.VersionNumber
			}
			c.Message = p.RevisionRequest
			if c.Message == "" {
				c.Message = p.Notes
			}
			if err := ev.SetContext(c); err != nil {
				return nil, fmt.Errorf("encode notification: %w", err)
			}
			out = append(out, ev)
		}
	}

	if fx.completed {
		var ev *outbox.Event
		switch {
		case plans.IsTopTier(o.Kind, o.Tier):
			ev = &outbox.Event{Type: outbox.TypeIssueLicense, OrderID: o.ID, Recipient: o.Email}
		case o.TalentID != nil:
			ev = &outbox.Event{Type: outbox.TypeRecordTalentEarning, OrderID: o.ID}
		}
		if ev != nil {
			if err := ev.SetContext(orderContext(o)); err != nil {
				return nil, fmt.Errorf("encode side effect: %w", err)
			}
			out = append(out, ev)
		}
	}
	return out, nil
}

func orderContext(o *orders.Order) outbox.Context {
	return outbox.Context{
		OrderNumber: o.OrderNumber,
		Kind:        string(o.Kind),
		Status:      string(o.Status),
		Tier:        o.Tier,
		Title:       o.Title,
		Email:       o.Email,
		Remaining:   plans.Remaining(o.RevisionsUsed, o.MaxRevisions),
	}
}

func enqueue(tx *gorm.DB, events []*outbox.Event) error {
	if err := outbox.Enqueue(tx, events...); err != nil {
		return fmt.Errorf("enqueue side effects: %w", err)
	}
	return nil
}
