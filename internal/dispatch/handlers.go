package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"

	"gorm.io/gorm"
)

// Notifier is satisfied by *mailer.Mailer.
type Notifier interface {
	Send(ctx context.Context, name, recipient string, c outbox.Context) error
}

func NotificationHandler(n Notifier) Handler {
	return func(ctx context.Context, ev *outbox.Event) error {
		c, err := ev.Context()
		if err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		if err := n.Send(ctx, ev.Template, ev.Recipient, c); err != nil {
			return orders.Wrap(orders.ErrNotificationFailed, err)
		}
		return nil
	}
}

// LicenseHandler issues the certificate of a completed top-tier order and
// queues the mail that carries it. A second delivery finds the certificate
// and does nothing.
func LicenseHandler(db *gorm.DB) Handler {
	return func(ctx context.Context, ev *outbox.Event) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			o, err := completedOrder(tx, ev.OrderID)
			if err != nil {
				return err
			}

			cert := orders.LicenseCertificate{
				OrderID:           o.ID,
				CertificateNumber: "LIC-" + o.OrderNumber,
				Email:             o.Email,
				Tier:              o.Tier,
				IssuedAt:          time.Now(),
			}
			res := tx.Where(orders.LicenseCertificate{OrderID: o.ID}).FirstOrCreate(&cert)
			if res.Error != nil {
				return fmt.Errorf("issue license: %w", res.Error)
			}
			if res.RowsAffected == 0 || o.Email == "" {
				return nil
			}

			mail := &outbox.Event{
				Type:      outbox.TypeNotification,
				OrderID:   o.ID,
				Recipient: o.Email,
				Template:  "license_issued",
			}
			if err := mail.SetContext(outbox.Context{
				OrderNumber: o.OrderNumber,
				Kind:        string(o.Kind),
				Status:      string(o.Status),
				Tier:        o.Tier,
				Title:       o.Title,
				Email:       o.Email,
				Message:     cert.CertificateNumber,
			}); err != nil {
				return err
			}
			return outbox.Enqueue(tx, mail)
		})
	}
}

// EarningHandler records the talent payout of a completed order.
// share is the fraction of the order price owed to the talent.
func EarningHandler(db *gorm.DB, share float64) Handler {
	return func(ctx context.Context, ev *outbox.Event) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			o, err := completedOrder(tx, ev.OrderID)
			if err != nil {
				return err
			}
			if o.TalentID == nil {
				return nil
			}

			earning := billing.TalentEarning{
				OrderID:   o.ID,
				TalentID:  *o.TalentID,
				AmountEUR: math.Round(o.PriceEUR*share*100) / 100,
				Status:    "pending",
			}
			if err := tx.Where(billing.TalentEarning{OrderID: o.ID}).FirstOrCreate(&earning).Error; err != nil {
				return fmt.Errorf("record talent earning: %w", err)
			}
			return nil
		})
	}
}

func completedOrder(tx *gorm.DB, id string) (*orders.Order, error) {
	var o orders.Order
	if err := tx.First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orders.Errorf(orders.ErrNotFound, "order %s", id)
		}
		return nil, err
	}
	if o.Status != orders.StatusCompleted {
		return nil, orders.Errorf(orders.ErrInvalidTransition, "order %s is %s, not completed", o.OrderNumber, o.Status)
	}
	return &o, nil
}
