// Package production runs the order workflow: every status change, ledger
// write and deliverable change for an order goes through Service.
package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/logging"
	"studio-orders/internal/metrics"

	"gorm.io/gorm"
)

type Config struct {
	// AdminEmail receives the notifications addressed to the studio.
	AdminEmail string
	// Bucket is the storage bucket for versions and deliverables.
	Bucket string
	// SerializedRetries bounds internal retries of serialized actions on a stale order.
	SerializedRetries int
	RetryDelay        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Bucket == "" {
		c.Bucket = "orders"
	}
	if c.SerializedRetries <= 0 {
		c.SerializedRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Millisecond
	}
	return c
}

type Service struct {
	db      *gorm.DB
	storage Storage
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(db *gorm.DB, storage Storage, cfg Config, m *metrics.Metrics) *Service {
	return &Service{
		db:      db,
		storage: storage,
		cfg:     cfg.withDefaults(),
		log:     logging.Module("production"),
		metrics: m,
	}
}

// Actor is whoever triggers an operation.
type Actor struct {
	Role  workflow.Role
	Email string
}

func (a Actor) owns(o *orders.Order) bool {
	return strings.EqualFold(strings.TrimSpace(a.Email), strings.TrimSpace(o.Email))
}

// authorize lets admins and the system touch any order, clients only their own.
func authorize(a Actor, o *orders.Order) error {
	switch a.Role {
	case workflow.RoleAdmin, workflow.RoleSystem:
		return nil
	case workflow.RoleClient:
		if a.owns(o) {
			return nil
		}
	}
	return orders.Errorf(orders.ErrForbidden, "order %s does not belong to you", o.OrderNumber)
}

func loadOrder(tx *gorm.DB, id string) (*orders.Order, error) {
	var o orders.Order
	if err := tx.Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orders.Errorf(orders.ErrNotFound, "order %s not found", id)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &o, nil
}

// GetOrder returns the order if actor may see it.
func (s *Service) GetOrder(ctx context.Context, actor Actor, id string) (*orders.Order, error) {
	o, err := loadOrder(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

type Filter struct {
	Kind   orders.Kind
	Status orders.Status
	Email  string
}

// ListOrders returns newest first. Clients only ever see their own orders.
func (s *Service) ListOrders(ctx context.Context, actor Actor, f Filter) ([]orders.Order, error) {
	q := s.db.WithContext(ctx).Model(&orders.Order{})
	if actor.Role == workflow.RoleClient {
		f.Email = actor.Email
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) = ?", strings.ToLower(f.Email))
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, orders.Errorf(orders.ErrValidation, "unknown status %q", f.Status)
		}
		q = q.Where("status = ?", f.Status)
	}
	var list []orders.Order
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return list, nil
}

type NewOrder struct {
	Kind     orders.Kind
	Tier     string
	PriceEUR float64
	Email    string
	TalentID *string
	Title    string
	Brief    string
	Genre    string
	Language string
	Script   string
}

var orderPrefix = map[orders.Kind]string{
	orders.KindMusic: "MUS",
	orders.KindVoice: "VOC",
}

// CreateOrder opens an order in pending_payment with its revision budget fixed from tier.
func (s *Service) CreateOrder(ctx context.Context, actor Actor, in NewOrder) (*orders.Order, error) {
	if !in.Kind.Valid() {
		return nil, orders.Errorf(orders.ErrValidation, "unknown order kind %q", in.Kind)
	}
	if actor.Role == workflow.RoleClient {
		in.Email = actor.Email
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, orders.Errorf(orders.ErrValidation, "email is required")
	}
	if in.PriceEUR < 0 {
		return nil, orders.Errorf(orders.ErrValidation, "price cannot be negative")
	}
	tier := plans.NormalizeTier(in.Kind, in.Tier, in.PriceEUR)

	o := &orders.Order{
		Kind:         in.Kind,
		Status:       orders.StatusPendingPayment,
		Tier:         tier,
		MaxRevisions: plans.MaxRounds(in.Kind, tier),
		PriceEUR:     in.PriceEUR,
		Email:        strings.TrimSpace(in.Email),
		TalentID:     in.TalentID,
		Title:        in.Title,
		Brief:        in.Brief,
		Genre:        in.Genre,
		Language:     in.Language,
		Script:       in.Script,
	}

	// order numbers are count based, so two creations can collide; retry on the unique index
	for attempt := 0; attempt < s.cfg.SerializedRetries; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var n int64
			if err := tx.Model(&orders.Order{}).Where("kind = ?", in.Kind).Count(&n).Error; err != nil {
				return err
			}
			o.ID = ""
			o.OrderNumber = fmt.Sprintf("%s-%05d", orderPrefix[in.Kind], n+1+int64(attempt))
			return tx.Create(o).Error
		})
		if err == nil {
			s.log.Info("order created", "order", o.OrderNumber, "kind", o.Kind, "tier", o.Tier)
			return o, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}
	return nil, orders.Errorf(orders.ErrStaleState, "could not allocate an order number")
}

// ListVersions returns the ledger grouped by type, oldest first.
func (s *Service) ListVersions(ctx context.Context, actor Actor, orderID string) ([]orders.Version, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	var list []orders.Version
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("version_type ASC, version_number ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return list, nil
}

func (s *Service) ListDeliverables(ctx context.Context, actor Actor, orderID string) ([]orders.Deliverable, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	var list []orders.Deliverable
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sort_order ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return list, nil
}
