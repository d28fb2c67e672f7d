package production

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"

	"gorm.io/gorm"
)

func addDeliverable(tx *gorm.DB, orderID string, f workflow.FileRef) (*orders.Deliverable, error) {
	var last int
	err := tx.Model(&orders.Deliverable{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&last).Error
	if err != nil {
		return nil, fmt.Errorf("next sort order: %w", err)
	}

	ft := f.FileType
	if ft == "" {
		ft = strings.TrimPrefix(strings.ToLower(path.Ext(f.Name)), ".")
	}
	d := &orders.Deliverable{
		OrderID:   orderID,
		FileURL:   f.URL,
		FileName:  f.Name,
		FileType:  orders.ParseFileType(ft),
		Label:     strings.TrimSpace(f.Label),
		SortOrder: last + 1,
	}
	if err := tx.Create(d).Error; err != nil {
		return nil, fmt.Errorf("add deliverable: %w", err)
	}
	return d, nil
}

func removeDeliverable(tx *gorm.DB, orderID, id string) error {
	res := tx.Where("id = ? AND order_id = ?", id, orderID).Delete(&orders.Deliverable{})
	if res.Error != nil {
		return fmt.Errorf("remove deliverable: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return orders.Errorf(orders.ErrNotFound, "deliverable %s not found on this order", id)
	}
	return nil
}

// CanComplete reports whether the order has at least one deliverable.
func (s *Service) CanComplete(ctx context.Context, orderID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&orders.Deliverable{}).Where("order_id = ?", orderID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count deliverables: %w", err)
	}
	return workflow.CanComplete(int(n)), nil
}

// DeliverableOrder resolves the order a deliverable belongs to.
func (s *Service) DeliverableOrder(ctx context.Context, id string) (string, error) {
	var d orders.Deliverable
	err := s.db.WithContext(ctx).Select("id", "order_id").Where("id = ?", id).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", orders.Errorf(orders.ErrNotFound, "deliverable %s not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("load deliverable: %w", err)
	}
	return d.OrderID, nil
}
