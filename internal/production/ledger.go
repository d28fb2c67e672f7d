package production

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"

	"gorm.io/gorm"
)

// appendVersion numbers within (order, type). Callers hold the order claim,
// so max+1 cannot race; the unique index backs that up.
func appendVersion(tx *gorm.DB, o *orders.Order, vt orders.VersionType, f workflow.FileRef, notes string) (*orders.Version, error) {
	var last int
	err := tx.Model(&orders.Version{}).
		Where("order_id = ? AND version_type = ?", o.ID, vt).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&last).Error
	if err != nil {
		return nil, fmt.Errorf("next version number: %w", err)
	}

	v := &orders.Version{
		OrderID:       o.ID,
		VersionType:   vt,
		VersionNumber: last + 1,
		FileURL:       f.URL,
		FileName:      f.Name,
		Status:        orders.VersionPendingReview,
		Notes:         strings.TrimSpace(notes),
	}
	if err := tx.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, orders.Errorf(orders.ErrStaleState, "%s %d already exists", vt, v.VersionNumber)
		}
		return nil, fmt.Errorf("append version: %w", err)
	}
	return v, nil
}

func findVersion(tx *gorm.DB, orderID, versionID string) (*orders.Version, error) {
	var v orders.Version
	err := tx.Where("id = ? AND order_id = ?", versionID, orderID).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orders.Errorf(orders.ErrNotFound, "version %s not found on this order", versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	return &v, nil
}

// selectVersion demotes every other chosen version and promotes v, in tx.
func selectVersion(tx *gorm.DB, orderID string, v *orders.Version, status orders.VersionStatus) error {
	err := tx.Model(&orders.Version{}).
		Where("order_id = ? AND id <> ? AND status IN ?", orderID, v.ID,
			[]orders.VersionStatus{orders.VersionSelected, orders.VersionApproved}).
		Update("status", orders.VersionPendingReview).Error
	if err != nil {
		return fmt.Errorf("demote versions: %w", err)
	}
	if err := tx.Model(v).Update("status", status).Error; err != nil {
		return fmt.Errorf("select version: %w", err)
	}
	return nil
}

func recordChangeRequest(tx *gorm.DB, v *orders.Version, p workflow.Payload) error {
	req := strings.TrimSpace(p.RevisionRequest)
	updates := map[string]any{
		"revision_request": req,
		"status":           orders.VersionRevisionRequested,
	}
	if notes := strings.TrimSpace(p.Notes); notes != "" {
		updates["overall_notes"] = notes
	}
	if err := tx.Model(v).Updates(updates).Error; err != nil {
		return fmt.Errorf("record change request: %w", err)
	}
	return nil
}

// Feedback holds the client-authored fields of a version. Nil fields are left alone.
type Feedback struct {
	Rating          *int    `json:"overall_rating"`
	Notes           *string `json:"overall_notes"`
	RevisionRequest *string `json:"revision_request"`
}

// RecordFeedback upserts client fields on a version without touching its status.
func (s *Service) RecordFeedback(ctx context.Context, actor Actor, versionID string, fb Feedback) (*orders.Version, error) {
	if fb.Rating != nil && (*fb.Rating < 1 || *fb.Rating > 5) {
		return nil, orders.Errorf(orders.ErrValidation, "rating must be between 1 and 5")
	}
	var out *orders.Version
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, o, err := versionWithOrder(tx, versionID)
		if err != nil {
			return err
		}
		if actor.Role != workflow.RoleClient || !actor.owns(o) {
			return orders.Errorf(orders.ErrForbidden, "only the client of %s can leave feedback", o.OrderNumber)
		}
		updates := map[string]any{}
		if fb.Rating != nil {
			updates["overall_rating"] = *fb.Rating
		}
		if fb.Notes != nil {
			updates["overall_notes"] = strings.TrimSpace(*fb.Notes)
		}
		if fb.RevisionRequest != nil {
			updates["revision_request"] = strings.TrimSpace(*fb.RevisionRequest)
		}
		if len(updates) > 0 {
			if err := tx.Model(v).Updates(updates).Error; err != nil {
				return fmt.Errorf("record feedback: %w", err)
			}
		}
		if err := tx.Where("id = ?", v.ID).Take(v).Error; err != nil {
			return fmt.Errorf("reload version: %w", err)
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteVersion is the admin correction path. The confirmed version and the
// version under client review cannot be removed, and completed orders are frozen.
func (s *Service) DeleteVersion(ctx context.Context, actor Actor, versionID string) error {
	if actor.Role != workflow.RoleAdmin {
		return orders.Errorf(orders.ErrForbidden, "only admins can delete versions")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, o, err := versionWithOrder(tx, versionID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return orders.Errorf(orders.ErrInvalidTransition, "order %s is completed", o.OrderNumber)
		}
		if o.ConfirmedVersionID != nil && *o.ConfirmedVersionID == v.ID {
			return orders.ErrConfirmedVersion
		}
		if err := checkUnderReview(tx, o, v); err != nil {
			return err
		}
		if err := claim(tx, o); err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", v.ID).Delete(&orders.Annotation{}).Error; err != nil {
			return fmt.Errorf("delete annotations: %w", err)
		}
		if err := tx.Delete(v).Error; err != nil {
			return fmt.Errorf("delete version: %w", err)
		}
		s.log.Info("version deleted", "order", o.OrderNumber, "type", v.VersionType, "number", v.VersionNumber)
		return nil
	})
}

// checkUnderReview keeps what the client is currently reviewing: the newest
// revision while one is awaiting feedback, and the last demo while the
// direction is open.
func checkUnderReview(tx *gorm.DB, o *orders.Order, v *orders.Version) error {
	switch {
	case v.VersionType == orders.VersionRevision &&
		(o.Status == orders.StatusVersionReady || o.Status == orders.StatusDelivered):
		var newer int64
		if err := tx.Model(&orders.Version{}).
			Where("order_id = ? AND version_type = ? AND version_number > ?", o.ID, v.VersionType, v.VersionNumber).
			Count(&newer).Error; err != nil {
			return fmt.Errorf("count versions: %w", err)
		}
		if newer == 0 {
			return orders.Errorf(orders.ErrInvalidTransition,
				"version %d of %s is under client review", v.VersionNumber, o.OrderNumber)
		}
	case v.VersionType == orders.VersionDemo && o.Status == orders.StatusDemoReady:
		var demos int64
		if err := tx.Model(&orders.Version{}).
			Where("order_id = ? AND version_type = ?", o.ID, orders.VersionDemo).
			Count(&demos).Error; err != nil {
			return fmt.Errorf("count demos: %w", err)
		}
		if demos <= 1 {
			return orders.Errorf(orders.ErrInvalidTransition,
				"%s has no other demo for the client to review", o.OrderNumber)
		}
	}
	return nil
}

func versionWithOrder(tx *gorm.DB, versionID string) (*orders.Version, *orders.Order, error) {
	var v orders.Version
	if err := tx.Where("id = ?", versionID).Take(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, orders.Errorf(orders.ErrNotFound, "version %s not found", versionID)
		}
		return nil, nil, fmt.Errorf("load version: %w", err)
	}
	o, err := loadOrder(tx, v.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return &v, o, nil
}
