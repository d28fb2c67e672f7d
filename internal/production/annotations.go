package production

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"

	"gorm.io/gorm"
)

type AnnotationInput struct {
	TimeStart      float64               `json:"time_start"`
	TimeEnd        *float64              `json:"time_end"`
	AnnotationType orders.AnnotationType `json:"annotation_type"`
	Category       string                `json:"category"`
	Label          string                `json:"label"`
	Notes          string                `json:"notes"`
}

func (in AnnotationInput) validate() error {
	if in.TimeStart < 0 {
		return orders.Errorf(orders.ErrValidation, "time_start cannot be negative")
	}
	if in.TimeEnd != nil && *in.TimeEnd <= in.TimeStart {
		return orders.Errorf(orders.ErrValidation, "time_end must be after time_start")
	}
	if !in.AnnotationType.Valid() {
		return orders.Errorf(orders.ErrValidation, "unknown annotation type %q", in.AnnotationType)
	}
	if !plans.KnownCategory(in.Category) {
		return orders.Errorf(orders.ErrValidation, "unknown category %q", in.Category)
	}
	return nil
}

// RecordAnnotation stores time-stamped client feedback on a music version.
// orderID may be empty, in which case the version's order is used.
func (s *Service) RecordAnnotation(ctx context.Context, actor Actor, versionID, orderID string, in AnnotationInput) (*orders.Annotation, error) {
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out *orders.Annotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, o, err := versionWithOrder(tx, versionID)
		if err != nil {
			return err
		}
		if orderID != "" && orderID != o.ID {
			return orders.Errorf(orders.ErrNotFound, "version %s does not belong to order %s", versionID, orderID)
		}
		if actor.Role != workflow.RoleClient || !actor.owns(o) {
			return orders.Errorf(orders.ErrForbidden, "only the client of %s can annotate", o.OrderNumber)
		}
		if o.Kind != orders.KindMusic {
			return orders.Errorf(orders.ErrValidation, "annotations are only available on music orders")
		}
		if o.Status.Terminal() {
			return orders.Errorf(orders.ErrInvalidTransition, "order %s is completed", o.OrderNumber)
		}
		if !plans.CategoryUnlocked(o.Tier, in.Category) {
			return orders.Errorf(orders.ErrForbidden, "category %q is not included in the %s tier", in.Category, o.Tier)
		}

		a := &orders.Annotation{
			VersionID:      v.ID,
			OrderID:        o.ID,
			TimeStart:      in.TimeStart,
			TimeEnd:        in.TimeEnd,
			AnnotationType: in.AnnotationType,
			Category:       in.Category,
			Label:          strings.TrimSpace(in.Label),
			Notes:          strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("record annotation: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAnnotations returns a version's annotations by time_start.
func (s *Service) ListAnnotations(ctx context.Context, actor Actor, versionID string) ([]orders.Annotation, error) {
	db := s.db.WithContext(ctx)
	_, o, err := versionWithOrder(db, versionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, o); err != nil {
		return nil, err
	}
	var list []orders.Annotation
	if err := db.Where("version_id = ?", versionID).Order("time_start ASC, created_at ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return list, nil
}

// DeleteAnnotation removes an annotation. Annotations are never edited.
func (s *Service) DeleteAnnotation(ctx context.Context, actor Actor, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a orders.Annotation
		if err := tx.Where("id = ?", id).Take(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.Errorf(orders.ErrNotFound, "annotation %s not found", id)
			}
			return fmt.Errorf("load annotation: %w", err)
		}
		o, err := loadOrder(tx, a.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(actor, o); err != nil {
			return err
		}
		if o.Status.Terminal() {
			return orders.Errorf(orders.ErrInvalidTransition, "order %s is completed", o.OrderNumber)
		}
		if err := tx.Delete(&a).Error; err != nil {
			return fmt.Errorf("delete annotation: %w", err)
		}
		return nil
	})
}
