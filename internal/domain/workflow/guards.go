package workflow

import (
	"strings"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
)

func all(guards ...Guard) Guard {
	return func(s Snapshot, p Payload) error {
		for _, g := range guards {
			if err := g(s, p); err != nil {
				return err
			}
		}
		return nil
	}
}

func deliveryDatePresent(_ Snapshot, p Payload) error {
	if p.DeliveryDate == nil || p.DeliveryDate.IsZero() {
		return orders.Errorf(orders.ErrValidation, "an estimated delivery date is required")
	}
	return nil
}

func hasFiles(_ Snapshot, p Payload) error {
	if len(p.Files) == 0 {
		return orders.Errorf(orders.ErrValidation, "at least one file is required")
	}
	for _, f := range p.Files {
		if strings.TrimSpace(f.URL) == "" {
			return orders.Errorf(orders.ErrValidation, "file %q has no stored url", f.Name)
		}
	}
	return nil
}

func singleFile(s Snapshot, p Payload) error {
	if err := hasFiles(s, p); err != nil {
		return err
	}
	if len(p.Files) > 1 {
		return orders.Errorf(orders.ErrValidation, "exactly one file is expected")
	}
	return nil
}

func noteRequired(_ Snapshot, p Payload) error {
	if strings.TrimSpace(p.Notes) == "" {
		return orders.Errorf(orders.ErrValidation, "a delivery note is required")
	}
	return nil
}

func directionOpen(s Snapshot, _ Payload) error {
	if s.Order.DirectionLocked() {
		return orders.Errorf(orders.ErrInvalidTransition, "direction already confirmed, upload a revision instead")
	}
	return nil
}

func directionLocked(s Snapshot, _ Payload) error {
	if !s.Order.DirectionLocked() {
		return orders.Errorf(orders.ErrInvalidTransition, "no direction confirmed yet, upload demos instead")
	}
	return nil
}

func versionNamed(_ Snapshot, p Payload) error {
	if strings.TrimSpace(p.VersionID) == "" {
		return orders.Errorf(orders.ErrValidation, "version_id is required")
	}
	return nil
}

func hasSelection(s Snapshot, p Payload) error {
	if s.Selected == nil && strings.TrimSpace(p.VersionID) == "" {
		return orders.Errorf(orders.ErrValidation, "select a demo before confirming the direction")
	}
	return nil
}

func hasLatest(s Snapshot, p Payload) error {
	if s.Latest == nil && strings.TrimSpace(p.VersionID) == "" {
		return orders.Errorf(orders.ErrNotFound, "no version to act on")
	}
	return nil
}

func withinBudget(s Snapshot, _ Payload) error {
	if plans.Exhausted(s.Order.RevisionsUsed, s.Order.MaxRevisions) {
		return orders.Errorf(orders.ErrBudgetExhausted,
			"revision limit reached (%d of %d used)", s.Order.RevisionsUsed, s.Order.MaxRevisions)
	}
	return nil
}

func changeRequested(_ Snapshot, p Payload) error {
	if strings.TrimSpace(p.RevisionRequest) == "" {
		return orders.Errorf(orders.ErrValidation, "describe the requested changes")
	}
	return nil
}

func deliverableNamed(_ Snapshot, p Payload) error {
	if strings.TrimSpace(p.DeliverableID) == "" {
		return orders.Errorf(orders.ErrValidation, "deliverable_id is required")
	}
	return nil
}

// CanComplete is the single rule gating the terminal transition.
func CanComplete(deliverables int) bool { return deliverables > 0 }

func canComplete(s Snapshot, _ Payload) error {
	if !CanComplete(s.Deliverables) {
		return orders.Errorf(orders.ErrInvalidTransition, "at least one deliverable is required to complete the order")
	}
	return nil
}
