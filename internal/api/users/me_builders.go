package users

import (
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	domain "studio-orders/internal/domain/users"
	"studio-orders/internal/domain/workflow"
)

func buildUserDTO(u domain.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Lastname:     u.Lastname,
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
	}
}

// buildOrdersSummary counts orders per status and picks the ones waiting on
// a client action.
func buildOrdersSummary(list []orders.Order) OrdersSummary {
	s := OrdersSummary{
		Total:       len(list),
		ByStatus:    map[string]int{},
		AwaitingYou: []OrderLiteDTO{},
	}
	for _, o := range list {
		s.ByStatus[string(o.Status)]++
		if len(workflow.Available(o.Kind, o.Status, workflow.RoleClient)) == 0 {
			continue
		}
		s.AwaitingYou = append(s.AwaitingYou, OrderLiteDTO{
			ID:                 o.ID,
			OrderNumber:        o.OrderNumber,
			Kind:               string(o.Kind),
			Status:             string(o.Status),
			RevisionsRemaining: plans.Remaining(o.RevisionsUsed, o.MaxRevisions),
		})
	}
	return s
}
