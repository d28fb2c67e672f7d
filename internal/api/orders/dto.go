package ordersapi

import (
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
)

type OrderResponse struct {
	*orders.Order
	AwaitingFinalUpload bool              `json:"awaiting_final_upload"`
	RevisionsRemaining  int               `json:"revisions_remaining"`
	AvailableActions    []workflow.Action `json:"available_actions"`
}

func toResponse(o *orders.Order, role workflow.Role) OrderResponse {
	actions := workflow.Available(o.Kind, o.Status, role)
	if actions == nil {
		actions = []workflow.Action{}
	}
	return OrderResponse{
		Order:               o,
		AwaitingFinalUpload: o.AwaitingFinalUpload(),
		RevisionsRemaining:  plans.Remaining(o.RevisionsUsed, o.MaxRevisions),
		AvailableActions:    actions,
	}
}

type createOrderRequest struct {
	// PlanID fixes kind, tier and price from the catalogue. Required for clients.
	PlanID   uint    `json:"plan_id"`
	Kind     string  `json:"kind"`
	Tier     string  `json:"tier"`
	PriceEUR float64 `json:"price_eur"`
	Email    string  `json:"email"`
	TalentID *string `json:"talent_id"`
	Title    string  `json:"title" binding:"max=200"`
	Brief    string  `json:"brief" binding:"max=5000"`
	Genre    string  `json:"genre" binding:"max=100"`
	Language string  `json:"language" binding:"max=50"`
	Script   string  `json:"script" binding:"max=20000"`
}

type transitionRequest struct {
	Action  workflow.Action  `json:"action" binding:"required"`
	Payload workflow.Payload `json:"payload"`
}

type manualPaymentRequest struct {
	AmountEUR *float64 `json:"amount_eur"`
}
