// Package ordersapi exposes the production workflow over HTTP.
package ordersapi

import (
	"errors"
	"net/http"
	"strings"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/app/http/middleware"
	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/production"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *production.Service
	db  *gorm.DB
}

func NewHandler(svc *production.Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

// Actor maps the token claims to a workflow actor. Tokens never carry the
// system role.
func Actor(c *gin.Context) production.Actor {
	role := workflow.RoleClient
	if c.GetString(middleware.KeyRole) == string(workflow.RoleAdmin) {
		role = workflow.RoleAdmin
	}
	return production.Actor{Role: role, Email: c.GetString(middleware.KeyEmail)}
}

// POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	actor := Actor(c)

	in := production.NewOrder{
		Kind:     orders.Kind(strings.ToLower(req.Kind)),
		Tier:     req.Tier,
		PriceEUR: req.PriceEUR,
		Email:    req.Email,
		Title:    req.Title,
		Brief:    req.Brief,
		Genre:    req.Genre,
		Language: req.Language,
		Script:   req.Script,
	}
	if actor.Role == workflow.RoleAdmin {
		in.TalentID = req.TalentID
	}

	switch {
	case req.PlanID != 0:
		var plan plans.Plan
		if err := h.db.WithContext(c.Request.Context()).First(&plan, req.PlanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respond.Error(c, orders.Errorf(orders.ErrValidation, "unknown plan %d", req.PlanID))
				return
			}
			respond.Error(c, err)
			return
		}
		in.Kind, in.Tier, in.PriceEUR = plan.Line, plan.Tier, plan.PriceEUR
	case actor.Role == workflow.RoleClient:
		respond.BadRequest(c, "plan_id is required")
		return
	}

	o, err := h.svc.CreateOrder(c.Request.Context(), actor, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(o, actor.Role))
}

// GET /orders?kind=&status=&email=
func (h *Handler) ListOrders(c *gin.Context) {
	actor := Actor(c)
	list, err := h.svc.ListOrders(c.Request.Context(), actor, production.Filter{
		Kind:   orders.Kind(c.Query("kind")),
		Status: orders.Status(c.Query("status")),
		Email:  c.Query("email"),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	out := make([]OrderResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i], actor.Role))
	}
	c.JSON(http.StatusOK, out)
}

// GET /orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	actor := Actor(c)
	o, err := h.svc.GetOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(o, actor.Role))
}

// GET /orders/:id/versions
func (h *Handler) ListVersions(c *gin.Context) {
	list, err := h.svc.ListVersions(c.Request.Context(), Actor(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /orders/:id/deliverables
func (h *Handler) ListDeliverables(c *gin.Context) {
	list, err := h.svc.ListDeliverables(c.Request.Context(), Actor(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /orders/:id/transitions
func (h *Handler) Transition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	actor := Actor(c)
	// clients cannot point the ledger at arbitrary files
	if actor.Role != workflow.RoleAdmin {
		req.Payload.Files = nil
	}

	o, err := h.svc.Transition(c.Request.Context(), c.Param("id"), actor, req.Action, req.Payload)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(o, actor.Role))
}

// PUT /versions/:id/feedback
func (h *Handler) RecordFeedback(c *gin.Context) {
	var fb production.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	v, err := h.svc.RecordFeedback(c.Request.Context(), Actor(c), c.Param("id"), fb)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /versions/:id/annotations
func (h *Handler) ListAnnotations(c *gin.Context) {
	list, err := h.svc.ListAnnotations(c.Request.Context(), Actor(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /versions/:id/annotations
func (h *Handler) CreateAnnotation(c *gin.Context) {
	var in production.AnnotationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	a, err := h.svc.RecordAnnotation(c.Request.Context(), Actor(c), c.Param("id"), c.Query("order_id"), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// DELETE /annotations/:id
func (h *Handler) DeleteAnnotation(c *gin.Context) {
	if err := h.svc.DeleteAnnotation(c.Request.Context(), Actor(c), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /orders/:id/payments
func (h *Handler) ListPayments(c *gin.Context) {
	o, err := h.svc.GetOrder(c.Request.Context(), Actor(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	var payments []billing.Payment
	if err := h.db.WithContext(c.Request.Context()).
		Where("order_id = ?", o.ID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
