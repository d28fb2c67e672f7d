package ordersapi

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"
	stripestatus "studio-orders/internal/infra/stripe"
	"studio-orders/internal/production"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// POST /admin/orders/:id/versions
// multipart: action (upload_demos|upload_revision|deliver_version), notes, files[]
func (h *Handler) UploadVersions(c *gin.Context) {
	action := workflow.Action(c.PostForm("action"))
	switch action {
	case workflow.ActionUploadDemos, workflow.ActionUploadRevision, workflow.ActionDeliverVersion:
	default:
		respond.BadRequest(c, "action must be upload_demos, upload_revision or deliver_version")
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		respond.BadRequest(c, "invalid multipart form")
		return
	}
	h.upload(c, action, form.File["files"], workflow.Payload{Notes: c.PostForm("notes")}, "")
}

// POST /admin/orders/:id/deliverables
// multipart: file, label, file_type
func (h *Handler) UploadDeliverable(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respond.BadRequest(c, "file is required")
		return
	}
	h.upload(c, workflow.ActionAddDeliverable, []*multipart.FileHeader{fh}, workflow.Payload{}, c.PostForm("label"))
}

func (h *Handler) upload(c *gin.Context, action workflow.Action, headers []*multipart.FileHeader, p workflow.Payload, label string) {
	if len(headers) == 0 {
		respond.BadRequest(c, "at least one file is required")
		return
	}
	fileType := c.PostForm("file_type")

	files := make([]production.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respond.BadRequest(c, "cannot read "+fh.Filename)
			return
		}
		defer f.Close()
		files = append(files, production.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
			FileType:    fileType,
			Label:       label,
		})
	}

	o, err := h.svc.UploadAndTransition(c.Request.Context(), c.Param("id"), Actor(c), action, files, p)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(o, workflow.RoleAdmin))
}

// DELETE /admin/deliverables/:id
func (h *Handler) RemoveDeliverable(c *gin.Context) {
	ctx := c.Request.Context()
	orderID, err := h.svc.DeliverableOrder(ctx, c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	o, err := h.svc.Transition(ctx, orderID, Actor(c), workflow.ActionRemoveDeliverable,
		workflow.Payload{DeliverableID: c.Param("id")})
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(o, workflow.RoleAdmin))
}

// DELETE /admin/versions/:id
func (h *Handler) DeleteVersion(c *gin.Context) {
	if err := h.svc.DeleteVersion(c.Request.Context(), Actor(c), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /admin/orders/:id/confirm-payment
// Records a payment taken outside Stripe and confirms it on the order.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req manualPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, err.Error())
			return
		}
	}
	ctx := c.Request.Context()
	actor := Actor(c)

	// the payment row and the status change commit together
	o, err := h.svc.TransitionWith(ctx, c.Param("id"), actor, workflow.ActionConfirmPayment, workflow.Payload{},
		func(tx *gorm.DB, o *orders.Order) error {
			amount := o.PriceEUR
			if req.AmountEUR != nil {
				amount = *req.AmountEUR
			}
			payment := billing.Payment{
				OrderID:   o.ID,
				AmountEUR: amount,
				Status:    stripestatus.PaymentPaid,
				Source:    "manual",
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("record payment: %w", err)
			}
			return nil
		})
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(o, actor.Role))
}
