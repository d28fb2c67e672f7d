package admin

import (
	"net/http"
	"time"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	stripestatus "studio-orders/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type AdminPayment struct {
	ID          uint    `json:"id"`
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Email       string  `json:"email"`
	AmountEUR   float64 `json:"amount_eur"`
	Status      string  `json:"status"`
	Source      string  `json:"source"`
	ReceiptURL  *string `json:"receipt_url,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type AdminStats struct {
	OrdersByStatus map[string]int `json:"orders_by_status"`
	OrdersByKind   map[string]int `json:"orders_by_kind"`
	TotalRevenue   float64        `json:"total_revenue"`
	RecentRevenue  float64        `json:"recent_revenue"`
	OutboxPending  int64          `json:"outbox_pending"`
	OutboxFailed   int64          `json:"outbox_failed"`
}

// GET /admin/stats
func (h *Handler) Stats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	stats := AdminStats{OrdersByStatus: map[string]int{}, OrdersByKind: map[string]int{}}

	type bucket struct {
		Label string
		Count int
	}
	var byStatus, byKind []bucket
	if err := db.Model(&orders.Order{}).Select("status AS label, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		respond.Error(c, err)
		return
	}
	if err := db.Model(&orders.Order{}).Select("kind AS label, COUNT(*) AS count").Group("kind").Scan(&byKind).Error; err != nil {
		respond.Error(c, err)
		return
	}
	for _, b := range byStatus {
		stats.OrdersByStatus[b.Label] = b.Count
	}
	for _, b := range byKind {
		stats.OrdersByKind[b.Label] = b.Count
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	if err := db.Model(&billing.Payment{}).Where("status = ?", stripestatus.PaymentPaid).
		Select("COALESCE(SUM(amount_eur), 0)").Scan(&stats.TotalRevenue).Error; err != nil {
		respond.Error(c, err)
		return
	}
	if err := db.Model(&billing.Payment{}).Where("status = ? AND created_at >= ?", stripestatus.PaymentPaid, thirtyDaysAgo).
		Select("COALESCE(SUM(amount_eur), 0)").Scan(&stats.RecentRevenue).Error; err != nil {
		respond.Error(c, err)
		return
	}

	if err := db.Model(&outbox.Event{}).Where("status IN ?", []outbox.Status{outbox.StatusPending, outbox.StatusProcessing}).
		Count(&stats.OutboxPending).Error; err != nil {
		respond.Error(c, err)
		return
	}
	if err := db.Model(&outbox.Event{}).Where("status = ?", outbox.StatusFailed).Count(&stats.OutboxFailed).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GET /admin/payments
func (h *Handler) ListAllPayments(c *gin.Context) {
	type row struct {
		billing.Payment
		OrderNumber string
		Email       string
	}
	var rows []row
	err := h.db.WithContext(c.Request.Context()).
		Table("payments").
		Select("payments.*, orders.order_number, orders.email").
		Joins("JOIN orders ON orders.id = payments.order_id").
		Order("payments.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		respond.Error(c, err)
		return
	}

	result := make([]AdminPayment, 0, len(rows))
	for _, p := range rows {
		result = append(result, AdminPayment{
			ID:          p.ID,
			OrderID:     p.OrderID,
			OrderNumber: p.OrderNumber,
			Email:       p.Email,
			AmountEUR:   p.AmountEUR,
			Status:      p.Status,
			Source:      p.Source,
			ReceiptURL:  p.ReceiptURL,
			CreatedAt:   p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	c.JSON(http.StatusOK, result)
}

// GET /admin/outbox?status=failed
func (h *Handler) ListOutbox(c *gin.Context) {
	status := c.DefaultQuery("status", string(outbox.StatusFailed))
	var events []outbox.Event
	err := h.db.WithContext(c.Request.Context()).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(200).
		Find(&events).Error
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// POST /admin/outbox/:id/retry puts a failed event back in the queue.
func (h *Handler) RetryOutboxEvent(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&outbox.Event{}).
		Where("id = ? AND status = ?", c.Param("id"), outbox.StatusFailed).
		Updates(map[string]any{
			"status":          outbox.StatusPending,
			"attempts":        0,
			"next_attempt_at": time.Now(),
		})
	if res.Error != nil {
		respond.Error(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respond.Error(c, orders.Errorf(orders.ErrNotFound, "no failed event %s", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "requeued"})
}
