package routes

import (
	"net/http"
	"time"

	adminapi "studio-orders/internal/api/admin"
	authapi "studio-orders/internal/api/auth"
	"studio-orders/internal/api/billing"
	ordersapi "studio-orders/internal/api/orders"
	"studio-orders/internal/api/plans"
	stripewebhooks "studio-orders/internal/api/stripewebhook"
	usersapi "studio-orders/internal/api/users"
	"studio-orders/internal/app/http/middleware"
	"studio-orders/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Orders  *ordersapi.Handler
	Auth    *authapi.Handler
	Billing *billing.Handler
	Plans   *plans.Handler
	Admin   *adminapi.Handler
	Users   *usersapi.Handler
	Webhook *stripewebhooks.Handler
	Metrics *metrics.Metrics

	JWTSecret      string
	IdempotencyTTL time.Duration
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/auth/register", h.Auth.Register)
	public.POST("/auth/login", h.Auth.Login)
	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)
	public.GET("/plans", h.Plans.ListPlans)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.SanitizeAndCleanInputMiddleware())
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.POST("/orders", h.Orders.CreateOrder)
	auth.GET("/orders", h.Orders.ListOrders)
	auth.GET("/orders/:id", h.Orders.GetOrder)
	auth.GET("/orders/:id/versions", h.Orders.ListVersions)
	auth.GET("/orders/:id/deliverables", h.Orders.ListDeliverables)
	auth.GET("/orders/:id/payments", h.Orders.ListPayments)
	auth.POST("/orders/:id/checkout", h.Billing.CreateCheckoutSession)
	auth.POST("/orders/:id/transitions", middleware.Idempotency(h.IdempotencyTTL), h.Orders.Transition)

	auth.PUT("/versions/:id/feedback", h.Orders.RecordFeedback)
	auth.GET("/versions/:id/annotations", h.Orders.ListAnnotations)
	auth.POST("/versions/:id/annotations", h.Orders.CreateAnnotation)
	auth.DELETE("/annotations/:id", h.Orders.DeleteAnnotation)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.POST("/orders/:id/versions", h.Orders.UploadVersions)
	admin.POST("/orders/:id/deliverables", h.Orders.UploadDeliverable)
	admin.POST("/orders/:id/confirm-payment", h.Orders.ConfirmPayment)
	admin.DELETE("/deliverables/:id", h.Orders.RemoveDeliverable)
	admin.DELETE("/versions/:id", h.Orders.DeleteVersion)

	admin.GET("/stats", h.Admin.Stats)
	admin.GET("/payments", h.Admin.ListAllPayments)
	admin.GET("/outbox", h.Admin.ListOutbox)
	admin.POST("/outbox/:id/retry", h.Admin.RetryOutboxEvent)
	admin.POST("/sync-plans", h.Plans.SyncPlansFromStripe)
}
