package plans

import (
	"errors"
	"net/http"
	"strings"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
	"gorm.io/gorm"
)

// PriceLister is satisfied by *price.Client.
type PriceLister interface {
	List(params *stripe.PriceListParams) *price.Iter
}

func NewPriceClient(key string) *price.Client {
	return &price.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key}
}

type Handler struct {
	db     *gorm.DB
	prices PriceLister
}

func NewHandler(db *gorm.DB, prices PriceLister) *Handler {
	return &Handler{db: db, prices: prices}
}

type syncResult int

const (
	syncSkipped syncResult = iota
	syncCreated
	syncUpdated
)

// POST /admin/sync-plans mirrors active one-time EUR prices into the catalogue.
// Prices are mapped through their metadata: line (music|voice) and tier.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	if h.prices == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.Type = stripe.String(string(stripe.PriceTypeOneTime))
	params.AddExpand("data.product")

	it := h.prices.List(params)
	db := h.db.WithContext(c.Request.Context())

	counts := map[syncResult]int{}
	for it.Next() {
		r, err := upsertPlan(db, it.Price())
		if err != nil {
			respond.Error(c, err)
			return
		}
		counts[r]++
	}
	if err := it.Err(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":  counts[syncCreated] + counts[syncUpdated],
		"created": counts[syncCreated],
		"updated": counts[syncUpdated],
		"skipped": counts[syncSkipped],
	})
}

func upsertPlan(db *gorm.DB, p *stripe.Price) (syncResult, error) {
	if p == nil || !p.Active || string(p.Currency) != "eur" {
		return syncSkipped, nil
	}
	if p.Product != nil && !p.Product.Active {
		return syncSkipped, nil
	}
	if p.Metadata["visible"] == "false" {
		return syncSkipped, nil
	}

	line := plans.Line(strings.ToLower(p.Metadata["line"]))
	if !line.Valid() {
		return syncSkipped, nil
	}
	amount := float64(p.UnitAmount) / 100.0
	tier := plans.NormalizeTier(line, p.Metadata["tier"], amount)

	name := p.Nickname
	if p.Product != nil && p.Product.Name != "" {
		name = p.Product.Name
	}
	if v := p.Metadata["plan"]; v != "" {
		name = v
	}

	var existing plans.Plan
	err := db.Where("stripe_price_id = ?", p.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		plan := plans.Plan{Name: name, Line: line, Tier: tier, PriceEUR: amount, StripePriceID: p.ID}
		if err := db.Create(&plan).Error; err != nil {
			return syncSkipped, err
		}
		return syncCreated, nil
	}
	if err != nil {
		return syncSkipped, err
	}

	existing.Name = name
	existing.Line = line
	existing.Tier = tier
	existing.PriceEUR = amount
	if err := db.Save(&existing).Error; err != nil {
		return syncSkipped, err
	}
	return syncUpdated, nil
}

// GET /plans?line=music
func (h *Handler) ListPlans(c *gin.Context) {
	var plansList []plans.Plan
	q := h.db.WithContext(c.Request.Context()).Model(&plans.Plan{})
	if line := c.Query("line"); line != "" {
		q = q.Where("line = ?", line)
	}
	if err := q.Order("line ASC, price_eur ASC").Find(&plansList).Error; err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, plansList)
}
