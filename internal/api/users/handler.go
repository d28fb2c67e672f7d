// Package users serves the signed-in account.
package users

import (
	"errors"
	"net/http"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/app/http/middleware"
	"studio-orders/internal/domain/orders"
	domain "studio-orders/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// GET /me returns the profile and an overview of the caller's orders.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	email := c.GetString(middleware.KeyEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var user domain.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respond.Error(c, err)
		return
	}

	var list []orders.Order
	if err := db.Where("LOWER(email) = LOWER(?)", email).Order("created_at DESC").Find(&list).Error; err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:   buildUserDTO(user),
		Orders: buildOrdersSummary(list),
	})
}
