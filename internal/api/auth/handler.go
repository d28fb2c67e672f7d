package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"studio-orders/internal/api/respond"
	"studio-orders/internal/domain/users"
	"studio-orders/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

type Config struct {
	JWTSecret string
	// Google sign-in is disabled when OAuth is nil.
	OAuth            *oauth2.Config
	FrontendRedirect string
}

type Handler struct {
	db  *gorm.DB
	cfg Config
}

func NewHandler(db *gorm.DB, cfg Config) *Handler {
	return &Handler{db: db, cfg: cfg}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

// POST /auth/register creates a client account and returns its token.
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Lastname string `json:"lastname"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if !isPasswordStrong(input.Password) {
		respond.BadRequest(c, "Password must be at least 8 characters long and contain both letters and numbers")
		return
	}
	if !isEmailValid(input.Email) {
		respond.BadRequest(c, "Invalid email format")
		return
	}

	user, err := CreateUser(h.db.WithContext(c.Request.Context()), input.Name, input.Lastname, input.Email, input.Password, users.RoleClient)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	token, err := issueAppJWT(user, h.cfg.JWTSecret)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "role": user.Role})
}

// CreateUser stores a password account. Also used by the admin CLI.
func CreateUser(db *gorm.DB, name, lastname, email, password, role string) (users.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return users.User{}, err
	}
	h := string(hashed)
	user := users.User{
		Name:         name,
		Lastname:     lastname,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Password:     &h,
		AuthProvider: "local",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		return users.User{}, err
	}
	logging.Module("auth").Info("user created", "email", user.Email, "role", user.Role)
	return user, nil
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var user users.User
	err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).
		First(&user).Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if user.Password == nil || *user.Password == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := issueAppJWT(user, h.cfg.JWTSecret)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role})
}

func issueAppJWT(user users.User, secret string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return t.SignedString([]byte(secret))
}
