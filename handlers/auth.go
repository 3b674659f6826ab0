package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appconfig "crmhub/config"
	"crmhub/crypto"
	"crmhub/database"
	"crmhub/metrics"
	"crmhub/models"
	"crmhub/utils"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	db     database.Database
	config *appconfig.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db database.Database, config *appconfig.Config) *AuthHandler {
	return &AuthHandler{db: db, config: config}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a JWT carrying the (user_id, role)
// pair that the rest of the system trusts.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email and password are required"})
	}

	ctx := context.Background()
	var (
		user         models.User
		passwordHash string
		avatar       *string
	)
	err := h.db.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, avatar, created_at, updated_at
		FROM users WHERE email = $1`,
		req.Email).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &passwordHash, &avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		metrics.IncrementError("auth", "login")
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if avatar != nil {
		user.Avatar = *avatar
	}

	if !crypto.VerifyPassword(req.Password, passwordHash) {
		metrics.IncrementError("auth", "login")
		return c.Status(401).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := h.issueToken(user.ID, user.Role)
	if err != nil {
		utils.LogError("TOKEN_ISSUE", err, "user_id", user.ID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uuid.UUID)

	ctx := context.Background()
	var (
		user   models.User
		avatar *string
	)
	err := h.db.QueryRow(ctx, `
		SELECT id, email, name, role, avatar, created_at, updated_at
		FROM users WHERE id = $1`,
		userID).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &avatar, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if avatar != nil {
		user.Avatar = *avatar
	}

	return c.JSON(user)
}

func (h *AuthHandler) issueToken(userID uuid.UUID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(h.config.SessionDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.config.JWTSecret)
}
