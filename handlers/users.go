package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"crmhub/crypto"
	"crmhub/database"
	"crmhub/metrics"
	"crmhub/middleware"
	"crmhub/models"
	"crmhub/realtime"
	"crmhub/utils"
)

// UserHandler handles user management. Role gates are enforced at the route
// level with RequireRoles; handlers assume an authenticated caller.
type UserHandler struct {
	db      database.Database
	emitter *realtime.Emitter
}

// NewUserHandler creates a new user handler
func NewUserHandler(db database.Database, emitter *realtime.Emitter) *UserHandler {
	return &UserHandler{db: db, emitter: emitter}
}

// CreateUserRequest represents a user creation request
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Avatar   *string `json:"avatar"`
	Password *string `json:"password"`
}

// ListUsers returns all users, newest-first.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	ctx := context.Background()
	rows, err := h.db.Query(ctx, `
		SELECT id, email, name, role, avatar, created_at, updated_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		utils.LogError("USER_LIST", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch users"})
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var (
			u      models.User
			avatar *string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
			utils.LogError("USER_SCAN", err)
			continue
		}
		if avatar != nil {
			u.Avatar = *avatar
		}
		users = append(users, u)
	}

	return c.JSON(fiber.Map{"users": users})
}

// GetUser returns a single user by id.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx := context.Background()
	var (
		u      models.User
		avatar *string
	)
	err = h.db.QueryRow(ctx, `
		SELECT id, email, name, role, avatar, created_at, updated_at
		FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if avatar != nil {
		u.Avatar = *avatar
	}

	return c.JSON(u)
}

// CreateUser creates an account and emits user_created.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	origin, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email and name are required"})
	}
	if len(req.Password) < 8 {
		return c.Status(400).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}
	if req.Role == "" {
		req.Role = models.RoleSalesRep
	}
	if !models.ValidRole(req.Role) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid role"})
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		utils.LogError("PASSWORD_HASH", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create user"})
	}

	ctx := context.Background()
	var (
		u      models.User
		avatar *string
	)
	err = h.db.QueryRow(ctx, `
		INSERT INTO users (email, name, role, password_hash, avatar)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, email, name, role, avatar, created_at, updated_at`,
		req.Email, req.Name, req.Role, hash, req.Avatar).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		metrics.IncrementDatabaseQuery("insert", "error")
		if strings.Contains(err.Error(), "duplicate key") {
			return c.Status(409).JSON(fiber.Map{"error": "Email already in use"})
		}
		utils.LogError("USER_CREATE", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create user"})
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	metrics.IncrementDatabaseQuery("insert", "success")

	h.emitter.Emit(realtime.NewUserCreated(u, origin))

	return c.Status(201).JSON(u)
}

// UpdateUser applies a partial update and emits user_updated.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	origin, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argN := 1

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Name cannot be empty"})
		}
		sets = append(sets, sqlSet("name", &argN))
		args = append(args, name)
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid role"})
		}
		if middleware.GetRoleFromToken(c) != models.RoleAdmin {
			return c.Status(403).JSON(fiber.Map{"error": "Only admins can change roles"})
		}
		sets = append(sets, sqlSet("role", &argN))
		args = append(args, *req.Role)
	}
	if req.Avatar != nil {
		sets = append(sets, sqlSet("avatar", &argN))
		args = append(args, nullIfEmpty(*req.Avatar))
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return c.Status(400).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
		}
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			utils.LogError("PASSWORD_HASH", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to update user"})
		}
		sets = append(sets, sqlSet("password_hash", &argN))
		args = append(args, hash)
	}

	if len(args) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "No fields to update"})
	}

	args = append(args, userID)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(argN) +
		` RETURNING id, email, name, role, avatar, created_at, updated_at`

	ctx := context.Background()
	var (
		u      models.User
		avatar *string
	)
	err = h.db.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		metrics.IncrementDatabaseQuery("update", "error")
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	metrics.IncrementDatabaseQuery("update", "success")

	h.emitter.Emit(realtime.NewUserUpdated(u, origin))

	return c.JSON(u)
}

// DeleteUser removes an account and emits an id-only user_deleted event.
// Self-deletion is rejected so an admin cannot lock themselves out.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	origin, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid user ID"})
	}
	if userID == origin {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot delete your own account"})
	}

	ctx := context.Background()
	tag, err := h.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		metrics.IncrementDatabaseQuery("delete", "error")
		utils.LogError("USER_DELETE", err, "user_id", userID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to delete user"})
	}
	if tag.RowsAffected() == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}
	metrics.IncrementDatabaseQuery("delete", "success")

	h.emitter.Emit(realtime.NewUserDeleted(userID, origin))

	return c.JSON(fiber.Map{"message": "User deleted"})
}

func sqlSet(col string, argN *int) string {
	s := col + " = $" + strconv.Itoa(*argN)
	*argN++
	return s
}
