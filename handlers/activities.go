package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"crmhub/database"
	"crmhub/metrics"
	"crmhub/middleware"
	"crmhub/models"
	"crmhub/realtime"
	"crmhub/utils"
)

// ActivityHandler handles the per-lead timeline: activities, plain notes and
// the single collaborative note document.
type ActivityHandler struct {
	db      database.Database
	emitter *realtime.Emitter
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(db database.Database, emitter *realtime.Emitter) *ActivityHandler {
	return &ActivityHandler{db: db, emitter: emitter}
}

// CreateActivityRequest represents an activity creation request
type CreateActivityRequest struct {
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Content string `json:"content"`
}

// SaveCollaborativeNoteRequest carries the full replacement content for a
// lead's shared note document. Last write wins.
type SaveCollaborativeNoteRequest struct {
	Content string `json:"content"`
}

// GetTimeline returns a lead's activities and notes, each newest-first.
func (h *ActivityHandler) GetTimeline(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	ctx := context.Background()

	activities := []models.Activity{}
	rows, err := h.db.Query(ctx, `
		SELECT id, lead_id, user_id, type, title, description, scheduled_at, completed_at, created_at
		FROM activities WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
	if err != nil {
		utils.LogError("TIMELINE_ACTIVITIES", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch timeline"})
	}
	for rows.Next() {
		var (
			a    models.Activity
			desc *string
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &a.UserID, &a.Type, &a.Title, &desc,
			&a.ScheduledAt, &a.CompletedAt, &a.CreatedAt); err != nil {
			rows.Close()
			utils.LogError("TIMELINE_SCAN", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch timeline"})
		}
		if desc != nil {
			a.Description = *desc
		}
		activities = append(activities, a)
	}
	rows.Close()

	notes := []models.Note{}
	rows, err = h.db.Query(ctx, `
		SELECT id, lead_id, user_id, content, is_collaborative, created_at, updated_at
		FROM notes WHERE lead_id = $1 ORDER BY updated_at DESC`, leadID)
	if err != nil {
		utils.LogError("TIMELINE_NOTES", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch timeline"})
	}
	defer rows.Close()
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.UserID, &n.Content, &n.IsCollaborative,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			utils.LogError("TIMELINE_SCAN", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch timeline"})
		}
		notes = append(notes, n)
	}

	return c.JSON(fiber.Map{
		"activities": activities,
		"notes":      notes,
	})
}

// CreateActivity records a timeline activity and emits activity_added.
func (h *ActivityHandler) CreateActivity(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var req CreateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Title is required"})
	}
	if !models.ValidActivityType(req.Type) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid activity type"})
	}

	ctx := context.Background()
	var (
		a    models.Activity
		desc *string
	)
	err = h.db.QueryRow(ctx, `
		INSERT INTO activities (lead_id, user_id, type, title, description, scheduled_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, lead_id, user_id, type, title, description, scheduled_at, completed_at, created_at`,
		leadID, userID, req.Type, req.Title, req.Description, req.ScheduledAt).
		Scan(&a.ID, &a.LeadID, &a.UserID, &a.Type, &a.Title, &desc,
			&a.ScheduledAt, &a.CompletedAt, &a.CreatedAt)
	if err != nil {
		metrics.IncrementDatabaseQuery("insert", "error")
		utils.LogError("ACTIVITY_CREATE", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create activity"})
	}
	if desc != nil {
		a.Description = *desc
	}
	metrics.IncrementDatabaseQuery("insert", "success")

	h.emitter.Emit(realtime.NewActivityAdded(a, userID))

	return c.Status(201).JSON(a)
}

// CreateNote adds a plain (non-collaborative) note and emits note_updated
// without content, which asks timeline consumers to reload.
func (h *ActivityHandler) CreateNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var req CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Content is required"})
	}

	ctx := context.Background()
	var n models.Note
	err = h.db.QueryRow(ctx, `
		INSERT INTO notes (lead_id, user_id, content, is_collaborative)
		VALUES ($1, $2, $3, false)
		RETURNING id, lead_id, user_id, content, is_collaborative, created_at, updated_at`,
		leadID, userID, req.Content).
		Scan(&n.ID, &n.LeadID, &n.UserID, &n.Content, &n.IsCollaborative, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		metrics.IncrementDatabaseQuery("insert", "error")
		utils.LogError("NOTE_CREATE", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create note"})
	}
	metrics.IncrementDatabaseQuery("insert", "success")

	h.emitter.Emit(realtime.NewNoteUpdated(leadID, userID, nil))

	return c.Status(201).JSON(n)
}

// SaveCollaborativeNote upserts the single shared note document for a lead
// and emits note_updated carrying the new content. Concurrent saves resolve
// last-write-wins; there is no merge.
func (h *ActivityHandler) SaveCollaborativeNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var req SaveCollaborativeNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	ctx := context.Background()
	var n models.Note
	err = h.db.QueryRow(ctx, `
		INSERT INTO notes (lead_id, user_id, content, is_collaborative)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (lead_id) WHERE is_collaborative
		DO UPDATE SET content = EXCLUDED.content, user_id = EXCLUDED.user_id, updated_at = NOW()
		RETURNING id, lead_id, user_id, content, is_collaborative, created_at, updated_at`,
		leadID, userID, req.Content).
		Scan(&n.ID, &n.LeadID, &n.UserID, &n.Content, &n.IsCollaborative, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		metrics.IncrementDatabaseQuery("upsert", "error")
		utils.LogError("NOTE_SAVE", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save note"})
	}
	metrics.IncrementDatabaseQuery("upsert", "success")

	content := n.Content
	h.emitter.Emit(realtime.NewNoteUpdated(leadID, userID, &content))

	return c.JSON(n)
}

// GetCollaborativeNote returns the shared note document for a lead, or an
// empty document if none exists yet.
func (h *ActivityHandler) GetCollaborativeNote(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	ctx := context.Background()
	var n models.Note
	err = h.db.QueryRow(ctx, `
		SELECT id, lead_id, user_id, content, is_collaborative, created_at, updated_at
		FROM notes WHERE lead_id = $1 AND is_collaborative`, leadID).
		Scan(&n.ID, &n.LeadID, &n.UserID, &n.Content, &n.IsCollaborative, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return c.JSON(fiber.Map{"lead_id": leadID, "content": ""})
	}

	return c.JSON(n)
}
