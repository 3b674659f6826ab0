package handlers

import (
	"context"
	"fmt"
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

// LeadHandler handles lead CRUD requests. Every successful mutation emits a
// change event after the database commit so other clients can reconcile.
type LeadHandler struct {
	db      database.Database
	emitter *realtime.Emitter
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(db database.Database, emitter *realtime.Emitter) *LeadHandler {
	return &LeadHandler{db: db, emitter: emitter}
}

// CreateLeadRequest represents a lead creation request
type CreateLeadRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	Value      int64  `json:"value"`
	Source     string `json:"source"`
	AssignedTo string `json:"assigned_to"`
}

// UpdateLeadRequest is a partial update; nil fields are left untouched.
type UpdateLeadRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Company    *string `json:"company"`
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	Value      *int64  `json:"value"`
	Source     *string `json:"source"`
	AssignedTo *string `json:"assigned_to"`
}

const leadColumns = `id, name, email, phone, company, status, priority, value, source,
	assigned_to, created_by, created_at, updated_at, closed_at`

func scanLead(row interface{ Scan(dest ...any) error }) (models.Lead, error) {
	var (
		lead           models.Lead
		phone, company *string
	)
	err := row.Scan(&lead.ID, &lead.Name, &lead.Email, &phone, &company,
		&lead.Status, &lead.Priority, &lead.Value, &lead.Source,
		&lead.AssignedTo, &lead.CreatedBy, &lead.CreatedAt, &lead.UpdatedAt, &lead.ClosedAt)
	if err != nil {
		return models.Lead{}, err
	}
	if phone != nil {
		lead.Phone = *phone
	}
	if company != nil {
		lead.Company = *company
	}
	return lead, nil
}

// ListLeads returns leads newest-first, optionally filtered by status,
// priority, assignee or a fuzzy name/company search.
func (h *LeadHandler) ListLeads(c *fiber.Ctx) error {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if status := c.Query("status"); status != "" {
		if !models.ValidLeadStatus(status) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid status filter"})
		}
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, status)
		argN++
	}
	if priority := c.Query("priority"); priority != "" {
		if !models.ValidPriority(priority) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid priority filter"})
		}
		query += fmt.Sprintf(" AND priority = $%d", argN)
		args = append(args, priority)
		argN++
	}
	if assigned := c.Query("assigned_to"); assigned != "" {
		assignedID, err := uuid.Parse(assigned)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid assigned_to filter"})
		}
		query += fmt.Sprintf(" AND assigned_to = $%d", argN)
		args = append(args, assignedID)
		argN++
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d)", argN, argN, argN)
		args = append(args, "%"+search+"%")
		argN++
	}
	query += " ORDER BY created_at DESC"

	ctx := context.Background()
	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		metrics.IncrementDatabaseQuery("select", "error")
		utils.LogError("LEAD_LIST", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch leads"})
	}
	defer rows.Close()
	metrics.IncrementDatabaseQuery("select", "success")

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			utils.LogError("LEAD_SCAN", err)
			continue
		}
		leads = append(leads, lead)
	}

	return c.JSON(fiber.Map{"leads": leads})
}

// GetLead returns a single lead by id.
func (h *LeadHandler) GetLead(c *fiber.Ctx) error {
	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	ctx := context.Background()
	lead, err := scanLead(h.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID))
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Lead not found"})
	}

	return c.JSON(lead)
}

// CreateLead inserts a lead and emits lead_created after the commit.
func (h *LeadHandler) CreateLead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req CreateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name and email are required"})
	}
	if req.Status == "" {
		req.Status = models.LeadStatusNew
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Source == "" {
		req.Source = models.SourceOther
	}
	if !models.ValidLeadStatus(req.Status) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid status"})
	}
	if !models.ValidPriority(req.Priority) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid priority"})
	}
	if !models.ValidSource(req.Source) {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid source"})
	}
	if req.Value < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Value cannot be negative"})
	}

	var assignedTo *uuid.UUID
	if req.AssignedTo != "" {
		id, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid assigned_to"})
		}
		assignedTo = &id
	}

	ctx := context.Background()
	lead, err := scanLead(h.db.QueryRow(ctx, `
		INSERT INTO leads (name, email, phone, company, status, priority, value, source, assigned_to, created_by)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		req.Name, req.Email, req.Phone, req.Company, req.Status, req.Priority,
		req.Value, req.Source, assignedTo, userID))
	if err != nil {
		metrics.IncrementDatabaseQuery("insert", "error")
		utils.LogRequestError(c, "LEAD_CREATE", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create lead"})
	}
	metrics.IncrementDatabaseQuery("insert", "success")
	metrics.IncrementLeadOperation("create")

	h.emitter.Emit(realtime.NewLeadCreated(lead, userID))

	return c.Status(201).JSON(lead)
}

// UpdateLead applies a partial update and emits lead_updated carrying the
// full entity so patch-in-place consumers can replace their copy wholesale.
func (h *LeadHandler) UpdateLead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var req UpdateLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	sets := []string{}
	args := []interface{}{}
	argN := 1
	addSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Name cannot be empty"})
		}
		addSet("name", name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Email cannot be empty"})
		}
		addSet("email", email)
	}
	if req.Phone != nil {
		addSet("phone", nullIfEmpty(*req.Phone))
	}
	if req.Company != nil {
		addSet("company", nullIfEmpty(*req.Company))
	}
	if req.Status != nil {
		if !models.ValidLeadStatus(*req.Status) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid status"})
		}
		addSet("status", *req.Status)
		// Entering a terminal status stamps closed_at; leaving one clears it.
		if *req.Status == models.LeadStatusClosedWon || *req.Status == models.LeadStatusClosedLost {
			addSet("closed_at", time.Now())
		} else {
			addSet("closed_at", nil)
		}
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid priority"})
		}
		addSet("priority", *req.Priority)
	}
	if req.Value != nil {
		if *req.Value < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "Value cannot be negative"})
		}
		addSet("value", *req.Value)
	}
	if req.Source != nil {
		if !models.ValidSource(*req.Source) {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid source"})
		}
		addSet("source", *req.Source)
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			addSet("assigned_to", nil)
		} else {
			id, err := uuid.Parse(*req.AssignedTo)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "Invalid assigned_to"})
			}
			addSet("assigned_to", id)
		}
	}

	if len(sets) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "No fields to update"})
	}
	addSet("updated_at", time.Now())

	args = append(args, leadID)
	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING `+leadColumns,
		strings.Join(sets, ", "), argN)

	ctx := context.Background()
	lead, err := scanLead(h.db.QueryRow(ctx, query, args...))
	if err != nil {
		metrics.IncrementDatabaseQuery("update", "error")
		return c.Status(404).JSON(fiber.Map{"error": "Lead not found"})
	}
	metrics.IncrementDatabaseQuery("update", "success")
	metrics.IncrementLeadOperation("update")

	h.emitter.Emit(realtime.NewLeadUpdated(lead, userID))

	return c.JSON(lead)
}

// DeleteLead removes a lead and emits an id-only lead_deleted event.
func (h *LeadHandler) DeleteLead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserIDFromToken(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	leadID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	ctx := context.Background()
	tag, err := h.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	if err != nil {
		metrics.IncrementDatabaseQuery("delete", "error")
		utils.LogRequestError(c, "LEAD_DELETE", err, "lead_id", leadID.String())
		return c.Status(500).JSON(fiber.Map{"error": "Failed to delete lead"})
	}
	if tag.RowsAffected() == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "Lead not found"})
	}
	metrics.IncrementDatabaseQuery("delete", "success")
	metrics.IncrementLeadOperation("delete")

	h.emitter.Emit(realtime.NewLeadDeleted(leadID, userID))

	return c.JSON(fiber.Map{"message": "Lead deleted"})
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
