package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead statuses as stored in the database and carried in event payloads.
const (
	LeadStatusNew         = "new"
	LeadStatusContacted   = "contacted"
	LeadStatusQualified   = "qualified"
	LeadStatusProposal    = "proposal"
	LeadStatusNegotiation = "negotiation"
	LeadStatusClosedWon   = "closed_won"
	LeadStatusClosedLost  = "closed_lost"
)

// Lead priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Lead sources.
const (
	SourceWebsite  = "website"
	SourceReferral = "referral"
	SourceColdCall = "cold_call"
	SourceEmail    = "email"
	SourceSocial   = "social"
	SourceOther    = "other"
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleSalesRep = "sales_rep"
)

// Activity types.
const (
	ActivityNote    = "note"
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityTask    = "task"
)

// User is a CRM user account. The password hash never leaves the handlers.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lead is a sales lead record.
type Lead struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Company    string     `json:"company,omitempty"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	Value      int64      `json:"value,omitempty"`
	Source     string     `json:"source"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// Activity is a timeline entry attached to a lead.
type Activity struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"lead_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Note is a free-form (optionally collaborative) note on a lead.
type Note struct {
	ID              uuid.UUID `json:"id"`
	LeadID          uuid.UUID `json:"lead_id"`
	UserID          uuid.UUID `json:"user_id"`
	Content         string    `json:"content"`
	IsCollaborative bool      `json:"is_collaborative"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DashboardStats is the aggregate view served by the dashboard endpoint.
type DashboardStats struct {
	TotalLeads      int              `json:"total_leads"`
	NewLeads        int              `json:"new_leads"`
	QualifiedLeads  int              `json:"qualified_leads"`
	ClosedWon       int              `json:"closed_won"`
	ClosedLost      int              `json:"closed_lost"`
	TotalValue      int64            `json:"total_value"`
	ConversionRate  float64          `json:"conversion_rate"`
	AverageDealSize float64          `json:"average_deal_size"`
	ByStatus        map[string]int   `json:"by_status"`
	ByPriority      map[string]int   `json:"by_priority"`
}

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified,
		LeadStatusProposal, LeadStatusNegotiation, LeadStatusClosedWon, LeadStatusClosedLost:
		return true
	}
	return false
}

// ValidPriority reports whether s is a known priority.
func ValidPriority(s string) bool {
	return s == PriorityLow || s == PriorityMedium || s == PriorityHigh
}

// ValidSource reports whether s is a known lead source.
func ValidSource(s string) bool {
	switch s {
	case SourceWebsite, SourceReferral, SourceColdCall, SourceEmail, SourceSocial, SourceOther:
		return true
	}
	return false
}

// ValidRole reports whether s is a known user role.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleManager || s == RoleSalesRep
}

// ValidActivityType reports whether s is a known activity type.
func ValidActivityType(s string) bool {
	switch s {
	case ActivityNote, ActivityCall, ActivityEmail, ActivityMeeting, ActivityTask:
		return true
	}
	return false
}
