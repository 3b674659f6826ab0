package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"crmhub/config"
	"crmhub/crypto"
	"crmhub/database"
	"crmhub/models"
)

// SeedDatabase bootstraps the default admin account and, if enabled and the
// database is empty, a small demo data set. Safe to run on every startup.
func SeedDatabase(db database.Database, cfg *config.Config) error {
	ctx := context.Background()

	// Demo seeding keys on a pristine users table, so the emptiness snapshot
	// must be taken before the default admin row lands.
	var userCount int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if cfg.DefaultAdminEnabled {
		if err := seedDefaultAdmin(ctx, db, cfg); err != nil {
			return fmt.Errorf("seed default admin: %w", err)
		}
	}

	if cfg.SeedDemoData && userCount == 0 {
		if err := seedDemoData(ctx, db, cfg); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	return nil
}

func seedDefaultAdmin(ctx context.Context, db database.Database, cfg *config.Config) error {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, cfg.DefaultAdminEmail).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := crypto.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO users (email, name, role, password_hash)
		VALUES ($1, 'Administrator', $2, $3)
		ON CONFLICT (email) DO NOTHING`,
		cfg.DefaultAdminEmail, models.RoleAdmin, hash)
	if err != nil {
		return err
	}

	log.Printf("Seeded default admin account: %s", cfg.DefaultAdminEmail)
	return nil
}

type demoUser struct {
	email    string
	name     string
	role     string
	password string
}

type demoLead struct {
	name     string
	email    string
	company  string
	status   string
	priority string
	value    int64
	source   string
}

func seedDemoData(ctx context.Context, db database.Database, cfg *config.Config) error {
	users := []demoUser{
		{"admin@crm.com", "Sarah Johnson", models.RoleAdmin, "admin123456!"},
		{"manager@crm.com", "Mike Chen", models.RoleManager, "manager123456!"},
		{"sales@crm.com", "Emily Rodriguez", models.RoleSalesRep, "sales123456!"},
	}

	userIDs := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if u.email == cfg.DefaultAdminEmail {
			// The default admin already owns this address; reuse that row
			// instead of colliding on the unique email.
			var id uuid.UUID
			if err := db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, u.email).Scan(&id); err == nil {
				userIDs = append(userIDs, id)
				continue
			}
		}
		hash, err := crypto.HashPassword(u.password)
		if err != nil {
			return err
		}
		var id uuid.UUID
		err = db.QueryRow(ctx, `
			INSERT INTO users (email, name, role, password_hash)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			u.email, u.name, u.role, hash).Scan(&id)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
	}

	leads := []demoLead{
		{"John Smith", "john@techcorp.com", "TechCorp", models.LeadStatusQualified, models.PriorityHigh, 50000, models.SourceWebsite},
		{"Lisa Wang", "lisa@startup.io", "Startup.io", models.LeadStatusNew, models.PriorityMedium, 25000, models.SourceReferral},
		{"David Brown", "david@enterprise.com", "Enterprise Solutions", models.LeadStatusProposal, models.PriorityHigh, 100000, models.SourceColdCall},
	}

	creator := userIDs[0]
	for i, l := range leads {
		assignee := userIDs[i%len(userIDs)]
		_, err := db.Exec(ctx, `
			INSERT INTO leads (name, email, company, status, priority, value, source, assigned_to, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.name, l.email, l.company, l.status, l.priority, l.value, l.source, assignee, creator)
		if err != nil {
			return err
		}
	}

	log.Printf("Seeded %d demo users and %d demo leads", len(users), len(leads))
	return nil
}
