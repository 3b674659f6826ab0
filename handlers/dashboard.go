package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"crmhub/database"
	"crmhub/models"
	"crmhub/utils"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 30 * time.Second
)

// DashboardHandler serves aggregate lead statistics. Results are cached in
// Redis briefly; the dashboard tolerates slightly stale numbers.
type DashboardHandler struct {
	db  database.Database
	rdb *redis.Client
}

// NewDashboardHandler creates a new dashboard handler. rdb may be nil, in
// which case every request recomputes the aggregates.
func NewDashboardHandler(db database.Database, rdb *redis.Client) *DashboardHandler {
	return &DashboardHandler{db: db, rdb: rdb}
}

// GetStats returns the dashboard aggregates.
func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	ctx := context.Background()

	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, dashboardCacheKey).Bytes(); err == nil {
			var stats models.DashboardStats
			if json.Unmarshal(cached, &stats) == nil {
				return c.JSON(stats)
			}
		}
	}

	stats, err := h.computeStats(ctx)
	if err != nil {
		utils.LogError("DASHBOARD_STATS", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to compute stats"})
	}

	if h.rdb != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			// Cache write failures are not worth failing the request over.
			h.rdb.Set(ctx, dashboardCacheKey, encoded, dashboardCacheTTL)
		}
	}

	return c.JSON(stats)
}

func (h *DashboardHandler) computeStats(ctx context.Context) (models.DashboardStats, error) {
	stats := models.DashboardStats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}

	rows, err := h.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(value), 0) FROM leads GROUP BY status`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var (
			status string
			count  int
			value  int64
		)
		if err := rows.Scan(&status, &count, &value); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByStatus[status] = count
		stats.TotalLeads += count
		switch status {
		case models.LeadStatusNew:
			stats.NewLeads = count
		case models.LeadStatusQualified:
			stats.QualifiedLeads = count
		case models.LeadStatusClosedWon:
			stats.ClosedWon = count
			stats.TotalValue += value
		case models.LeadStatusClosedLost:
			stats.ClosedLost = count
		}
	}
	rows.Close()

	rows, err = h.db.Query(ctx, `SELECT priority, COUNT(*) FROM leads GROUP BY priority`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			priority string
			count    int
		)
		if err := rows.Scan(&priority, &count); err != nil {
			return stats, err
		}
		stats.ByPriority[priority] = count
	}

	closed := stats.ClosedWon + stats.ClosedLost
	if closed > 0 {
		stats.ConversionRate = float64(stats.ClosedWon) / float64(closed)
	}
	if stats.ClosedWon > 0 {
		stats.AverageDealSize = float64(stats.TotalValue) / float64(stats.ClosedWon)
	}

	return stats, nil
}
