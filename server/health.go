package server

import (
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"crmhub/config"
)

// ReadyState tracks initialization state for health checks
type ReadyState struct {
	db         *pgxpool.Pool
	config     *config.Config
	rdb        *redis.Client
	seedReady  atomic.Bool
	redisReady atomic.Bool
}

// NewReadyState creates a new ReadyState instance
func NewReadyState(db *pgxpool.Pool, cfg *config.Config, rdb *redis.Client) *ReadyState {
	return &ReadyState{db: db, config: cfg, rdb: rdb}
}

// MarkSeedReady marks database seeding as complete
func (r *ReadyState) MarkSeedReady() {
	r.seedReady.Store(true)
}

// MarkRedisReady marks the Redis initialization as complete
func (r *ReadyState) MarkRedisReady() {
	r.redisReady.Store(true)
}

// IsFullyReady returns true if all initialization steps are complete
func (r *ReadyState) IsFullyReady() bool {
	return r.seedReady.Load() && r.redisReady.Load()
}

// IsSeedReady returns true if database seeding is complete
func (r *ReadyState) IsSeedReady() bool {
	return r.seedReady.Load()
}

// IsRedisReady returns true if Redis initialization is complete
func (r *ReadyState) IsRedisReady() bool {
	return r.redisReady.Load()
}

// GetDB returns the database connection pool
func (r *ReadyState) GetDB() *pgxpool.Pool {
	return r.db
}

// GetRedis returns the Redis client
func (r *ReadyState) GetRedis() *redis.Client {
	return r.rdb
}

// GetConfig returns the application configuration
func (r *ReadyState) GetConfig() *config.Config {
	return r.config
}
