package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "crmhub/config"
	"crmhub/database"
	"crmhub/realtime"
	appserver "crmhub/server"
	"crmhub/services"
	"crmhub/utils"
)

func main() {
	// Initialize logging
	utils.InitLogging()

	// Load configuration
	config := appconfig.LoadConfig()

	// Track application start time for uptime calculation
	startTime := time.Now()

	// Setup database with automatic migrations
	db, err := database.SetupDatabase(config.DatabaseURL)
	if err != nil {
		log.Fatal("Database setup failed:", err)
	}
	defer db.Close()

	// Setup Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisURL,
		Password: config.RedisPassword,
		DB:       0, // use default DB
	})
	defer rdb.Close()

	readyState := appserver.NewReadyState(db, config, rdb)

	// Seed default admin and demo data if enabled
	if err := services.SeedDatabase(db, config); err != nil {
		log.Printf("Warning: database seeding failed: %v", err)
	}
	readyState.MarkSeedReady()
	readyState.MarkRedisReady()
	utils.LogInfo("Startup checks complete", "port", config.Port)

	// Broadcast relay for change events
	hub := realtime.NewHub()
	go hub.Run()

	app := appserver.CreateFiberApp(startTime, readyState)
	setupRoutes(app, db, rdb, hub, config, startTime)

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := appserver.ListenWithIPv6Fallback(app, config.Port, startTime); err != nil {
		log.Fatal("Server failed:", err)
	}
}
