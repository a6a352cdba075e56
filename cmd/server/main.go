package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/blackroad/websocket-manager/api/handlers"
	"github.com/blackroad/websocket-manager/internal/buffer"
	"github.com/blackroad/websocket-manager/internal/config"
	"github.com/blackroad/websocket-manager/internal/db"
	"github.com/blackroad/websocket-manager/internal/delivery"
	"github.com/blackroad/websocket-manager/internal/logger"
	"github.com/blackroad/websocket-manager/internal/monitor"
	"github.com/blackroad/websocket-manager/internal/query"
	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/repository"
	"github.com/blackroad/websocket-manager/internal/ws"
)

func main() {
	// Optional .env for local development; real deployments use WSMAN_* vars
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Ensure the store directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repositories
	connRepo := repository.NewConnectionRepository(database)
	msgRepo := repository.NewMessageRepository(database)
	hbRepo := repository.NewHeartbeatRepository(database)

	// Hydrate the registry; a store failure here is fatal
	reg, err := registry.New(context.Background(), connRepo, hbRepo)
	if err != nil {
		log.Fatalf("Failed to hydrate registry: %v", err)
	}
	log.Printf("Registry hydrated with %d active connection(s)", reg.Count())

	// Initialize delivery, monitoring, and query services
	deliverySvc := delivery.NewService(reg, msgRepo)
	heartbeatMonitor := monitor.New(reg)
	historyReader := query.NewHistoryReader(msgRepo)
	statsAggregator := query.NewStatsAggregator(reg, connRepo, msgRepo)

	// Initialize WebSocket gateway and hook it into deliveries
	gateway := ws.NewGateway(reg, buffer.NewReplay(cfg.ReplayCapacity))
	defer gateway.Close()
	deliverySvc.OnDelivered(gateway.Push)

	// Optional JSONL audit trail
	var audit *logger.AuditLogger
	if cfg.AuditLogPath != "" {
		audit, err = logger.NewAuditLogger(cfg.AuditLogPath)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		defer audit.Close()
	}

	// Initialize handlers
	connectionHandler := handlers.NewConnectionHandler(reg, audit)
	messageHandler := handlers.NewMessageHandler(deliverySvc, historyReader, audit)
	statsHandler := handlers.NewStatsHandler(statsAggregator)
	webhookHandler := handlers.NewWebhookHandler(deliverySvc, cfg.WebhookSecret)
	wsHandler := handlers.NewWebSocketHandler(reg, gateway)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		connectionHandler.RegisterRoutes(api)
		messageHandler.RegisterRoutes(api)
		statsHandler.RegisterRoutes(api)
		webhookHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	}

	// The periodic sweep lives here, outside the core: the monitor never
	// schedules itself
	sweepDone := make(chan struct{})
	go runSweeper(heartbeatMonitor, cfg.HeartbeatTimeout, cfg.SweepInterval, audit, sweepDone)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		close(sweepDone)
		gateway.Close()
		if audit != nil {
			audit.Close()
		}
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// runSweeper invokes the heartbeat sweep on a fixed cadence until done is
// closed.
func runSweeper(m *monitor.Monitor, timeout, interval time.Duration, audit *logger.AuditLogger, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := m.Sweep(context.Background(), timeout)
			if err != nil {
				log.Printf("Heartbeat sweep failed: %v", err)
				continue
			}
			if len(result.TimedOut) > 0 {
				log.Printf("Heartbeat sweep removed %d stale connection(s)", len(result.TimedOut))
				if audit != nil {
					audit.Sweep(len(result.TimedOut))
				}
			}
		case <-done:
			return
		}
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Webhook-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
