package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackroad/websocket-manager/internal/db"
	"github.com/blackroad/websocket-manager/internal/delivery"
	"github.com/blackroad/websocket-manager/internal/monitor"
	"github.com/blackroad/websocket-manager/internal/query"
	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/repository"
)

// app bundles the wired services for one CLI invocation.
type app struct {
	database *sql.DB
	registry *registry.Registry
	delivery *delivery.Service
	monitor  *monitor.Monitor
	history  *query.HistoryReader
	stats    *query.StatsAggregator
}

// wireApp opens the store named by the --db flag and hydrates the services.
func wireApp(cmd *cobra.Command) (*app, error) {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	database, err := db.InitDB(dbPath)
	if err != nil {
		return nil, err
	}

	connRepo := repository.NewConnectionRepository(database)
	msgRepo := repository.NewMessageRepository(database)
	hbRepo := repository.NewHeartbeatRepository(database)

	reg, err := registry.New(context.Background(), connRepo, hbRepo)
	if err != nil {
		return nil, err
	}

	return &app{
		database: database,
		registry: reg,
		delivery: delivery.NewService(reg, msgRepo),
		monitor:  monitor.New(reg),
		history:  query.NewHistoryReader(msgRepo),
		stats:    query.NewStatsAggregator(reg, connRepo, msgRepo),
	}, nil
}

// close releases the store handle.
func (a *app) close() {
	db.CloseDB()
}
