package query

import (
	"context"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
	"github.com/blackroad/websocket-manager/internal/repository"
)

// StatsAggregator builds aggregate counts from the registry and the store.
type StatsAggregator struct {
	registry *registry.Registry
	conns    *repository.ConnectionRepository
	messages *repository.MessageRepository
}

// NewStatsAggregator creates a StatsAggregator.
func NewStatsAggregator(reg *registry.Registry, conns *repository.ConnectionRepository, messages *repository.MessageRepository) *StatsAggregator {
	return &StatsAggregator{
		registry: reg,
		conns:    conns,
		messages: messages,
	}
}

// ConnectionStats reports the live connection count, the per-agent
// breakdown of active connections, and the all-time session and message
// totals from the store.
func (s *StatsAggregator) ConnectionStats(ctx context.Context) (*model.ConnectionStats, error) {
	totalConns, err := s.conns.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	totalMsgs, err := s.messages.Count(ctx)
	if err != nil {
		return nil, err
	}

	agents := make(map[string]int)
	snapshot := s.registry.GetAll()
	for _, conn := range snapshot {
		agents[conn.Agent]++
	}

	return &model.ConnectionStats{
		ActiveConnections:  len(snapshot),
		TotalEverConnected: totalConns,
		TotalMessages:      totalMsgs,
		Agents:             agents,
	}, nil
}
