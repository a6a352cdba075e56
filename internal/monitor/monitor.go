// Package monitor evaluates session liveness against the registry.
package monitor

import (
	"context"
	"time"

	"github.com/blackroad/websocket-manager/internal/model"
	"github.com/blackroad/websocket-manager/internal/registry"
)

// DefaultTimeout is the heartbeat timeout used when the caller does not
// supply one.
const DefaultTimeout = 30 * time.Second

// Monitor sweeps the registry for stale sessions. It holds no state and
// never triggers itself; an external scheduler decides the cadence.
type Monitor struct {
	registry *registry.Registry
}

// New creates a Monitor over the given registry.
func New(reg *registry.Registry) *Monitor {
	return &Monitor{registry: reg}
}

// Sweep partitions every currently active session by heartbeat age and
// removes the stale ones. A session whose heartbeat is exactly timeout old
// is kept: the comparison is strictly greater-than. Removal cannot report
// not-found here because the sweep only acts on sessions it just observed.
func (m *Monitor) Sweep(ctx context.Context, timeout time.Duration) (*model.SweepResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	now := time.Now().UTC()
	result := &model.SweepResult{
		Active:   []string{},
		TimedOut: []string{},
	}

	for _, conn := range m.registry.GetAll() {
		elapsed := now.Sub(conn.LastHeartbeat)
		if elapsed > timeout {
			if _, err := m.registry.Remove(ctx, conn.SessionID); err != nil {
				return nil, err
			}
			result.TimedOut = append(result.TimedOut, conn.SessionID)
		} else {
			result.Active = append(result.Active, conn.SessionID)
		}
	}

	return result, nil
}
