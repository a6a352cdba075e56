// Package filter defines the predicate contract used to select broadcast
// targets from a registry snapshot.
package filter

import "github.com/blackroad/websocket-manager/internal/model"

// Filter decides whether a connection belongs to a broadcast target set.
// Implementations must be pure: no side effects, and a stable answer for a
// given connection. A filter is evaluated exactly once per snapshot entry.
type Filter interface {
	Match(conn *model.Connection) bool
}

// Func adapts an ordinary function to the Filter interface.
type Func func(conn *model.Connection) bool

// Match calls f.
func (f Func) Match(conn *model.Connection) bool {
	return f(conn)
}

// All returns a filter that accepts every connection.
func All() Filter {
	return Func(func(*model.Connection) bool { return true })
}

// ByAgent returns a filter that accepts connections owned by agent.
func ByAgent(agent string) Filter {
	return Func(func(conn *model.Connection) bool {
		return conn.Agent == agent
	})
}

// ByMetadata returns a filter that accepts connections whose metadata
// contains the given key/value pair.
func ByMetadata(key, value string) Filter {
	return Func(func(conn *model.Connection) bool {
		v, ok := conn.Metadata[key]
		return ok && v == value
	})
}
