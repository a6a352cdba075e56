package model

import "errors"

var (
	// ErrAgentRequired is returned when a registration request is missing the agent name.
	ErrAgentRequired = errors.New("agent is required")

	// ErrConnectionNotFound is returned when a connection is not in the active index.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidSignature is returned when a webhook payload fails signature verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
