package server

import "time"

const (
	// Sliding-window limit for inbound WebSocket commands
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Default page size for /api/history
	DefaultHistoryN = 50

	// Request body cap for config and command payloads
	MaxBodyBytes = 1 << 20
)
