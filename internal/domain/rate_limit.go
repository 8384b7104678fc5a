package domain

import "time"

// RateLimitRule is a fixed-window limit applied to one scope.
type RateLimitRule struct {
	Scope  string        `json:"scope"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

const (
	RateLimitScopeIP             = "ip"
	RateLimitScopeUser           = "user"
	RateLimitScopeMessageRequest = "message_request"
)
