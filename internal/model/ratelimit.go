package model

import (
	"context"
	"time"
)

// RateLimitRecord is the persisted request log for one (function, identifier) pair.
type RateLimitRecord struct {
	Key          string      `json:"key"`
	Identifier   string      `json:"identifier"`    // user id, IP, phone number or "global"
	FunctionName string      `json:"function_name"` // protected operation
	Requests     []time.Time `json:"requests"`      // arrival order, one entry per allowed request
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RateLimitKey identifies a record in a RateLimitStore.
type RateLimitKey struct {
	Key          string
	FunctionName string
	Identifier   string
}

// RateLimitMutation is run by a store inside its atomic read-modify-write primitive.
// rec is nil when no record exists; now is read from the store's clock.
// Returning a nil record leaves the store untouched.
type RateLimitMutation func(rec *RateLimitRecord, now time.Time) (*RateLimitRecord, error)

// RateLimitConfig 定义一次限流检查的规则
type RateLimitConfig struct {
	MaxRequests int                            `json:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration                  `json:"window" mapstructure:"window"`
	Message     string                         `json:"message,omitempty" mapstructure:"message"`
	Skip        func(ctx context.Context) bool `json:"-" mapstructure:"-"`
}

// RateLimitResult is the outcome of a check or a status lookup.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// SweepBatch reports one DeleteStale pass. Scanned counts every stale candidate
// the store examined, including orphans and records refreshed mid-sweep.
type SweepBatch struct {
	Scanned int
	Deleted int
}
