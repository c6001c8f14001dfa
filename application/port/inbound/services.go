package inbound

import (
	"context"
	"time"
)

// HumanVerifier is the human-verification collaborator, consulted only
// during login and registration.
// Implemented by infrastructure/service/recaptcha
type HumanVerifier interface {
	IsHuman(ctx context.Context, challengeID, response string) (bool, error)
	IsEnabled() bool
}

// RateLimitService defines rate limiting behavior used by application/usecases and middleware
// Implemented by infrastructure/service/ratelimit
type RateLimitService interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	Reset(ctx context.Context, key string) error
	Block(ctx context.Context, key string, duration time.Duration, reason string) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	GetAttempts(ctx context.Context, key string) (int, error)
}
