package tracking

import (
	"context"
	"errors"
)

// RegisterAck is the outcome of registering an identifier with the vendor.
// Registration is an idempotent upsert: "already exists" is success, and the
// vendor may hand back its own request identifier to fetch by.
type RegisterAck struct {
	RequestID     string
	AlreadyExists bool
}

// Provider executes vendor calls on behalf of the tracking client.
type Provider interface {
	// Name identifies the provider for rate limiting and metrics labels.
	Name() string
	// Register upserts the identifier with the vendor.
	Register(ctx context.Context, identifier string, t Type) (RegisterAck, error)
	// Fetch retrieves the raw vendor payload by request identifier. The
	// vendor sometimes wraps single results in an array; implementations
	// must unwrap to one object.
	Fetch(ctx context.Context, requestID string, t Type) (map[string]any, error)
}

// ErrRateLimited reports that the provider's outbound window is exhausted.
// It never escapes Track; it only appears as a Lookup's suppressed cause.
var ErrRateLimited = errors.New("tracking: provider rate limit exhausted")

// ErrNoProvider reports that no vendor provider is configured (mock mode).
var ErrNoProvider = errors.New("tracking: no vendor provider configured")
