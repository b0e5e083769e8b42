package core

import (
	"time"

	"github.com/go-chi/chi/v5"

	"moviesvc/internal/types"
)

// TokenVerifier decouples the HTTP layer from the credential format, allowing
// for easy mocking in tests.
type TokenVerifier interface {
	// Verify checks the raw bearer token and returns the identity it carries.
	// Any failure (bad signature, wrong issuer, expired, malformed) is an error.
	Verify(token string) (types.Claims, error)
}

// MetricsCollector defines the interface for recording API telemetry.
type MetricsCollector interface {
	// RecordRequest records request latency and count.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts domain routes onto the authenticated /movies group.
// Handler packages provide these so core never imports them.
type RouteRegistrar func(r chi.Router)
