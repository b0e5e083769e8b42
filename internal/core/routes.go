package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"moviesvc/internal/types"
)


// msgRouteNotFound is the body message for unmatched paths and methods.
const msgRouteNotFound = "Not Found"

// requestIDHeader carries the correlation ID in both directions.
const requestIDHeader = "X-Request-Id"

// defaultRedactedHeaders lists header names whose values are masked in request
// logs to prevent accidental leakage of credentials.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes defines the routing hierarchy: the global middleware chain,
// the public health check and the authenticated /movies group.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	// Set before mounting so chi copies them into sub-routers.
	s.router.NotFound(s.HandleNotFound)
	s.router.MethodNotAllowed(s.HandleNotFound)

	s.router.Get("/health", s.HandleHealth)
	s.router.Route("/movies", s.mountMovies)
}

// registerGlobalMiddleware applies middleware in strict order.
//
//  1. Recoverer       - outermost, catches all panics.
//  2. ContextTimeout  - optional deadline on the request context.
//  3. RequestID       - correlation ID for logs and responses.
//  4. SecurityHeaders - present on every response, errors included.
//  5. RequestLogger   - structured logging with redacted headers.
//  6. CORS
//  7. Metrics
//  8. Compress        - gzip responses when the client accepts it.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)
	s.router.Use(CompressMiddleware)
}

// mountMovies registers the domain routes. Auth is applied inside a Group so
// it wraps matched endpoints only; an unsupported method on /movies still
// gets 404 without a credential check.
func (s *Server) mountMovies(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		for _, registrar := range s.RouteRegistrars {
			registrar(r)
		}
	})
}

// HandleNotFound answers unmatched paths and unsupported methods.
func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, msgRouteNotFound, nil))
}

// requestTimeout is zero unless REQUEST_TIMEOUT is set, leaving the catalog
// call bounded only by the transport.
func (s *Server) requestTimeout() time.Duration {
	if s.Config == nil {
		return 0
	}
	return s.Config.Server.RequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CorsAllowedOrigins) > 0 {
		return s.Config.Server.CorsAllowedOrigins
	}
	return []string{"*"}
}

// ContextTimeoutMiddleware sets a deadline on the request context. Handlers
// observe it through cancelled store and catalog calls. A non-positive
// duration sets no deadline.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if duration <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses the incoming X-Request-Id header or generates a
// new UUID, stores it in the context and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CompressMiddleware gzips responses for clients that send
// Accept-Encoding: gzip. Small bodies are passed through unchanged.
func CompressMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
