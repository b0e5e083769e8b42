// Package external is the boundary between the collection service and
// third-party HTTP APIs. Outbound calls go through BaseClient, which adds a
// circuit breaker, request ID propagation and transport error classification.
// Calls are made exactly once; nothing here retries.
package external

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"moviesvc/internal/types"
)

// BreakerSettings tunes the circuit breaker in front of an upstream.
type BreakerSettings struct {
	// ConsecutiveFailures is the number of connectivity failures in a row
	// after which the breaker opens.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe is let through.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings returns the settings used in production.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// BaseClient wraps an *http.Client and a circuit breaker. Provider clients
// embed or hold a BaseClient to inherit this behavior.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient. Only connectivity failures count
// against the breaker: an upstream that answers, even with 5xx, is reachable.
func NewBaseClient(httpClient *http.Client, breakerName string, settings BreakerSettings, userAgent string) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isConnectivityError(err)
		},
	})

	return &BaseClient{
		client:    httpClient,
		breaker:   cb,
		userAgent: userAgent,
	}
}

// Do executes req once through the circuit breaker. The X-Request-ID and
// User-Agent headers are set when available. The caller closes the body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		return resp, redactURLError(err)
	})
}

// redactURLError drops the query string from a *url.Error, where provider
// credentials such as the OMDb apikey travel.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	var clean string
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		clean = u.String()
	}
	return &url.Error{Op: urlErr.Op, URL: clean, Err: urlErr.Err}
}

// BreakerState exposes the breaker state for health reporting and tests.
func (c *BaseClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// IsUnreachable reports whether err means the upstream could not be reached
// at all: name resolution failed, the TCP dial failed, or the breaker is open.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	return isConnectivityError(err)
}

// isConnectivityError matches DNS and dial failures. Cancellation and
// overall deadlines are not connectivity failures.
func isConnectivityError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
