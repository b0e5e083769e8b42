package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the whole /health request.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one subsystem. Only the account store is probed;
// catalog outages surface per request.
type HealthProbe interface {
	// Name identifies the component in the response, e.g. "postgres".
	Name() string
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

type probeOutcome struct {
	name    string
	err     error
	elapsed time.Duration
}

// HandleHealth runs every probe concurrently and answers 200 when all report
// healthy before the deadline, 503 otherwise. Mounted publicly at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy"}
	if s.Config != nil {
		resp.Version = s.Config.Build.Version
	}

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	// Buffered so late probes never block after the handler returns.
	outcomes := make(chan probeOutcome, len(probes))
	for _, p := range probes {
		go func(p HealthProbe) {
			outcomes <- runProbe(ctx, p)
		}(p)
	}

	resp.Components = make(map[string]componentStatus, len(probes))
	for range probes {
		select {
		case o := <-outcomes:
			resp.Components[o.name] = componentFor(o)
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, p := range probes {
		if _, ok := resp.Components[p.Name()]; !ok {
			resp.Components[p.Name()] = componentStatus{
				Status:    "unhealthy",
				Message:   "health check timed out",
				LatencyMS: healthCheckTimeout.Milliseconds(),
			}
		}
	}

	code := http.StatusOK
	for _, c := range resp.Components {
		if c.Status != "healthy" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			break
		}
	}
	JSON(w, r, code, resp)
}

func runProbe(ctx context.Context, p HealthProbe) (o probeOutcome) {
	o.name = p.Name()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			o.err = fmt.Errorf("probe panicked: %v", rec)
		}
		o.elapsed = time.Since(start)
	}()
	o.err = p.Check(ctx)
	return o
}

func componentFor(o probeOutcome) componentStatus {
	c := componentStatus{Status: "healthy", LatencyMS: o.elapsed.Milliseconds()}
	if o.err != nil {
		c.Status = "unhealthy"
		c.Message = o.err.Error()
	}
	return c
}
