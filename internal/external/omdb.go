package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"moviesvc/internal/config"
)

// maxCatalogBody bounds how much of an OMDb response is read.
const maxCatalogBody = 1 << 20

// Outcome classifies a catalog lookup.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeUnreachable
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RawRecord holds the catalog fields the service consumes. Values are kept
// as raw JSON because the catalog does not guarantee their types.
type RawRecord struct {
	Title    json.RawMessage `json:"Title"`
	Released json.RawMessage `json:"Released"`
	Genre    json.RawMessage `json:"Genre"`
	Director json.RawMessage `json:"Director"`
}

// LookupResult is the classified result of one catalog call. Record is set
// only for OutcomeFound; Err only for OutcomeUnreachable and OutcomeFailed.
type LookupResult struct {
	Outcome Outcome
	Record  RawRecord
	Err     error
}

type omdbResponse struct {
	RawRecord
	Response any `json:"Response"`
}

// OMDbClient looks movies up by title in the OMDb catalog.
type OMDbClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewOMDbClient creates an OMDbClient. A nil httpClient uses a client with
// cfg.Timeout (zero means no client timeout).
func NewOMDbClient(httpClient *http.Client, cfg config.CatalogConfig, logger *slog.Logger) *OMDbClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.BuildInfo{}.UserAgent()
	}
	return &OMDbClient{
		base:    NewBaseClient(httpClient, "omdb", DefaultBreakerSettings(), userAgent),
		apiKey:  cfg.APIKey.Unmask(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// Lookup fetches the record for title with a single GET.
func (c *OMDbClient) Lookup(ctx context.Context, title string) LookupResult {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("t", title)
	q.Set("r", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return LookupResult{Outcome: OutcomeFailed, Err: fmt.Errorf("build catalog request: %w", err)}
	}

	resp, err := c.base.Do(req)
	if err != nil {
		if IsUnreachable(err) {
			c.logger.WarnContext(ctx, "catalog unreachable", "error", err)
			return LookupResult{Outcome: OutcomeUnreachable, Err: err}
		}
		return LookupResult{Outcome: OutcomeFailed, Err: fmt.Errorf("catalog request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LookupResult{
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("catalog returned status %d", resp.StatusCode),
		}
	}

	var body omdbResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBody)).Decode(&body); err != nil {
		return LookupResult{Outcome: OutcomeFailed, Err: fmt.Errorf("decode catalog response: %w", err)}
	}

	if s, ok := body.Response.(string); !ok || s != "True" {
		return LookupResult{Outcome: OutcomeNotFound}
	}
	return LookupResult{Outcome: OutcomeFound, Record: body.RawRecord}
}
