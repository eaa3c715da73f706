package chartdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/observability"
	"github.com/ethpandaops/reportviewer/pkg/refresh"
	"github.com/sirupsen/logrus"
)

// ErrChartDataResponse is returned when the API answers with an error status
var ErrChartDataResponse = errors.New("chart data error")

// Query asks for the data of one chart with the session overrides applied
type Query struct {
	ChartID       int
	FormData      map[string]any
	ExtraFormData map[string]any
	ExtraFilters  []refresh.ExtraFilter
	Force         bool
}

// RequestFormData returns the form data sent for q: the stored form data of the
// chart plus the slice id and the session overrides.
func (q Query) RequestFormData() map[string]any {
	out := make(map[string]any, len(q.FormData)+3)
	for k, v := range q.FormData {
		out[k] = v
	}

	out["slice_id"] = q.ChartID

	if len(q.ExtraFormData) > 0 {
		out["extra_form_data"] = q.ExtraFormData
	}

	if len(q.ExtraFilters) > 0 {
		out["extra_filters"] = q.ExtraFilters
	}

	return out
}

type queryRequest struct {
	FormData     map[string]any `json:"form_data"` //nolint:tagliatelle // API uses snake_case
	Force        bool           `json:"force"`
	ResultFormat string         `json:"result_format"` //nolint:tagliatelle // API uses snake_case
	ResultType   string         `json:"result_type"`   //nolint:tagliatelle // API uses snake_case
}

// ClientInterface defines the methods for querying chart data
type ClientInterface interface {
	// Query executes q and returns the raw response document
	Query(ctx context.Context, q Query) (json.RawMessage, error)
	// Start checks the API is reachable
	Start(ctx context.Context) error
	// Stop releases idle connections
	Stop() error
}

type client struct {
	log          logrus.FieldLogger
	httpClient   *http.Client
	baseURL      string
	token        string
	debug        bool
	queryTimeout time.Duration
}

// NewClient creates a new HTTP chart data client
func NewClient(log logrus.FieldLogger, cfg *Config) (ClientInterface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     cfg.KeepAlive,
	}

	return &client{
		log:          log.WithField("component", "chartdata-http"),
		httpClient:   &http.Client{Transport: transport},
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		token:        cfg.Token,
		debug:        cfg.Debug,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

func (c *client) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.do(ctx, http.MethodGet, "/health", nil); err != nil {
		return fmt.Errorf("failed to reach chart data API: %w", err)
	}

	c.log.Info("Connected to chart data API")

	return nil
}

func (c *client) Stop() error {
	c.httpClient.CloseIdleConnections()

	return nil
}

func (c *client) Query(ctx context.Context, q Query) (json.RawMessage, error) {
	start := time.Now()

	body, err := json.Marshal(queryRequest{
		FormData:     q.RequestFormData(),
		Force:        q.Force,
		ResultFormat: "json",
		ResultType:   "full",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.getTimeout(ctx))
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/chart/data", body)
	if err != nil {
		observability.RecordChartDataQuery("error", time.Since(start).Seconds())

		return nil, fmt.Errorf("chart %d query failed: %w", q.ChartID, err)
	}

	if !json.Valid(resp) {
		observability.RecordChartDataQuery("error", time.Since(start).Seconds())

		return nil, fmt.Errorf("%w: chart %d returned invalid JSON", ErrChartDataResponse, q.ChartID)
	}

	observability.RecordChartDataQuery("success", time.Since(start).Seconds())

	return resp, nil
}

func (c *client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.debug {
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("Sending chart data request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errorResp struct {
			Message string `json:"message"`
		}

		if jsonErr := json.Unmarshal(data, &errorResp); jsonErr == nil && errorResp.Message != "" {
			return nil, fmt.Errorf("%w (status %d): %s", ErrChartDataResponse, resp.StatusCode, errorResp.Message)
		}

		return nil, fmt.Errorf("%w (status %d): %s", ErrChartDataResponse, resp.StatusCode, string(data))
	}

	return data, nil
}

func (c *client) getTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}

	return c.queryTimeout
}
