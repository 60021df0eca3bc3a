// Package prom queries historical metric data from a Prometheus-compatible
// endpoint, yielding the look-back series fed to the forecasting capability.
package prom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/prometheus/common/model"
)

const httpTimeout = 30 * time.Second

// Client runs range queries against a Prometheus/Mimir endpoint.
type Client struct {
	endpoint   string
	tenantID   string
	httpClient *http.Client
}

// New creates a range-query client. tenantID is optional and sent as
// X-Scope-OrgID for multi-tenant setups.
func New(endpoint, tenantID string) *Client {
	return &Client{
		endpoint:   endpoint,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: httpTimeout},
	}
}

// History evaluates query over the trailing window at the given step and
// returns the sample values of the first matching series, oldest first.
func (c *Client) History(ctx context.Context, query string, window, step time.Duration) ([]float64, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, "api/v1/query_range")

	end := time.Now().UTC()
	q := u.Query()
	q.Set("query", query)
	q.Set("start", end.Add(-window).Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	q.Set("step", strconv.Itoa(int(step.Seconds())))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Scope-OrgID", c.tenantID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus returned %d: %s", resp.StatusCode, string(body))
	}

	var promResp struct {
		Status string `json:"status"`
		Data   struct {
			ResultType string       `json:"resultType"`
			Result     model.Matrix `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &promResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if promResp.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed: %s", string(body))
	}
	if len(promResp.Data.Result) == 0 {
		return nil, fmt.Errorf("query %q matched no series", query)
	}

	values := promResp.Data.Result[0].Values
	series := make([]float64, 0, len(values))
	for _, sp := range values {
		series = append(series, float64(sp.Value))
	}
	return series, nil
}
