// Package grafana captures dashboard panel snapshots via the render endpoint.
package grafana

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const renderTimeout = 20 * time.Second

// Renderer fetches rendered panel images from a preconfigured render URL.
type Renderer struct {
	renderURL  string
	httpClient *http.Client
}

// New creates a Renderer for the given panel render URL.
func New(renderURL string) *Renderer {
	return &Renderer{
		renderURL:  renderURL,
		httpClient: &http.Client{Timeout: renderTimeout},
	}
}

// Snapshot downloads the rendered panel and returns the raw image bytes.
func (r *Renderer) Snapshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.renderURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, string(body))
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("renderer returned empty image")
	}
	return img, nil
}
