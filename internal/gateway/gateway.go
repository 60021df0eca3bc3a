// Package gateway is the client for the AI capability gateway. Each named
// capability is reached through the gateway's route endpoint and returns a
// typed result or a *TransportError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Capability names as used in timeline events and metrics labels.
const (
	CapabilityAnswering   = "answering"
	CapabilityVision      = "vision"
	CapabilityForecasting = "forecasting"
)

// gateway route segments for each capability.
const (
	routeAnswering   = "docqa"
	routeVision      = "vision"
	routeForecasting = "forecaster"
)

const callTimeout = 60 * time.Second

// TransportError is returned when a capability is unreachable, times out, or
// responds non-2xx. Status is 0 when no upstream response was received.
type TransportError struct {
	Capability string
	Status     int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway: %s returned %d", e.Capability, e.Status)
	}
	return fmt.Sprintf("gateway: %s call failed: %v", e.Capability, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Answer is the answering capability's response.
type Answer struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Client calls named AI capabilities through the gateway. Calls never retry
// and never cache; each carries its own timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gateway client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: callTimeout},
	}
}

// Answer asks the answering capability a question.
func (c *Client) Answer(ctx context.Context, query string) (*Answer, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	var out Answer
	if err := c.post(ctx, CapabilityAnswering, routeAnswering, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractText uploads an image to the vision capability and returns the
// extracted text.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image_file", "panel.png")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, CapabilityVision, routeVision, mw.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Forecast sends a metric history to the forecasting capability and returns
// the predicted sample paths. Callers use the first path.
func (c *Client) Forecast(ctx context.Context, history []float64, predictionLength int) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{
		"history":           history,
		"prediction_length": predictionLength,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	var out struct {
		Forecast [][]float64 `json:"forecast"`
	}
	if err := c.post(ctx, CapabilityForecasting, routeForecasting, "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return out.Forecast, nil
}

func (c *Client) post(ctx context.Context, capability, route, contentType string, body io.Reader, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid gateway url: %w", err)
	}
	u.Path = path.Join(u.Path, "route", route)

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Capability: capability, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Capability: capability, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Capability: capability, Status: resp.StatusCode}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Capability: capability, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return nil
}
