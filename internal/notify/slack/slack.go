// Package slack sends incident notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/opsseer/internal/enrich"
)

const httpTimeout = 10 * time.Second

// Sink posts incident notifications to a Slack webhook.
type Sink struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack sink. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Name identifies the sink in logs and metrics.
func (s *Sink) Name() string { return "slack" }

// Send posts the incident summary to the configured webhook.
func (s *Sink) Send(ctx context.Context, n *enrich.Notification) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(n))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(n *enrich.Notification) map[string]any {
	summary := n.Alert.Summary()
	if summary == "" {
		summary = "No summary"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("\U0001f6a8 New Incident: %s", n.IncidentID),
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Alert*\n%s", summary)},
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": actionText(n.Answer),
			},
		},
	}

	if n.Warning != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("⚠️ *Proactive Warning*\n%s", n.Warning),
			},
		})
	}

	return map[string]any{
		"text":   fmt.Sprintf("New Incident: %s", summary),
		"blocks": blocks,
	}
}

func actionText(a *enrich.AnswerInsight) string {
	answer := "No answer found."
	source := "Unknown source"
	if a != nil {
		if a.Answer != "" {
			answer = a.Answer
		}
		if a.Source != "" {
			source = a.Source
		}
	}
	return fmt.Sprintf("*AI Suggested Action*:\n>%s\n\n*Source*: `%s`", answer, source)
}
