// Package github creates issue-tracker records for incidents via the GitHub
// REST API.
package github

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

const (
	defaultAPIBase = "https://api.github.com"
	httpTimeout    = 10 * time.Second
)

// Sink files a GitHub issue per incident. If token or repo is empty, Send is
// a no-op.
type Sink struct {
	token   string
	repo    string // "owner/name"
	apiBase string
	client  *http.Client
}

// New creates a GitHub issue sink for the given repository.
func New(token, repo string) *Sink {
	return &Sink{
		token:   token,
		repo:    repo,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Name identifies the sink in logs and metrics.
func (s *Sink) Name() string { return "github" }

// Send creates an issue titled with the incident id and summary, labelled
// "incident".
func (s *Sink) Send(ctx context.Context, n *enrich.Notification) error {
	if s.token == "" || s.repo == "" {
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"title":  fmt.Sprintf("Incident %s: %s", n.IncidentID, summaryOr(n, "No summary")),
		"body":   issueBody(n),
		"labels": []string{"incident"},
	})
	if err != nil {
		return fmt.Errorf("github: marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", s.apiBase, s.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("github: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("github: create issue: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: issue creation returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func summaryOr(n *enrich.Notification, fallback string) string {
	if s := n.Alert.Summary(); s != "" {
		return s
	}
	return fallback
}

func issueBody(n *enrich.Notification) string {
	answer := "No answer found."
	source := "Unknown source"
	if n.Answer != nil {
		if n.Answer.Answer != "" {
			answer = n.Answer.Answer
		}
		if n.Answer.Source != "" {
			source = n.Answer.Source
		}
	}
	description := n.Alert.Description()
	if description == "" {
		description = "No description."
	}

	body := fmt.Sprintf(`### Alert Details
**Summary:** %s
**Description:** %s
---
### AI Suggested Action
**Suggestion:** %s
**Source:** `+"`%s`", summaryOr(n, "No summary"), description, answer, source)

	if n.Warning != "" {
		body += fmt.Sprintf("\n---\n### Proactive Warning\n%s", n.Warning)
	}
	return body
}
