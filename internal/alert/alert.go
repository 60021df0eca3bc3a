// Package alert models the inbound alerting-webhook payload.
package alert

import "time"

// Webhook is the grouped notification body posted by the alerting tool.
type Webhook struct {
	Receiver string  `json:"receiver,omitempty"`
	Status   string  `json:"status,omitempty"`
	Alerts   []Alert `json:"alerts"`
}

// Alert is a single alert entry inside a webhook payload.
type Alert struct {
	Status       string            `json:"status,omitempty"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt,omitempty"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
}

// Name returns the alertname label, or "" if unset.
func (a *Alert) Name() string {
	return a.Labels["alertname"]
}

// Summary returns the summary annotation, or "" if unset.
func (a *Alert) Summary() string {
	return a.Annotations["summary"]
}

// Description returns the description annotation, or "" if unset.
func (a *Alert) Description() string {
	return a.Annotations["description"]
}
