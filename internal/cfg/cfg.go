package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	GatewayEndpoint       string
	PrometheusEndpoint    string
	PrometheusTenantID    string
	GrafanaRenderURL      string
	DatabaseURL           string
	SlackWebhookURL       string
	GitHubToken           string
	GitHubRepo            string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.GatewayEndpoint, "gateway-endpoint", "", "AI gateway base URL for capability routing")
	fs.StringVar(&c.PrometheusEndpoint, "prometheus-endpoint", "", "Prometheus endpoint for metric history queries")
	fs.StringVar(&c.PrometheusTenantID, "prometheus-tenant-id", "", "Prometheus tenant ID for multi-tenant setups")
	fs.StringVar(&c.GrafanaRenderURL, "grafana-render-url", "", "Grafana panel render URL for dashboard snapshots (empty = vision stage disabled)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.GitHubToken, "github-token", "", "GitHub token for issue creation (empty = issue sink disabled)")
	fs.StringVar(&c.GitHubRepo, "github-repo", "", `GitHub repository for incident issues, as "owner/name"`)
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Gateway endpoint is required for the enrichment workflow
	if c.GatewayEndpoint == "" {
		errs = append(errs, errors.New("GATEWAY_ENDPOINT is required"))
	}

	// Prometheus endpoint is required for the forecast stage
	if c.PrometheusEndpoint == "" {
		errs = append(errs, errors.New("PROMETHEUS_ENDPOINT is required"))
	}

	// The issue sink needs both halves of its configuration
	if (c.GitHubToken == "") != (c.GitHubRepo == "") {
		errs = append(errs, errors.New("GITHUB_TOKEN and GITHUB_REPO must be set together"))
	}
	if c.GitHubRepo != "" && strings.Count(c.GitHubRepo, "/") != 1 {
		errs = append(errs, fmt.Errorf("invalid GITHUB_REPO %q (must be owner/name)", c.GitHubRepo))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
