package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency.
const (
	attrAction    = "action"
	attrMethod    = "method"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrPath      = "path"
	attrResult    = "result"
	attrStatus    = "status"
)

// Result values for the result attribute.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Engine metrics
	emailsProcessedTotal metric.Int64Counter
	ruleOutcomesTotal    metric.Int64Counter
	actionsTotal         metric.Int64Counter
	actionDuration       metric.Float64Histogram

	// Mail provider metrics
	providerCallsTotal metric.Int64Counter
	providerDuration   metric.Float64Histogram

	// OAuth metrics
	tokenRefreshTotal metric.Int64Counter

	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments
// initialized on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.emailsProcessedTotal, err = meter.Int64Counter(
		"emails_processed_total",
		metric.WithDescription("Total number of emails run through the rule engine"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_processed_total counter: %w", err)
	}

	m.ruleOutcomesTotal, err = meter.Int64Counter(
		"rule_outcomes_total",
		metric.WithDescription("Total number of per-rule evaluation outcomes"),
		metric.WithUnit("{rule}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule_outcomes_total counter: %w", err)
	}

	m.actionsTotal, err = meter.Int64Counter(
		"rule_actions_total",
		metric.WithDescription("Total number of rule actions executed against the mail provider"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule_actions_total counter: %w", err)
	}

	m.actionDuration, err = meter.Float64Histogram(
		"rule_action_duration_seconds",
		metric.WithDescription("Rule action execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule_action_duration_seconds histogram: %w", err)
	}

	m.providerCallsTotal, err = meter.Int64Counter(
		"mail_provider_calls_total",
		metric.WithDescription("Total number of mail provider API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_provider_calls_total counter: %w", err)
	}

	m.providerDuration, err = meter.Float64Histogram(
		"mail_provider_call_duration_seconds",
		metric.WithDescription("Mail provider API call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_provider_call_duration_seconds histogram: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	return m, nil
}

func resultAttr(success bool) attribute.KeyValue {
	if success {
		return attribute.String(attrResult, ResultSuccess)
	}
	return attribute.String(attrResult, ResultError)
}

// RecordEmailProcessed records one engine run for an email.
func (m *Metrics) RecordEmailProcessed(ctx context.Context, success bool) {
	if m == nil || m.emailsProcessedTotal == nil {
		return
	}
	m.emailsProcessedTotal.Add(ctx, 1, metric.WithAttributes(resultAttr(success)))
}

// RecordRuleOutcome records the outcome of evaluating one rule.
func (m *Metrics) RecordRuleOutcome(ctx context.Context, outcome string) {
	if m == nil || m.ruleOutcomesTotal == nil {
		return
	}
	m.ruleOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOutcome, outcome),
	))
}

// RecordAction records an executed rule action and its duration.
func (m *Metrics) RecordAction(ctx context.Context, action string, success bool, duration time.Duration) {
	if m == nil || m.actionsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrAction, action),
		resultAttr(success),
	)
	m.actionsTotal.Add(ctx, 1, attrs)
	m.actionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordProviderCall records a mail provider API call and its duration.
func (m *Metrics) RecordProviderCall(ctx context.Context, operation string, success bool, duration time.Duration) {
	if m == nil || m.providerCallsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		resultAttr(success),
	)
	m.providerCallsTotal.Add(ctx, 1, attrs)
	m.providerDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTokenRefresh records an OAuth token refresh attempt.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, success bool) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(resultAttr(success)))
}

// RecordHTTPRequest records an HTTP request with its status and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(status)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}
