package instrumentation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Nil(t, p.Metrics())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderEnabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{
		Enabled:        true,
		ServiceName:    "mailrules-test",
		ServiceVersion: "0.0.1",
	})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.True(t, p.Enabled())
	require.NotNil(t, p.Metrics())
}

func TestMetricsExportedViaHandler(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{Enabled: true, ServiceName: "mailrules-test"})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	m := p.Metrics()
	m.RecordEmailProcessed(ctx, true)
	m.RecordRuleOutcome(ctx, "executed")
	m.RecordAction(ctx, "mark_read", true, 25*time.Millisecond)
	m.RecordTokenRefresh(ctx, false)
	m.RecordProviderCall(ctx, "modify_message", true, 10*time.Millisecond)
	m.RecordHTTPRequest(ctx, http.MethodPost, "/v1/process", http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "emails_processed_total")
	assert.Contains(t, out, "rule_outcomes_total")
	assert.Contains(t, out, "rule_actions_total")
	assert.Contains(t, out, "oauth_token_refresh_total")
	assert.Contains(t, out, "mail_provider_calls_total")
}

func TestNilMetricsRecorderIsNoop(t *testing.T) {
	var m *Metrics

	// Must not panic
	ctx := context.Background()
	m.RecordEmailProcessed(ctx, true)
	m.RecordRuleOutcome(ctx, "matched")
	m.RecordAction(ctx, "move_to_folder", false, time.Second)
	m.RecordProviderCall(ctx, "create_label", false, time.Second)
	m.RecordTokenRefresh(ctx, true)
	m.RecordHTTPRequest(ctx, http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}
