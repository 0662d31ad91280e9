// Package server exposes the rule engine over JSON HTTP for serve mode.
//
// The API is identity-scoped: every request names the acting user via
// the X-User-Key header. Endpoints cover one-shot email processing and
// rule CRUD, plus Kubernetes-style health probes. Prometheus metrics are
// served on a dedicated port by MetricsServer so operational data stays
// off the application listener.
package server
