// Package instrumentation provides OpenTelemetry-based metrics for the
// rule engine, exported in Prometheus format.
//
// The Provider wires an OTel meter provider to a Prometheus exporter and
// owns the /metrics handler. Metrics is the recorder handed to the
// packages that emit measurements (engine, auth, server). A nil *Metrics
// is a valid no-op recorder, so instrumentation stays optional in tests
// and one-shot CLI runs.
package instrumentation
