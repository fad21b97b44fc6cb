// Package diagnostics provides driven.DiagnosticSink implementations.
//
// Services report non-fatal anomalies (unwatchable calendars, aggregated
// event failures, hidden webhook causes) to a sink. AsyncSink keeps that
// off the request path; LogSink and FanOut decide where reports go.
package diagnostics
