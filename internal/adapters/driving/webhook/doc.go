// Package webhook receives Google Calendar push notifications over HTTP
// and hands them to the core webhook handler.
//
// Routes:
//
//	POST /webhooks/google  push notifications
//	GET  /healthz          liveness
//	GET  /metrics          Prometheus scrape endpoint (when enabled)
package webhook
