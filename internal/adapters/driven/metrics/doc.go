// Package metrics exports sync, webhook and HTTP metrics to Prometheus.
package metrics
