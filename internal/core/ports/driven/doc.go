// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CalendarClient: Talks to the remote calendar API (events, channels, calendars)
//   - CalendarClientFactory: Creates an independently owned client per run
//   - CalendarStore: Calendar and sync cursor persistence
//   - EventStore: Local event persistence, unique per (calendar, remote event)
//   - ChannelStore: Notification channel persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SyncRunStore: Sync history. Without it, runs are only logged.
//   - DiagnosticSink: Non-fatal anomaly reporting. Without it, anomalies are only logged.
//   - SyncMetrics: Metrics recording.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
