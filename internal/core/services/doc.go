// Package services implements the driving port interfaces.
// Services contain the sync logic and orchestrate calls to driven ports
// (stores, calendar clients, diagnostics).
//
// The SyncEngine owns the fetch, reconcile and commit cycle of a calendar.
// ChannelManager and WebhookDispatcher handle push notifications, and
// CalendarService and SettingsService back the command line.
package services
