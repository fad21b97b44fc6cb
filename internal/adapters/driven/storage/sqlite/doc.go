// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the calendar stores
// through a single database connection:
//
//   - CalendarStore: Linked calendars and their sync cursors
//   - EventStore: Local event copies, unique per (calendar, remote event)
//   - ChannelStore: Push-notification channels
//   - SyncRunStore: Sync history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.calsync/data/calsync.db
//
// # Thread Safety
//
// All operations are thread-safe. Event upserts rely on the table's unique
// constraint, so concurrent writers never create duplicate rows.
package sqlite
