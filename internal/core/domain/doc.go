// Package domain defines the core business entities for calsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Calendar: A local calendar linked to a remote Google calendar
//   - LocalEvent: A persisted copy of a remote event
//   - RemoteEvent: A normalised event fetched during one sync run
//   - NotificationChannel: A push-notification subscription for a calendar
//   - RemoteError: The closed taxonomy of remote calendar API failures
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
