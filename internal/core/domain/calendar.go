package domain

import "time"

// Calendar is a local calendar linked to a remote Google calendar.
type Calendar struct {
	// ID is the local identifier.
	ID string

	// RemoteID is the Google calendar ID (e.g. "primary" or an address).
	RemoteID string

	// Name is a human-readable label.
	Name string

	// LastSyncedAt is the sync cursor. Nil means the calendar was never synced,
	// which forces a full fetch.
	LastSyncedAt *time.Time

	// LastFullSyncAt is the cursor value set by the last full sync.
	LastFullSyncAt *time.Time

	// LastSyncIncremental records whether the last cursor advance came from
	// an incremental run.
	LastSyncIncremental bool

	// Incremental indicates the calendar may be synced incrementally.
	Incremental bool

	// CreatedAt is when the calendar was registered.
	CreatedAt time.Time

	// UpdatedAt is when the calendar was last modified.
	UpdatedAt time.Time
}

// NeverSynced returns true if no cursor has been recorded yet.
func (c *Calendar) NeverSynced() bool {
	return c.LastSyncedAt == nil || c.LastSyncedAt.IsZero()
}

// Syncable returns true if the calendar is linked to a remote calendar.
func (c *Calendar) Syncable() bool {
	return c.RemoteID != ""
}

// AdvanceCursor moves the cursor to ts, tagged with the sync mode.
// The cursor only moves forward; it returns false and leaves the calendar
// untouched when ts is zero or not after the current cursor.
func (c *Calendar) AdvanceCursor(ts time.Time, incremental bool) bool {
	if ts.IsZero() {
		return false
	}
	if c.LastSyncedAt != nil && !ts.After(*c.LastSyncedAt) {
		return false
	}

	cursor := ts.UTC()
	c.LastSyncedAt = &cursor
	c.LastSyncIncremental = incremental
	if !incremental {
		full := cursor
		c.LastFullSyncAt = &full
	}
	return true
}
