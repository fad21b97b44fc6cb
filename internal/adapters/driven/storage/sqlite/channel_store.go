package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// channelStore implements driven.ChannelStore.
type channelStore struct {
	store *Store
}

var _ driven.ChannelStore = (*channelStore)(nil)

const channelColumns = `id, channel_id, resource_id, calendar_id, token, active, expiration, created_at`

// Save stores or updates a channel, keyed by channel ID.
func (s *channelStore) Save(ctx context.Context, channel domain.NotificationChannel) error {
	if channel.ChannelID == "" {
		return domain.ErrMissingChannelID
	}
	if channel.ID == "" {
		channel.ID = channel.ChannelID
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO notification_channels (`+channelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			resource_id = excluded.resource_id,
			calendar_id = excluded.calendar_id,
			token = excluded.token,
			active = excluded.active,
			expiration = excluded.expiration
	`, channel.ID, channel.ChannelID, channel.ResourceID, channel.CalendarID,
		nullString(channel.Token), boolToInt(channel.Active),
		formatNullableTime(channel.Expiration), formatTime(channel.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving channel: %w", err)
	}
	return nil
}

// GetByChannelID retrieves a channel by its remote channel ID.
func (s *channelStore) GetByChannelID(ctx context.Context, channelID string) (*domain.NotificationChannel, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM notification_channels WHERE channel_id = ?`, channelID)
	return scanChannel(row)
}

// ListByCalendar returns the channels of a calendar, newest first.
func (s *channelStore) ListByCalendar(ctx context.Context, calendarID string) ([]domain.NotificationChannel, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+channelColumns+` FROM notification_channels
		WHERE calendar_id = ? ORDER BY created_at DESC, channel_id`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.NotificationChannel //nolint:prealloc // size unknown from query
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channels: %w", err)
	}
	return channels, nil
}

// Deactivate marks a channel inactive.
func (s *channelStore) Deactivate(ctx context.Context, channelID string) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE notification_channels SET active = 0 WHERE channel_id = ?", channelID)
	if err != nil {
		return fmt.Errorf("deactivating channel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a channel.
func (s *channelStore) Delete(ctx context.Context, channelID string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM notification_channels WHERE channel_id = ?", channelID); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	return nil
}

func scanChannel(row rowScanner) (*domain.NotificationChannel, error) {
	var channel domain.NotificationChannel
	var token, expiration sql.NullString
	var active int
	var createdAt string

	if err := row.Scan(&channel.ID, &channel.ChannelID, &channel.ResourceID, &channel.CalendarID,
		&token, &active, &expiration, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning channel: %w", err)
	}

	channel.Token = token.String
	channel.Active = active == 1
	channel.Expiration = parseNullableTime(expiration)
	channel.CreatedAt = parseTime(createdAt)
	return &channel, nil
}
