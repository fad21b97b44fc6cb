package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure ChannelStore implements the interface.
var _ driven.ChannelStore = (*ChannelStore)(nil)

// ChannelStore is an in-memory implementation of driven.ChannelStore.
type ChannelStore struct {
	mu       sync.RWMutex
	channels map[string]domain.NotificationChannel
}

// NewChannelStore creates a new in-memory channel store.
func NewChannelStore() *ChannelStore {
	return &ChannelStore{
		channels: make(map[string]domain.NotificationChannel),
	}
}

// Save stores or updates a channel keyed by its channel ID.
func (s *ChannelStore) Save(_ context.Context, channel domain.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel.ChannelID] = channel
	return nil
}

// GetByChannelID retrieves a channel by its channel ID.
func (s *ChannelStore) GetByChannelID(_ context.Context, channelID string) (*domain.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channel, ok := s.channels[channelID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &channel, nil
}

// ListByCalendar returns the channels of a calendar, newest first.
func (s *ChannelStore) ListByCalendar(_ context.Context, calendarID string) ([]domain.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.NotificationChannel
	for _, channel := range s.channels {
		if channel.CalendarID == calendarID {
			result = append(result, channel)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Deactivate marks a channel inactive.
func (s *ChannelStore) Deactivate(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel, ok := s.channels[channelID]
	if !ok {
		return domain.ErrNotFound
	}
	channel.Active = false
	s.channels[channelID] = channel
	return nil
}

// Delete removes a channel.
func (s *ChannelStore) Delete(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
	return nil
}
