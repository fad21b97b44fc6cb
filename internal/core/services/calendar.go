package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure CalendarService implements the interface.
var _ driving.CalendarService = (*CalendarService)(nil)

// channelStopper stops the active channels of a calendar.
type channelStopper interface {
	StopAll(ctx context.Context, calendarID string) error
}

// CalendarService manages local calendars and their remote counterparts.
type CalendarService struct {
	calendars driven.CalendarStore
	events    driven.EventStore
	channels  driven.ChannelStore
	runs      driven.SyncRunStore
	factory   driven.CalendarClientFactory
	stopper   channelStopper

	now   func() time.Time
	newID func() string
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(
	calendars driven.CalendarStore,
	events driven.EventStore,
	channels driven.ChannelStore,
	runs driven.SyncRunStore,
	factory driven.CalendarClientFactory,
	stopper channelStopper,
) *CalendarService {
	return &CalendarService{
		calendars: calendars,
		events:    events,
		channels:  channels,
		runs:      runs,
		factory:   factory,
		stopper:   stopper,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Add links an existing remote calendar after checking it is accessible.
// The name defaults to the remote ID.
func (s *CalendarService) Add(ctx context.Context, remoteID, name string) (*domain.Calendar, error) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return nil, domain.ErrMissingCalendarID
	}
	if _, err := s.calendars.GetByRemoteID(ctx, remoteID); err == nil {
		return nil, fmt.Errorf("%w: calendar %s", domain.ErrAlreadyExists, remoteID)
	}

	client, err := s.factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	defer client.Close()

	exists, err := client.CalendarExists(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: remote calendar %s", domain.ErrNotFound, remoteID)
	}

	if strings.TrimSpace(name) == "" {
		name = remoteID
	}
	return s.save(ctx, remoteID, name)
}

// Create creates a new remote calendar and links it.
func (s *CalendarService) Create(ctx context.Context, title string) (*domain.Calendar, error) {
	client, err := s.factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}
	defer client.Close()

	remoteID, err := client.CreateCalendar(ctx, title)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, remoteID, title)
}

func (s *CalendarService) save(ctx context.Context, remoteID, name string) (*domain.Calendar, error) {
	now := s.now()
	cal := domain.Calendar{
		ID:          s.newID(),
		RemoteID:    remoteID,
		Name:        name,
		Incremental: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.calendars.Save(ctx, cal); err != nil {
		return nil, fmt.Errorf("save calendar: %w", err)
	}
	logger.Info("linked calendar %s (%s)", cal.ID, remoteID)
	return &cal, nil
}

// Rename renames a calendar locally and remotely.
func (s *CalendarService) Rename(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	cal, err := s.calendars.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get calendar: %w", err)
	}

	if cal.Syncable() {
		client, err := s.factory.Create(ctx)
		if err != nil {
			return fmt.Errorf("create calendar client: %w", err)
		}
		defer client.Close()

		if err := client.UpdateCalendar(ctx, cal.RemoteID, name); err != nil {
			return err
		}
	}

	cal.Name = name
	cal.UpdatedAt = s.now()
	return s.calendars.Save(ctx, *cal)
}

// Remove stops the calendar's channels and deletes it with its events and
// channels. With deleteRemote the remote calendar is deleted too.
func (s *CalendarService) Remove(ctx context.Context, id string, deleteRemote bool) error {
	cal, err := s.calendars.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get calendar: %w", err)
	}

	if s.stopper != nil {
		if err := s.stopper.StopAll(ctx, id); err != nil {
			logger.Warn("stop channels of %s: %v", id, err)
		}
	}

	if deleteRemote && cal.Syncable() {
		client, err := s.factory.Create(ctx)
		if err != nil {
			return fmt.Errorf("create calendar client: %w", err)
		}
		defer client.Close()

		if err := client.DeleteCalendar(ctx, cal.RemoteID); err != nil {
			return err
		}
	}

	channels, err := s.channels.ListByCalendar(ctx, id)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if err := s.channels.Delete(ctx, ch.ChannelID); err != nil {
			return fmt.Errorf("delete channel: %w", err)
		}
	}
	if err := s.events.DeleteByCalendar(ctx, id); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if err := s.calendars.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return nil
}

// Get retrieves a calendar by ID.
func (s *CalendarService) Get(ctx context.Context, id string) (*domain.Calendar, error) {
	return s.calendars.Get(ctx, id)
}

// List returns all calendars.
func (s *CalendarService) List(ctx context.Context) ([]domain.Calendar, error) {
	return s.calendars.List(ctx)
}

// Events returns the local events of a calendar.
func (s *CalendarService) Events(ctx context.Context, id string) ([]domain.LocalEvent, error) {
	if _, err := s.calendars.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return s.events.ListByCalendar(ctx, id)
}

// History returns recent sync runs of a calendar.
func (s *CalendarService) History(ctx context.Context, id string, limit int) ([]domain.SyncRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListByCalendar(ctx, id, limit)
}
