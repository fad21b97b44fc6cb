package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/calsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/calsync/internal/adapters/driven/diagnostics"
	"github.com/custodia-labs/calsync/internal/adapters/driven/metrics"
	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/calsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/calsync/internal/connectors/google/calendar"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/services"
	"github.com/custodia-labs/calsync/internal/logger"
)

// stores groups the persistence ports.
type stores struct {
	calendars driven.CalendarStore
	events    driven.EventStore
	channels  driven.ChannelStore
	runs      driven.SyncRunStore
	close     func() error
}

func openStores(dataDir string, inMemory bool) (*stores, error) {
	if inMemory {
		return &stores{
			calendars: memory.NewCalendarStore(),
			events:    memory.NewEventStore(),
			channels:  memory.NewChannelStore(),
			runs:      memory.NewSyncRunStore(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("using database %s", db.Path())
	return &stores{
		calendars: db.CalendarStore(),
		events:    db.EventStore(),
		channels:  db.ChannelStore(),
		runs:      db.SyncRunStore(),
		close:     db.Close,
	}, nil
}

// bootstrap wires the adapters and services for one command.
func bootstrap(_ context.Context, opts cli.Options) (cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("load config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("load settings: %w", err)
	}

	st, err := openStores(settings.Storage.DataDir, opts.Memory)
	if err != nil {
		return cli.Services{}, nil, err
	}

	var (
		syncMetrics driven.SyncMetrics
		recorder    *metrics.Recorder
		sinks       = diagnostics.FanOut{diagnostics.LogSink{}}
	)
	if settings.Metrics.Enabled {
		recorder = metrics.NewRecorder(prometheus.NewRegistry())
		syncMetrics = recorder
		sinks = append(sinks, recorder)
	}
	sink := diagnostics.NewAsyncSink(sinks, diagnostics.DefaultBuffer)

	factory := calendar.NewFactory(*settings, sink, syncMetrics)
	source := services.NewSyncDataSource(settings.Sync)

	engine := services.NewSyncEngine(st.calendars, st.events, st.runs, factory, source, sink, syncMetrics)
	channels := services.NewChannelManager(st.calendars, st.channels, factory, sink)
	calendars := services.NewCalendarService(st.calendars, st.events, st.channels, st.runs, factory, channels)
	dispatcher := services.NewWebhookDispatcher(st.channels, st.calendars, engine, sink, syncMetrics)

	watcher := file.NewWatcher(configStore, func() {
		updated, err := settingsService.Get()
		if err != nil {
			logger.Warn("reload settings: %v", err)
			return
		}
		factory.Update(*updated)
		source.Update(updated.Sync)
		logger.Info("settings reloaded from %s", configStore.Path())
	})

	svc := cli.Services{
		Calendars:  calendars,
		Sync:       engine,
		Channels:   channels,
		Webhooks:   dispatcher,
		Settings:   settingsService,
		Background: []cli.BackgroundTask{watcher},
	}
	if recorder != nil {
		svc.Metrics = recorder
	}

	release := func() {
		_ = sink.Close()
		if err := st.close(); err != nil {
			logger.Warn("close store: %v", err)
		}
	}
	return svc, release, nil
}
