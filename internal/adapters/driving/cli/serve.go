package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/adapters/driving/webhook"
	"github.com/custodia-labs/calsync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive push notifications and sync on change",
	Long: `Starts the webhook server. Google delivers notifications for watched
calendars to POST /webhooks/google; each one syncs the calendar.

The server also serves /healthz, and /metrics when metrics.enabled is set.
Changes to the config file are picked up without a restart.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to webhook.listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

type serverRunner interface {
	Run(ctx context.Context) error
}

// newServer is replaced in tests.
var newServer = func(addr string, handler http.Handler) serverRunner {
	return webhook.NewServer(addr, handler)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if webhookHandler == nil {
		return errors.New("webhook handler not configured")
	}
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	addr := serveAddr
	if addr == "" {
		addr = settings.Webhook.ListenAddr
	}

	router := webhook.NewRouter(webhookHandler, webhook.Options{
		Token:   webhookToken(settings.Webhook.Token),
		Metrics: metricsExporter,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var wg sync.WaitGroup
	for _, task := range backgroundTasks {
		wg.Add(1)
		go func(task BackgroundTask) {
			defer wg.Done()
			if err := task.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background task stopped: %v", err)
			}
		}(task)
	}

	cmd.Printf("Listening for notifications on %s\n", addr)
	err = newServer(addr, router).Run(ctx)

	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// webhookToken reads the token on every request so reloads apply. The
// last good value is kept while the settings cannot be read.
func webhookToken(initial string) func() string {
	var (
		mu   sync.Mutex
		last = initial
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if settings, err := settingsService.Get(); err == nil {
			last = settings.Webhook.Token
		}
		return last
	}
}
