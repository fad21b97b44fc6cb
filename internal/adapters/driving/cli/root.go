package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/adapters/driving/webhook"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose   bool
	useMemory bool
	configDir string
)

// Services used by the commands. Nil services make the commands that need
// them fail with a "not configured" error.
var (
	calendarService driving.CalendarService
	syncEngine      driving.SyncEngine
	channelService  driving.ChannelService
	webhookHandler  driving.WebhookHandler
	settingsService driving.SettingsService
	metricsExporter webhook.MetricsExporter
	backgroundTasks []BackgroundTask
)

// BackgroundTask runs alongside the webhook server until ctx ends.
type BackgroundTask interface {
	Run(ctx context.Context) error
}

// Services bundles the dependencies of the CLI.
type Services struct {
	Calendars driving.CalendarService
	Sync      driving.SyncEngine
	Channels  driving.ChannelService
	Webhooks  driving.WebhookHandler
	Settings  driving.SettingsService

	// Metrics is optional; nil disables /metrics.
	Metrics webhook.MetricsExporter

	// Background tasks are started by "serve", e.g. the config watcher.
	Background []BackgroundTask
}

// Configure installs the services used by the commands.
func Configure(s Services) {
	calendarService = s.Calendars
	syncEngine = s.Sync
	channelService = s.Channels
	webhookHandler = s.Webhooks
	settingsService = s.Settings
	metricsExporter = s.Metrics
	backgroundTasks = s.Background
}

// Options are the global flags passed to a Bootstrap.
type Options struct {
	// Memory keeps all state in memory for the duration of the command.
	Memory bool

	// ConfigDir overrides the configuration directory (~/.calsync).
	ConfigDir string
}

// Bootstrap builds the services once flags are parsed. The returned func
// releases them after the command finished.
type Bootstrap func(ctx context.Context, opts Options) (Services, func(), error)

var (
	bootstrap Bootstrap
	teardown  func()
)

// SetBootstrap installs the function that builds the services.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// SetVersion sets the version reported by "calsync version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Synchronise Google calendars into a local store",
	Long: `calsync keeps a local copy of Google calendars up to date.

It fetches changes incrementally from a cursor, falls back to a full
resync when Google rejects the cursor, and can receive push notifications
to sync as soon as a calendar changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		if bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
			return nil
		}
		s, release, err := bootstrap(cmd.Context(), Options{Memory: useMemory, ConfigDir: configDir})
		if err != nil {
			return err
		}
		Configure(s)
		teardown = release
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "keep state in memory instead of the database")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.calsync)")
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if teardown != nil {
			teardown()
			teardown = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
