package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Reads and writes settings in ~/.calsync/config.toml.
Keys are dotted paths such as sync.max_results or webhook.address.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the stored value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported keys and their stored values",
	RunE:  runConfigList,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the settings are usable",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var errSettingsServiceMissing = errors.New("settings service not configured")

// secretKeys are masked when printed.
var secretKeys = map[string]bool{
	"google.client_secret": true,
	"webhook.token":        true,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Google]")
	cmd.Printf("  Credentials file: %s\n", orUnset(settings.Google.CredentialsFile))
	cmd.Printf("  Token file: %s\n", orUnset(settings.Google.TokenFile))
	cmd.Printf("  Client ID: %s\n", orUnset(settings.Google.ClientID))
	cmd.Printf("  Client secret: %s\n", maskSecret(settings.Google.ClientSecret))
	if settings.Google.Endpoint != "" {
		cmd.Printf("  Endpoint: %s\n", settings.Google.Endpoint)
	}
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Strategy: %s\n", settings.Sync.Strategy)
	cmd.Printf("  Page size: %d\n", settings.Sync.MaxResults)
	cmd.Printf("  Follow pages: %t\n", settings.Sync.FollowPages)
	cmd.Printf("  Window: %s past, %s future\n",
		windowString(settings.Sync.PastWindow.Hours()), windowString(settings.Sync.FutureWindow.Hours()))
	cmd.Printf("  Retries: %d (backoff %s)\n", settings.Sync.MaxRetries, settings.Sync.Backoff)
	cmd.Printf("  Requests per second: %g\n", settings.Sync.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[Webhook]")
	cmd.Printf("  Address: %s\n", orUnset(settings.Webhook.Address))
	cmd.Printf("  Listen: %s\n", settings.Webhook.ListenAddr)
	cmd.Printf("  Token: %s\n", maskSecret(settings.Webhook.Token))
	if settings.Webhook.ChannelTTL > 0 {
		cmd.Printf("  Channel TTL: %s\n", settings.Webhook.ChannelTTL)
	}
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", orDefault(settings.Storage.DataDir, "~/.calsync/data"))
	cmd.Println()

	cmd.Println("[Metrics]")
	cmd.Printf("  Enabled: %t\n", settings.Metrics.Enabled)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	key := args[0]
	value, set, err := settingsService.Lookup(key)
	if err != nil {
		return err
	}
	if !set {
		cmd.Printf("%s is not set (default applies)\n", key)
		return nil
	}
	cmd.Println(displayValue(key, value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("%s = %s\n", key, displayValue(key, value))
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	for _, key := range settingsService.Keys() {
		value, set, err := settingsService.Lookup(key)
		if err != nil {
			return err
		}
		shown := "(default)"
		if set {
			shown = displayValue(key, value)
		}
		cmd.Printf("%-28s %s\n", key, shown)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsServiceMissing
	}

	if err := settingsService.Validate(); err != nil {
		return err
	}
	cmd.Println("Settings are valid.")
	return nil
}

func displayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if secretKeys[key] {
		return maskSecret(s)
	}
	return s
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

func orUnset(s string) string {
	return orDefault(s, "(not set)")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func windowString(hours float64) string {
	if hours == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%gd", hours/24)
}
