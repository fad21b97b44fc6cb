package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch <calendar-id>",
	Short: "Register a push notification channel for a calendar",
	Long: `Asks Google to send change notifications for the calendar to the
configured webhook.address. Run "calsync serve" to receive them.

Some calendars, such as public holiday calendars, cannot be watched.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var unwatchCmd = &cobra.Command{
	Use:   "unwatch <channel-id>",
	Short: "Stop a push notification channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnwatch,
}

var channelsCmd = &cobra.Command{
	Use:   "channels <calendar-id>",
	Short: "List the push notification channels of a calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannels,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(unwatchCmd)
	rootCmd.AddCommand(channelsCmd)
}

var errChannelServiceMissing = errors.New("channel service not configured")

func runWatch(cmd *cobra.Command, args []string) error {
	if channelService == nil {
		return errChannelServiceMissing
	}

	result, err := channelService.Watch(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to watch calendar: %w", err)
	}

	if !result.Watching() {
		cmd.Printf("Calendar %s does not support push notifications.\n", args[0])
		return nil
	}

	ch := result.Channel
	if result.Status == domain.WatchExisting {
		cmd.Printf("Already watching calendar %s.\n", args[0])
	} else {
		cmd.Printf("Watching calendar %s.\n", args[0])
	}
	cmd.Printf("  Channel:  %s\n", ch.ChannelID)
	cmd.Printf("  Resource: %s\n", ch.ResourceID)
	if !ch.Expiration.IsZero() {
		cmd.Printf("  Expires:  %s\n", ch.Expiration.Local().Format(time.DateTime))
	}
	return nil
}

func runUnwatch(cmd *cobra.Command, args []string) error {
	if channelService == nil {
		return errChannelServiceMissing
	}

	if err := channelService.Unwatch(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to stop channel: %w", err)
	}

	cmd.Printf("Channel %s stopped.\n", args[0])
	return nil
}

func runChannels(cmd *cobra.Command, args []string) error {
	if channelService == nil {
		return errChannelServiceMissing
	}

	channels, err := channelService.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	if len(channels) == 0 {
		cmd.Println("No channels. Register one with: calsync watch " + args[0])
		return nil
	}

	now := time.Now()
	for i := range channels {
		ch := &channels[i]
		state := "active"
		switch {
		case !ch.Active:
			state = "stopped"
		case ch.Expired(now):
			state = "expired"
		}

		expires := "-"
		if !ch.Expiration.IsZero() {
			expires = ch.Expiration.Local().Format(time.DateTime)
		}
		cmd.Printf("%-36s  %-8s  expires %s\n", ch.ChannelID, state, expires)
	}
	return nil
}
