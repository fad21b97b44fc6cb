package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync state of every calendar",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	ctx := cmd.Context()
	calendars, err := calendarService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	if len(calendars) == 0 {
		cmd.Println("No calendars configured.")
		return nil
	}

	for i := range calendars {
		cal := &calendars[i]
		cmd.Printf("%s (%s)\n", cal.Name, cal.ID)
		if !cal.Syncable() {
			cmd.Println("  Not linked to a Google calendar")
			continue
		}
		cmd.Printf("  Last synced: %s\n", lastSynced(cal))

		if syncEngine != nil {
			// Status is best effort.
			if status, err := syncEngine.Status(ctx, cal.ID); err == nil && status != nil && status.Running {
				cmd.Printf("  Sync running: %s, %d events processed, %d errors\n",
					status.Phase, status.EventsProcessed, status.ErrorCount)
			}
		}

		if channelService != nil {
			channels, err := channelService.List(ctx, cal.ID)
			if err != nil {
				cmd.Printf("  Channels: unavailable (%v)\n", err)
				continue
			}
			active := 0
			for j := range channels {
				if channels[j].Active {
					active++
				}
			}
			cmd.Printf("  Channels: %d active\n", active)
		}
	}
	return nil
}
