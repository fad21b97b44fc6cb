package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Aliases: []string{"cal"},
	Short:   "Manage synchronised calendars",
}

var calendarAddCmd = &cobra.Command{
	Use:   "add <remote-id>",
	Short: "Link an existing Google calendar",
	Long: `Links an existing Google calendar, such as "primary" or a calendar
address, after checking that it is accessible.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalendarAdd,
}

var calendarCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new Google calendar and link it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarCreate,
}

var calendarRenameCmd = &cobra.Command{
	Use:   "rename <calendar-id> <name>",
	Short: "Rename a calendar locally and on Google",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalendarRename,
}

var calendarRemoveCmd = &cobra.Command{
	Use:   "remove <calendar-id>",
	Short: "Remove a calendar and its local events",
	Long: `Stops the calendar's push notification channels and deletes its local
events. The Google calendar is kept unless --delete-remote is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalendarRemove,
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendars",
	RunE:  runCalendarList,
}

var calendarHistoryCmd = &cobra.Command{
	Use:   "history <calendar-id>",
	Short: "Show recent sync runs of a calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarHistory,
}

var eventsCmd = &cobra.Command{
	Use:   "events <calendar-id>",
	Short: "List the local events of a calendar",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

var (
	calendarName string
	deleteRemote bool
	historyLimit int
)

func init() {
	calendarAddCmd.Flags().StringVar(&calendarName, "name", "", "local name (defaults to the remote ID)")
	calendarRemoveCmd.Flags().BoolVar(&deleteRemote, "delete-remote", false, "also delete the Google calendar")
	calendarHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 for all)")

	calendarCmd.AddCommand(calendarAddCmd)
	calendarCmd.AddCommand(calendarCreateCmd)
	calendarCmd.AddCommand(calendarRenameCmd)
	calendarCmd.AddCommand(calendarRemoveCmd)
	calendarCmd.AddCommand(calendarListCmd)
	calendarCmd.AddCommand(calendarHistoryCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(eventsCmd)
}

var errCalendarServiceMissing = errors.New("calendar service not configured")

func runCalendarAdd(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	cal, err := calendarService.Add(cmd.Context(), args[0], calendarName)
	if err != nil {
		return fmt.Errorf("failed to add calendar: %w", err)
	}

	cmd.Printf("Calendar added: %s (%s)\n", cal.Name, cal.ID)
	return nil
}

func runCalendarCreate(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	cal, err := calendarService.Create(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}

	cmd.Printf("Calendar created: %s (%s)\n", cal.Name, cal.ID)
	cmd.Printf("  Google ID: %s\n", cal.RemoteID)
	return nil
}

func runCalendarRename(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	if err := calendarService.Rename(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename calendar: %w", err)
	}

	cmd.Printf("Calendar %s renamed to %q.\n", args[0], args[1])
	return nil
}

func runCalendarRemove(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	if err := calendarService.Remove(cmd.Context(), args[0], deleteRemote); err != nil {
		return fmt.Errorf("failed to remove calendar: %w", err)
	}

	cmd.Printf("Calendar %s removed.\n", args[0])
	return nil
}

func runCalendarList(cmd *cobra.Command, _ []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	calendars, err := calendarService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	if len(calendars) == 0 {
		cmd.Println("No calendars. Add one with: calsync calendar add <remote-id>")
		return nil
	}

	cmd.Printf("%-36s  %-24s  %-30s  %s\n", "ID", "NAME", "GOOGLE ID", "LAST SYNCED")
	for i := range calendars {
		cal := &calendars[i]
		cmd.Printf("%-36s  %-24s  %-30s  %s\n",
			cal.ID, truncate(cal.Name, 24), truncate(cal.RemoteID, 30), lastSynced(cal))
	}
	return nil
}

func runCalendarHistory(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	runs, err := calendarService.History(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("failed to get sync history: %w", err)
	}

	if len(runs) == 0 {
		cmd.Println("No sync runs recorded.")
		return nil
	}

	for i := range runs {
		run := &runs[i]
		outcome := "ok"
		if !run.Success {
			outcome = "failed: " + run.Error
		}
		cmd.Printf("%s  %-11s  +%d ~%d -%d !%d  %s  %s\n",
			run.StartedAt.Local().Format(time.DateTime), run.Strategy,
			run.Created, run.Updated, run.Deleted, run.Failed,
			run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond), outcome)
	}
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarServiceMissing
	}

	events, err := calendarService.Events(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(events) == 0 {
		cmd.Println("No events. Run: calsync sync " + args[0])
		return nil
	}

	for i := range events {
		ev := &events[i]
		marker := " "
		if !ev.CheckedForConflicts {
			marker = "*"
		}
		cmd.Printf("%s %s - %s  %s\n", marker,
			ev.Start.Local().Format(time.DateTime), ev.End.Local().Format(time.Kitchen),
			truncate(ev.Title, 60))
	}
	cmd.Printf("\n%d event(s); * = not yet checked for conflicts\n", len(events))
	return nil
}

func lastSynced(cal *domain.Calendar) string {
	if cal.NeverSynced() {
		return "never"
	}
	mode := "full"
	if cal.LastSyncIncremental {
		mode = "incremental"
	}
	return fmt.Sprintf("%s (%s)", cal.LastSyncedAt.Local().Format(time.DateTime), mode)
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
