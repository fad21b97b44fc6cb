package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync [calendar-id]",
	Short: "Synchronise calendars from Google",
	Long: `Fetches changes from Google and applies them to the local store.
If a calendar ID is provided, only that calendar is synchronised.
Otherwise, all calendars are synchronised.

By default the strategy configured in sync.strategy is used ("smart":
incremental, with a full resync when Google rejects the cursor).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var (
	syncFull        bool
	syncIncremental bool
	syncStrategy    string
)

// progressInterval is how often a running sync is polled for progress.
var progressInterval = 500 * time.Millisecond

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "fetch the whole range, ignoring the cursor")
	syncCmd.Flags().BoolVar(&syncIncremental, "incremental", false, "fetch changes only; fail if the cursor is too old")
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", "", "strategy name: smart, incremental or full")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncEngine == nil {
		return errors.New("sync service not configured")
	}

	strategy, err := resolveStrategy()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if len(args) > 0 {
		calendarID := args[0]
		cmd.Printf("Synchronising calendar: %s (%s)...\n", calendarID, strategy.Name)

		result, err := syncWithProgress(ctx, cmd, syncEngine, calendarID, strategy)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		printResult(cmd, result)
		return nil
	}

	cmd.Printf("Synchronising all calendars (%s)...\n", strategy.Name)

	results, err := syncEngine.SyncAll(ctx, strategy)
	for i := range results {
		printResult(cmd, &results[i])
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Println("All calendars synchronised successfully.")
	return nil
}

// resolveStrategy picks the strategy from the flags, then from settings.
func resolveStrategy() (domain.SyncStrategy, error) {
	switch {
	case syncFull && syncIncremental:
		return domain.SyncStrategy{}, errors.New("--full and --incremental are mutually exclusive")
	case syncFull:
		return domain.FullResync, nil
	case syncIncremental:
		return domain.IncrementalSync, nil
	case syncStrategy != "":
		return domain.StrategyByName(syncStrategy)
	}

	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return domain.SyncStrategy{}, fmt.Errorf("failed to get settings: %w", err)
		}
		return domain.StrategyByName(settings.Sync.Strategy)
	}
	return domain.SmartSync, nil
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	engine driving.SyncEngine,
	calendarID string,
	strategy domain.SyncStrategy,
) (*domain.SyncResult, error) {
	type outcome struct {
		result *domain.SyncResult
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		result, err := engine.Sync(ctx, calendarID, strategy)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	lastPhase := domain.PhaseIdle
	printed := false
	for {
		select {
		case out := <-done:
			if printed {
				cmd.Println()
			}
			return out.result, out.err
		case <-ticker.C:
			// Progress is best effort.
			status, err := engine.Status(ctx, calendarID)
			if err != nil || status == nil || !status.Running {
				continue
			}
			if status.Phase != lastPhase && status.EventsProcessed == 0 {
				cmd.Printf("\r%s...", status.Phase)
				lastPhase = status.Phase
				printed = true
			}
			if status.EventsProcessed > lastCount {
				cmd.Printf("\rProcessing... %d events", status.EventsProcessed)
				lastCount = status.EventsProcessed
				printed = true
			}
		}
	}
}

func printResult(cmd *cobra.Command, result *domain.SyncResult) {
	if result == nil {
		return
	}

	mode := "full"
	if result.Incremental {
		mode = "incremental"
	}
	cmd.Printf("Calendar %s synchronised (%s): %d created, %d updated, %d deleted, %d unchanged",
		result.CalendarID, mode, result.Created, result.Updated, result.Deleted, result.Unchanged)
	if result.Failed > 0 {
		cmd.Printf(", %d failed", result.Failed)
	}
	cmd.Println()

	if result.FellBackToFull {
		cmd.Println("  The sync cursor was too old; a full resync was performed.")
	}
}
