// ABOUTME: One-shot sync command for operators
// ABOUTME: Reconciles a single user or every sync-enabled user from the CLI
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nuconnect/sync"
)

var syncUserID string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one calendar sync pass",
	Long:  `Reconciles calendar events with Google. With --user, syncs that user only; otherwise runs one scheduled-style pass over all sync-enabled users.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine := newEngine()
		ctx := context.Background()

		if syncUserID != "" {
			result, err := engine.SyncUser(ctx, syncUserID)
			if err != nil {
				slog.Error("sync failed", "user", syncUserID, "error", err)
				os.Exit(1)
			}
			fmt.Printf("imported=%d exported=%d conflicts=%d skipped=%d\n",
				result.Imported, result.Exported, result.Conflicts, result.Skipped)
			return
		}

		scheduler := sync.NewScheduler(engine, cfg.SyncInterval(), cfg.Google.SyncWorkers, true)
		scheduler.RunOnce(ctx)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncUserID, "user", "", "sync a single user id")
	rootCmd.AddCommand(syncCmd)
}
