// ABOUTME: Server command starting the HTTP boundary and sync scheduler
// ABOUTME: Runs gin on the configured port with the scheduler in background
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nuconnect/sync"
	"nuconnect/web"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the CRM backend server",
	Run: func(cmd *cobra.Command, args []string) {
		engine := newEngine()

		scheduler := sync.NewScheduler(
			engine,
			cfg.SyncInterval(),
			cfg.Google.SyncWorkers,
			cfg.Google.SyncEnabled,
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go scheduler.Run(ctx)

		server := web.NewServer(database, engine, cfg.JWTSecret)
		slog.Info("starting server", "port", cfg.Port)
		if err := server.Start(cfg.Port); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
