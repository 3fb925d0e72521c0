// ABOUTME: Cobra root command with config, logging, and database wiring
// ABOUTME: Shared setup for the server and sync subcommands
package cmd

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nuconnect/config"
	"nuconnect/db"
	"nuconnect/sync"
)

var (
	cfgFile  string
	cfg      *config.Config
	database *sql.DB
)

var rootCmd = &cobra.Command{
	Use:   "nuconnect",
	Short: "Personal CRM backend with Google Calendar sync",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real deployments use the environment directly.
		_ = godotenv.Load()

		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}

		initLogger(cfg)

		database, err = db.OpenDatabase(cfg.DatabasePath)
		if err != nil {
			slog.Error("Failed to open database", "path", cfg.DatabasePath, "error", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database != nil {
			_ = database.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initLogger(cfg *config.Config) {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// newEngine builds the sync engine from the loaded config and database.
func newEngine() *sync.Engine {
	oauthCfg := sync.NewOAuthConfig(&cfg.Google)
	client := sync.NewGoogleClient(oauthCfg, cfg.RequestTimeout())
	return sync.NewEngine(database, client, slog.Default())
}
