package cmd

import (
	"fmt"
	"os"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/infra/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "tiertrainer",
	Short:   "TierTrainer24 backend",
	Long:    "TierTrainer24 backend: accounts, billing, trials, pets, support and community APIs.",
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(expireTrialsCmd)
	rootCmd.AddCommand(syncPlansCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, installs the global logger and connects the database.
func bootstrap() *zap.Logger {
	config.LoadEnv()

	logger := logging.New(config.APP_ENV)
	zap.ReplaceGlobals(logger)

	database.InitDB()
	return logger
}
