package commands

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/bankfeed/internal/app"
	"github.com/MrJamesThe3rd/bankfeed/internal/config"
	"github.com/MrJamesThe3rd/bankfeed/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var owner string

	rootCmd := &cobra.Command{
		Use:   "bankfeed",
		Short: "Import bank exports, reconcile checks and find subscriptions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&owner, "owner", os.Getenv("BANKFEED_OWNER"), "owner id the data belongs to")

	rootCmd.AddCommand(
		newImportCommand(&owner),
		newSubscriptionsCommand(),
		newChecksCommand(),
	)

	return rootCmd
}

// open loads .env and the configuration and wires the services. Logs go to
// stderr so command output stays clean.
func open(ctx context.Context) (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return app.New(ctx, cfg, logger.New(os.Stderr, cfg.App.LogLevel))
}
