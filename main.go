package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"p9e.in/veritrace/config"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var versionFlag bool

	cmd := &cobra.Command{
		Use:           "veritrace",
		Short:         "EUDR due diligence declarations and compliance certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if versionFlag {
				fmt.Fprintf(cmd.OutOrStdout(), "Version:   %s\n", Version)
				fmt.Fprintf(cmd.OutOrStdout(), "BuildTime: %s\n", BuildTime)
				return nil
			}
			return cmd.Help()
		},
	}
	cmd.Flags().BoolVar(&versionFlag, "version", false, "Print version info and exit")

	cmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		wizardCommand(),
		catalogCommand(),
	)
	return cmd
}

// bootstrap loads settings from the environment (and .env when present)
// and builds the process logger.
func bootstrap() (config.Settings, *zap.Logger, error) {
	loaded := config.LoadEnv()

	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, nil, err
	}
	log, err := config.NewLogger(settings)
	if err != nil {
		return config.Settings{}, nil, fmt.Errorf("init logger: %w", err)
	}
	if !loaded {
		log.Debug("no .env file found, using process environment")
	}
	return settings, log, nil
}
