package main

import (
	"context"
	"os/signal"
	"syscall"

	"outreach-desk/cmd/outreachctl/command"
	"outreach-desk/internal/config"
	"outreach-desk/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	root := &cobra.Command{
		Use:          "outreachctl",
		Short:        "Daily customer diffs and lead nurturing from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(
		command.DiffCommand{Logger: logger}.Command(ctx, cfg),
		command.StageCommand{Logger: logger}.Command(ctx, cfg),
		command.CommitCommand{Logger: logger}.Command(ctx, cfg),
		command.ExportCommand{Logger: logger}.Command(ctx, cfg),
		command.ImportLegacyCommand{Logger: logger}.Command(ctx, cfg),
	)

	if err := root.Execute(); err != nil {
		logger.WithContext(ctx).Fatalf("failed to execute root command: \n%v", err)
	}
}
