package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerstack/compose/internal/orchestrator"
)

func cmdLogs(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("logs")
	follow := fs.Bool("follow", false, "stream new log lines until interrupted")
	tail := fs.String("tail", "", "number of lines to show from the end of the logs")
	timestamps := fs.Bool("timestamps", false, "show timestamps")
	if err := fs.Parse(args); err != nil {
		return ExitGeneralFailure, err
	}
	selected := fs.Args()

	proj, warnings, err := loadProject(*g, cfg, selected)
	logWarnings(logger, warnings)
	if err != nil {
		return ExitGeneralFailure, err
	}

	orch, err := newOrchestrator(cfg, logger)
	if err != nil {
		return ExitGeneralFailure, err
	}

	entries, err := orch.Logs(ctx, proj, orchestrator.LogsOptions{
		Selected:   selected,
		Follow:     *follow,
		Tail:       *tail,
		Timestamps: *timestamps,
	})
	if err != nil {
		return ExitGeneralFailure, err
	}

	for entry := range entries {
		if *timestamps {
			fmt.Printf("%s  %s | %s\n", entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), entry.Service, entry.Message)
		} else {
			fmt.Printf("%s | %s\n", entry.Service, entry.Message)
		}
	}
	if ctx.Err() != nil {
		return ExitInterrupted, ctx.Err()
	}
	return ExitSuccess, nil
}
