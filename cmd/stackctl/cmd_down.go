package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerstack/compose/internal/orchestrator"
)

func cmdDown(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("down")
	removeVolumes := fs.Bool("volumes", false, "also remove named and anonymous volumes")
	removeOrphans := fs.Bool("remove-orphans", false, "remove containers for services no longer in the project")
	if err := fs.Parse(args); err != nil {
		return ExitGeneralFailure, err
	}

	proj, warnings, err := loadProject(*g, cfg, nil)
	logWarnings(logger, warnings)
	if err != nil {
		return ExitGeneralFailure, err
	}

	orch, err := newOrchestrator(cfg, logger)
	if err != nil {
		return ExitGeneralFailure, err
	}

	result, err := orch.Down(ctx, proj, orchestrator.DownOptions{
		RemoveVolumes: *removeVolumes,
		RemoveOrphans: *removeOrphans,
	})
	if err != nil {
		return ExitGeneralFailure, err
	}

	fmt.Printf("removed %d container(s), %d volume(s)\n", len(result.RemovedContainers), len(result.RemovedVolumes))
	return ExitSuccess, nil
}

func cmdStop(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("stop")
	if err := fs.Parse(args); err != nil {
		return ExitGeneralFailure, err
	}

	proj, warnings, err := loadProject(*g, cfg, nil)
	logWarnings(logger, warnings)
	if err != nil {
		return ExitGeneralFailure, err
	}

	orch, err := newOrchestrator(cfg, logger)
	if err != nil {
		return ExitGeneralFailure, err
	}
	if err := orch.Stop(ctx, proj); err != nil {
		return ExitGeneralFailure, err
	}
	return ExitSuccess, nil
}

func cmdRemove(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("rm")
	force := fs.Bool("force", false, "remove running containers too")
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

	result, err := orch.Remove(ctx, proj, orchestrator.RemoveOptions{Services: selected, Force: *force})
	if err != nil {
		return ExitGeneralFailure, err
	}
	for _, w := range result.Warnings {
		logger.Warn(w, "component", "stackctl")
	}
	fmt.Printf("removed %d container(s)\n", len(result.Removed))
	return ExitSuccess, nil
}
