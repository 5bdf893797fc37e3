package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerstack/compose/internal/orchestrator"
)

func cmdUp(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("up")
	detach := fs.Bool("detach", false, "run containers in the background")
	forceRecreate := fs.Bool("force-recreate", false, "recreate containers even if config is unchanged")
	noRecreate := fs.Bool("no-recreate", false, "never recreate existing containers")
	noDeps := fs.Bool("no-deps", false, "don't start declared dependencies")
	removeOrphans := fs.Bool("remove-orphans", false, "remove containers for services no longer in the project")
	pullPolicy := fs.String("pull", "missing", "image pull policy: always|missing|never")
	wait := fs.Bool("wait", false, "wait for started services to report healthy/running")
	waitTimeout := fs.Int("wait-timeout", 0, "seconds to wait with --wait (0 = default)")
	disableHealthcheck := fs.Bool("no-healthcheck", false, "don't gate dependents on healthchecks")
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

	ids, err := orch.Up(ctx, proj, orchestrator.UpOptions{
		Selected:           selected,
		Detach:             *detach,
		ForceRecreate:      *forceRecreate,
		NoRecreate:         *noRecreate,
		NoDeps:             *noDeps,
		RemoveOrphans:      *removeOrphans,
		PullPolicy:         *pullPolicy,
		Wait:               *wait,
		WaitTimeoutSeconds: *waitTimeout,
		DisableHealthcheck: *disableHealthcheck,
	})
	if err != nil {
		return ExitGeneralFailure, err
	}

	for _, name := range proj.ServiceNames() {
		if id, ok := ids[name]; ok {
			fmt.Printf("%s  %s  %.12s\n", proj.Name, name, id)
		}
	}
	return ExitSuccess, nil
}

func cmdStart(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("start")
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
	if _, err := orch.Start(ctx, proj, selected); err != nil {
		return ExitGeneralFailure, err
	}
	return ExitSuccess, nil
}

func cmdRestart(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("restart")
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
	if _, err := orch.Restart(ctx, proj, selected); err != nil {
		return ExitGeneralFailure, err
	}
	return ExitSuccess, nil
}

func logWarnings(logger *slog.Logger, warnings []string) {
	for _, w := range warnings {
		logger.Warn(w, "component", "stackctl")
	}
}
