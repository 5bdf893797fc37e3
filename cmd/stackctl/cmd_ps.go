package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

func cmdPs(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("ps")
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

	rows, err := orch.Ps(ctx, proj)
	if err != nil {
		return ExitGeneralFailure, err
	}

	fmt.Printf("%-20s %-14s %-30s %-10s %s\n", "SERVICE", "CONTAINER", "IMAGE", "STATUS", "PORTS")
	for _, r := range rows {
		fmt.Printf("%-20s %-14s %-30s %-10s %s\n", r.Service, r.ShortID, r.Image, r.Status, strings.Join(r.Ports, ", "))
	}
	return ExitSuccess, nil
}

func cmdHealth(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("health")
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

	results, err := orch.CheckHealth(ctx, proj, selected)
	if err != nil {
		return ExitGeneralFailure, err
	}

	allHealthy := true
	for _, name := range proj.ServiceNames() {
		healthy, ok := results[name]
		if !ok {
			continue
		}
		status := "unhealthy"
		if healthy {
			status = "healthy"
		} else {
			allHealthy = false
		}
		fmt.Printf("%s  %s\n", name, status)
	}
	if !allHealthy {
		return ExitGeneralFailure, nil
	}
	return ExitSuccess, nil
}
