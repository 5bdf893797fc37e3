package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/containerstack/compose/internal/orchestrator"
	"github.com/containerstack/compose/internal/shell/build"
	"github.com/containerstack/compose/internal/shell/runtime"
	"github.com/containerstack/compose/internal/shell/runtime/docker"
)

// commandFunc runs one subcommand and reports its exit code. A non-nil
// error is printed by main; if the context was cancelled main returns
// ExitInterrupted, otherwise code is used verbatim unless it's 0, in
// which case main substitutes ExitGeneralFailure.
type commandFunc func(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error)

var commands = map[string]commandFunc{
	"up":       cmdUp,
	"down":     cmdDown,
	"start":    cmdStart,
	"stop":     cmdStop,
	"restart":  cmdRestart,
	"ps":       cmdPs,
	"logs":     cmdLogs,
	"exec":     cmdExec,
	"health":   cmdHealth,
	"validate": cmdValidate,
	"rm":       cmdRemove,
}

// newGlobalFlagSet registers the global flags spec.md §6.1 defines on
// fs, so every subcommand accepts them uniformly.
func newGlobalFlagSet(name string) (*flag.FlagSet, *globalFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	g := &globalFlags{}

	fs.Var(stringList{&g.files}, "file", "compose file (repeatable)")
	fs.Var(stringList{&g.files}, "f", "compose file (repeatable, shorthand)")
	fs.StringVar(&g.project, "project", "", "project name")
	fs.StringVar(&g.project, "p", "", "project name (shorthand)")
	fs.Var(stringList{&g.profiles}, "profile", "activate profile (repeatable)")
	fs.Var(stringList{&g.envOverrides}, "env", "KEY=VAL interpolation override (repeatable)")
	fs.BoolVar(&g.allowAnchors, "allow-anchors", false, "allow YAML anchors/aliases/merge keys")

	return fs, g
}

// newRuntime wires a docker.Client and build.Adapter the way every
// runtime-touching subcommand needs them.
func newRuntime(cfg *Config) (runtime.Client, *build.Adapter, error) {
	rt, err := docker.New(cfg.Runtime.Host)
	if err != nil {
		return nil, nil, err
	}
	adapter := build.NewAdapter()
	if cfg.Runtime.BuildExecutable != "" {
		adapter.ExecutablePath = cfg.Runtime.BuildExecutable
	}
	return rt, adapter, nil
}

func newOrchestrator(cfg *Config, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	rt, adapter, err := newRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(rt, adapter, logger), nil
}
