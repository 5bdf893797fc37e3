// Command stackctl is the illustrative CLI driver for the compose core
// (spec.md §6.1): it is a thin `flag`-based wrapper that parses
// arguments, loads and converts compose files, and calls straight into
// internal/orchestrator. None of the orchestration logic lives here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes, per spec.md §6.1.
const (
	ExitSuccess        = 0
	ExitGeneralFailure = 1
	ExitInterrupted    = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return ExitGeneralFailure
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return ExitSuccess
	}

	cfg, err := LoadConfig(os.Getenv("STACKCTL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackctl: configuration error: %v\n", err)
		return ExitGeneralFailure
	}
	logger := SetupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "stackctl: unknown command %q\n", cmd)
		usage()
		return ExitGeneralFailure
	}

	code, err := handler(ctx, rest, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackctl: %v\n", err)
		if ctx.Err() != nil {
			return ExitInterrupted
		}
		if code == 0 {
			code = ExitGeneralFailure
		}
	}
	return code
}

func usage() {
	fmt.Fprintln(os.Stderr, `stackctl - multi-container orchestrator driver

Usage:
  stackctl <command> [flags]

Commands:
  up        create and start services
  down      stop and remove a project's resources
  start     start existing (or create missing) service containers
  stop      stop a project's containers
  restart   down followed by up
  ps        list a project's containers
  logs      stream or dump service logs
  exec      run a command in a running service container
  health    run each service's healthcheck once
  validate  parse, merge, convert and resolve without touching the runtime
  rm        remove stopped (or, with --force, running) containers

Global flags (accepted by most commands):
  -f, --file FILE       compose file (repeatable)
  -p, --project NAME    project name
      --profile NAME    activate profile (repeatable)
      --env KEY=VAL     set an interpolation variable (repeatable)
      --allow-anchors   allow YAML anchors/aliases/merge keys`)
}
