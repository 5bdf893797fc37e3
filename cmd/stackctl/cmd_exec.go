package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/containerstack/compose/internal/orchestrator"
)

func cmdExec(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("exec")
	detach := fs.Bool("detach", false, "run the command in the background")
	interactive := fs.Bool("interactive", true, "attach stdin")
	tty := fs.Bool("tty", false, "allocate a pseudo-TTY")
	user := fs.String("user", "", "run as this user")
	workdir := fs.String("workdir", "", "working directory inside the container")
	var envEntries []string
	fs.Var(stringList{&envEntries}, "exec-env", "KEY=VAL to set in the exec'd process (repeatable)")
	if err := fs.Parse(args); err != nil {
		return ExitGeneralFailure, err
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return ExitGeneralFailure, fmt.Errorf("usage: stackctl exec [flags] SERVICE COMMAND [ARGS...]")
	}
	service := rest[0]
	command := rest[1:]

	env := make(map[string]string, len(envEntries))
	for _, entry := range envEntries {
		idx := strings.IndexByte(entry, '=')
		if idx < 0 {
			return ExitGeneralFailure, fmt.Errorf("invalid --exec-env entry %q: expected KEY=VAL", entry)
		}
		env[entry[:idx]] = entry[idx+1:]
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

	code, err := orch.Exec(ctx, proj, orchestrator.ExecOptions{
		Service:     service,
		Command:     command,
		Detach:      *detach,
		Interactive: *interactive,
		TTY:         *tty,
		User:        *user,
		WorkingDir:  *workdir,
		Env:         env,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
	return code, err
}
