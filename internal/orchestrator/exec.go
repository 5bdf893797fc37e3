package orchestrator

import (
	"context"
	"io"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// ExecOptions mirrors exec's flags (spec.md §4.5.3).
type ExecOptions struct {
	Service     string
	Command     []string
	Detach      bool
	Interactive bool
	TTY         bool
	User        string
	WorkingDir  string
	Env         map[string]string
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// Exec implements spec.md §4.5.3's exec operation: locate the
// service's container, attach the requested stdio, and return its
// exit code.
func (o *Orchestrator) Exec(ctx context.Context, p *project.Project, opts ExecOptions) (int, error) {
	const op = "orchestrator.Exec"

	svc, ok := p.Services[opts.Service]
	if !ok {
		return 0, apperr.Newf(op, apperr.NotFound, nil, "service %q not found", opts.Service)
	}
	id := svc.ContainerName
	if id == "" {
		id = containerName(p.Name, opts.Service)
	}

	cfg := runtime.ProcessConfig{
		Command:    opts.Command,
		Env:        opts.Env,
		WorkingDir: opts.WorkingDir,
		User:       opts.User,
		TTY:        opts.TTY,
	}
	if opts.Interactive {
		cfg.Stdin = opts.Stdin
	}
	cfg.Stdout = opts.Stdout
	cfg.Stderr = opts.Stderr

	proc, err := o.runtime.CreateProcess(ctx, id, cfg)
	if err != nil {
		return 0, apperr.Newf(op, apperr.InternalError, err, "failed to create process in %q", id)
	}

	if err := proc.Start(ctx); err != nil {
		return 0, apperr.Newf(op, apperr.InternalError, err, "failed to start process in %q", id)
	}

	if opts.Detach {
		return 0, nil
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go forwardSignalsOnce(execCtx, proc)

	exitCode, err := proc.Wait(ctx)
	if err != nil {
		return 0, apperr.Newf(op, apperr.InternalError, err, "process in %q failed", id)
	}
	return exitCode, nil
}

// forwardSignalsOnce waits for ctx cancellation (the caller's own
// SIGINT/SIGTERM handling) and forwards it to the running process
// exactly once.
func forwardSignalsOnce(ctx context.Context, proc runtime.Process) {
	<-ctx.Done()
	_ = proc.Kill(context.Background(), "SIGTERM")
}
