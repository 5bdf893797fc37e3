package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

const (
	startedPollTimeout    = 120 * time.Second
	startedPollInterval   = time.Second
	completedPollTimeout  = 600 * time.Second
	completedPollInterval = 2 * time.Second

	defaultHealthInterval = 5 * time.Second
	defaultHealthRetries  = 10
)

// waitForDependencies implements spec.md §4.5.1 step 5's gating:
// before creating svc's container, wait for each of its declared
// dependency conditions on the already-reconciled containers named in
// containerIDs.
func (o *Orchestrator) waitForDependencies(ctx context.Context, p *project.Project, svc project.Service, containerIDs map[string]string, disableHealthcheck bool) error {
	for _, dep := range svc.DependsOnStarted {
		if err := o.waitUntilRunning(ctx, containerIDs[dep]); err != nil {
			return err
		}
	}
	if !disableHealthcheck {
		for _, dep := range svc.DependsOnHealthy {
			depSvc := p.Services[dep]
			if err := o.waitUntilHealthy(ctx, containerIDs[dep], depSvc.HealthCheck); err != nil {
				return err
			}
		}
	}
	for _, dep := range svc.DependsOnCompletedSuccessfully {
		if err := o.waitUntilGone(ctx, containerIDs[dep]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) waitUntilRunning(ctx context.Context, containerID string) error {
	const op = "orchestrator.waitUntilRunning"
	deadline := time.Now().Add(startedPollTimeout)
	for {
		info, err := o.runtime.GetContainer(ctx, containerID)
		if err == nil && info.Status == runtime.StatusRunning {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.New(op, apperr.Timeout, "timed out waiting for container "+containerID+" to start", nil)
		}
		if err := sleep(ctx, startedPollInterval); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) waitUntilGone(ctx context.Context, containerID string) error {
	const op = "orchestrator.waitUntilGone"
	deadline := time.Now().Add(completedPollTimeout)
	for {
		if _, err := o.runtime.GetContainer(ctx, containerID); err != nil {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.New(op, apperr.Timeout, "timed out waiting for container "+containerID+" to complete", nil)
		}
		if err := sleep(ctx, completedPollInterval); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) waitUntilHealthy(ctx context.Context, containerID string, hc *project.HealthCheck) error {
	const op = "orchestrator.waitUntilHealthy"
	if hc == nil {
		return o.waitUntilRunning(ctx, containerID)
	}

	if hc.StartPeriod > 0 {
		if err := sleep(ctx, time.Duration(hc.StartPeriod)*time.Second); err != nil {
			return err
		}
	}

	interval := defaultHealthInterval
	if hc.Interval > 0 {
		interval = time.Duration(hc.Interval) * time.Second
	}
	retries := hc.Retries
	if retries == 0 {
		retries = defaultHealthRetries
	}

	for attempt := 0; attempt < retries; attempt++ {
		ok, err := o.runHealthCheck(ctx, containerID, hc)
		if err == nil && ok {
			return nil
		}
		if attempt < retries-1 {
			if err := sleep(ctx, interval); err != nil {
				return err
			}
		}
	}
	return apperr.New(op, apperr.Timeout, "container "+containerID+" did not become healthy", nil)
}

// runHealthCheck executes hc's test command once inside containerID and
// reports whether it exited zero.
func (o *Orchestrator) runHealthCheck(ctx context.Context, containerID string, hc *project.HealthCheck) (bool, error) {
	if len(hc.Test) == 0 {
		info, err := o.runtime.GetContainer(ctx, containerID)
		if err != nil {
			return false, err
		}
		return info.Status == runtime.StatusRunning, nil
	}

	proc, err := o.runtime.CreateProcess(ctx, containerID, runtime.ProcessConfig{
		Command: hc.Test,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	})
	if err != nil {
		return false, err
	}
	if err := proc.Start(ctx); err != nil {
		return false, err
	}
	exitCode, err := proc.Wait(ctx)
	if err != nil {
		return false, err
	}
	return exitCode == 0, nil
}

// CheckHealth implements spec.md §4.5.3: run each service's
// healthcheck once and report pass/fail.
func (o *Orchestrator) CheckHealth(ctx context.Context, p *project.Project, selected []string) (map[string]bool, error) {
	services := selectedOrAll(p, selected)
	out := make(map[string]bool, len(services))

	for name, svc := range services {
		id := containerName(p.Name, name)
		if svc.ContainerName != "" {
			id = svc.ContainerName
		}
		if svc.HealthCheck == nil {
			info, err := o.runtime.GetContainer(ctx, id)
			out[name] = err == nil && info.Status == runtime.StatusRunning
			continue
		}
		ok, err := o.runHealthCheck(ctx, id, svc.HealthCheck)
		out[name] = err == nil && ok
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func selectedOrAll(p *project.Project, selected []string) map[string]project.Service {
	if len(selected) == 0 {
		return p.Services
	}
	out := make(map[string]project.Service, len(selected))
	for _, name := range selected {
		if svc, ok := p.Services[name]; ok {
			out[name] = svc
		}
	}
	return out
}
