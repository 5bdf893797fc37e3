package orchestrator

import (
	"context"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// DownOptions mirrors down's flags (spec.md §4.5.3).
type DownOptions struct {
	RemoveVolumes bool
	RemoveOrphans bool
}

// DownResult reports what Down actually removed.
type DownResult struct {
	RemovedContainers []string
	RemovedVolumes    []string
}

// Down implements spec.md §4.5.3's down operation.
func (o *Orchestrator) Down(ctx context.Context, p *project.Project, opts DownOptions) (DownResult, error) {
	var result DownResult

	containers, err := o.listProjectContainers(ctx, p.Name)
	if err != nil {
		return result, err
	}

	for _, c := range containers {
		_ = o.runtime.StopContainer(ctx, c.ID, stopTimeoutSeconds(p.Services[c.Labels[LabelService]]))
		if err := o.runtime.RemoveContainer(ctx, c.ID, runtime.RemoveOptions{Force: true, RemoveVolumes: opts.RemoveVolumes}); err != nil {
			o.logger.Warn("failed to remove container", "container", c.Name, "error", err)
			continue
		}
		result.RemovedContainers = append(result.RemovedContainers, c.ID)
		o.forgetContainer(p.Name, c.Labels[LabelService])
	}

	if opts.RemoveVolumes {
		for name, v := range p.Volumes {
			if v.External {
				continue
			}
			if err := o.runtime.RemoveVolume(ctx, name, true); err == nil {
				result.RemovedVolumes = append(result.RemovedVolumes, name)
			}
		}

		anon, err := o.runtime.ListVolumes(ctx, map[string]string{
			LabelVolumeProject:   p.Name,
			LabelVolumeAnonymous: "true",
		})
		if err == nil {
			for _, v := range anon {
				if err := o.runtime.RemoveVolume(ctx, v.Name, true); err == nil {
					result.RemovedVolumes = append(result.RemovedVolumes, v.Name)
				}
			}
		}
	}

	for _, n := range p.Networks {
		if n.External {
			continue
		}
		runtimeName := networkRuntimeName(p.Name, n)
		if info, err := o.runtime.GetNetwork(ctx, runtimeName); err == nil {
			_ = o.runtime.RemoveNetwork(ctx, info.ID)
		}
	}

	return result, nil
}

// Start is up() with default flags (spec.md §4.5.3).
func (o *Orchestrator) Start(ctx context.Context, p *project.Project, selected []string) (map[string]string, error) {
	return o.Up(ctx, p, UpOptions{Selected: selected})
}

// Stop is a best-effort down() (spec.md §4.5.3).
func (o *Orchestrator) Stop(ctx context.Context, p *project.Project) error {
	_, err := o.Down(ctx, p, DownOptions{})
	return err
}

// Restart is down() followed by up() (spec.md §4.5.3).
func (o *Orchestrator) Restart(ctx context.Context, p *project.Project, selected []string) (map[string]string, error) {
	if _, err := o.Down(ctx, p, DownOptions{}); err != nil {
		return nil, err
	}
	return o.Up(ctx, p, UpOptions{Selected: selected})
}

// RemoveOptions mirrors remove's flags (spec.md §4.5.3).
type RemoveOptions struct {
	Services []string
	Force    bool
}

// RemoveResult reports what Remove actually removed or skipped.
type RemoveResult struct {
	Removed  []string
	Warnings []string
}

// Remove implements spec.md §4.5.3's remove operation.
func (o *Orchestrator) Remove(ctx context.Context, p *project.Project, opts RemoveOptions) (RemoveResult, error) {
	var result RemoveResult

	containers, err := o.listProjectContainers(ctx, p.Name)
	if err != nil {
		return result, err
	}

	wanted := make(map[string]bool, len(opts.Services))
	for _, s := range opts.Services {
		wanted[s] = true
	}

	for _, c := range containers {
		svcName := c.Labels[LabelService]
		if len(wanted) > 0 && !wanted[svcName] {
			continue
		}
		if c.Status == runtime.StatusRunning && !opts.Force {
			result.Warnings = append(result.Warnings, "skipped running container "+c.Name+" (use force to remove)")
			continue
		}
		if err := o.stopAndRemove(ctx, c.ID, stopTimeoutSeconds(p.Services[svcName])); err != nil {
			return result, apperr.Newf("orchestrator.Remove", apperr.InternalError, err, "failed to remove %q", c.Name)
		}
		result.Removed = append(result.Removed, c.ID)
		o.forgetContainer(p.Name, svcName)
	}

	return result, nil
}
