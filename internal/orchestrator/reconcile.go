package orchestrator

import (
	"context"
	"time"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/fingerprint"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

const (
	gracefulStopTimeoutSeconds = 15
	killWait                   = 700 * time.Millisecond
)

// reconcileOptions carries the subset of up()'s flags that affect
// per-service reconciliation.
type reconcileOptions struct {
	ForceRecreate      bool
	NoRecreate         bool
	PullPolicy         string
	DisableHealthcheck bool
}

// reconcileService implements spec.md §4.5.2: decide whether an
// existing container can be reused, otherwise stop/delete it, ensure
// the image is available, build the configuration, and create+start
// a fresh container.
func (o *Orchestrator) reconcileService(
	ctx context.Context,
	p *project.Project,
	svc project.Service,
	networkIDs map[string]string,
	defaultNetworkID string,
	opts reconcileOptions,
) (containerID string, err error) {
	const op = "orchestrator.reconcileService"

	name := svc.ContainerName
	if name == "" {
		name = containerName(p.Name, svc.Name)
	}

	mounts := make([]runtime.Mount, 0, len(svc.Volumes))
	for _, v := range svc.Volumes {
		m, err := o.resolveMount(ctx, p.Name, svc.Name, v, p.Volumes)
		if err != nil {
			return "", err
		}
		mounts = append(mounts, m)
	}

	var imageCfg runtime.ImageConfig
	if svc.Build == nil && svc.Image != "" {
		if cfg, err := o.runtime.ImageConfig(ctx, svc.Image); err == nil {
			imageCfg = cfg
		}
	}

	networks := mapServiceNetworks(svc, networkIDs, defaultNetworkID)

	containerCfg, fpInput, err := o.buildContainerConfiguration(ctx, p, svc, imageCfg, networks, mounts)
	if err != nil {
		return "", err
	}
	expectedHash, err := fingerprint.Hash(fpInput)
	if err != nil {
		return "", apperr.Newf(op, apperr.InternalError, err, "failed to compute configuration fingerprint for %q", svc.Name)
	}
	containerCfg.Labels[LabelConfigHash] = expectedHash

	existing, found := o.lookupExisting(ctx, name)

	if found {
		switch {
		case opts.NoRecreate:
			o.recordContainer(p.Name, svc.Name, existing.ID, existing.Labels[LabelConfigHash])
			return existing.ID, nil
		case !opts.ForceRecreate && existing.Labels[LabelConfigHash] == expectedHash:
			o.recordContainer(p.Name, svc.Name, existing.ID, expectedHash)
			return existing.ID, nil
		default:
			if err := o.stopAndRemove(ctx, existing.ID, stopTimeoutSeconds(svc)); err != nil {
				return "", err
			}
		}
	}

	if err := o.ensureImageAvailable(ctx, p, svc, opts.PullPolicy); err != nil {
		return "", err
	}

	id, err := o.runtime.CreateContainer(ctx, containerCfg)
	if err != nil {
		return "", apperr.Newf(op, apperr.InternalError, err, "failed to create container for %q", svc.Name)
	}
	if err := o.runtime.StartContainer(ctx, id); err != nil {
		return "", apperr.Newf(op, apperr.InternalError, err, "failed to start container for %q", svc.Name)
	}

	o.recordContainer(p.Name, svc.Name, id, expectedHash)
	return id, nil
}

func (o *Orchestrator) lookupExisting(ctx context.Context, name string) (runtime.ContainerInfo, bool) {
	info, err := o.runtime.GetContainer(ctx, name)
	if err != nil {
		return runtime.ContainerInfo{}, false
	}
	return info, true
}

// stopTimeoutSeconds returns svc's configured stop_grace_period, or the
// spec.md default of 15s when the service doesn't set one.
func stopTimeoutSeconds(svc project.Service) int {
	if svc.StopGracePeriod > 0 {
		return svc.StopGracePeriod
	}
	return gracefulStopTimeoutSeconds
}

// stopAndRemove implements the graceful-stop/SIGKILL sequencing of
// spec.md §4.5.2 step 2: SIGTERM and wait up to timeoutSeconds, then
// SIGKILL and a short grace period, then delete with force as a backstop.
func (o *Orchestrator) stopAndRemove(ctx context.Context, id string, timeoutSeconds int) error {
	const op = "orchestrator.stopAndRemove"

	if err := o.runtime.StopContainer(ctx, id, timeoutSeconds); err != nil {
		if err := o.runtime.KillContainer(ctx, id, "SIGKILL"); err != nil {
			return apperr.Newf(op, apperr.InternalError, err, "failed to kill container %s", id)
		}
		select {
		case <-time.After(killWait):
		case <-ctx.Done():
		}
	}

	if err := o.runtime.RemoveContainer(ctx, id, runtime.RemoveOptions{Force: true}); err != nil {
		return apperr.Newf(op, apperr.InternalError, err, "failed to remove container %s", id)
	}
	return nil
}
