package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/core/resolver"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// UpOptions mirrors the flags spec.md §4.5.1 lists.
type UpOptions struct {
	Selected           []string
	Detach             bool
	ForceRecreate      bool
	NoRecreate         bool
	NoDeps             bool
	RemoveOrphans      bool
	RemoveOnExit       bool
	PullPolicy         string // always | missing | never
	Wait               bool
	WaitTimeoutSeconds int
	DisableHealthcheck bool
}

const defaultWaitTimeout = 300 * time.Second

// Up implements spec.md §4.5.1.
func (o *Orchestrator) Up(ctx context.Context, p *project.Project, opts UpOptions) (map[string]string, error) {
	const op = "orchestrator.Up"

	services := serviceFilter(p, opts.Selected, opts.NoDeps)

	networkIDs, err := o.ensureNetworks(ctx, p)
	if err != nil {
		return nil, err
	}
	defaultNetworkID := networkIDs["default"]

	if err := o.buildImages(ctx, p, services); err != nil {
		return nil, err
	}

	if opts.RemoveOrphans {
		if err := o.removeOrphans(ctx, p, services); err != nil {
			o.logger.Warn("failed to remove orphan containers", "project", p.Name, "error", err)
		}
	}

	var plan resolver.Plan
	if opts.NoDeps {
		var group []string
		for name := range services {
			group = append(group, name)
		}
		plan = resolver.Plan{ParallelGroups: [][]string{group}, StartOrder: group}
	} else {
		plan, err = resolver.Resolve(services)
		if err != nil {
			return nil, err
		}
	}

	ropts := reconcileOptions{
		ForceRecreate:      opts.ForceRecreate,
		NoRecreate:         opts.NoRecreate,
		PullPolicy:         opts.PullPolicy,
		DisableHealthcheck: opts.DisableHealthcheck,
	}

	containerIDs := make(map[string]string)
	var mu sync.Mutex

	for _, group := range plan.ParallelGroups {
		var wg sync.WaitGroup
		errs := make([]error, len(group))

		for i, name := range group {
			svc := services[name]
			wg.Add(1)
			go func(i int, name string, svc project.Service) {
				defer wg.Done()

				mu.Lock()
				deps := copyIDs(containerIDs)
				mu.Unlock()

				if err := o.waitForDependencies(ctx, p, svc, deps, opts.DisableHealthcheck); err != nil {
					errs[i] = apperr.Newf(op, apperr.Timeout, err, "service %q: dependency wait failed", name)
					return
				}

				id, err := o.reconcileService(ctx, p, svc, networkIDs, defaultNetworkID, ropts)
				if err != nil {
					errs[i] = err
					return
				}

				mu.Lock()
				containerIDs[name] = id
				mu.Unlock()
			}(i, name, svc)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return containerIDs, err
			}
		}
	}

	if opts.Wait {
		timeout := time.Duration(opts.WaitTimeoutSeconds) * time.Second
		if timeout == 0 {
			timeout = defaultWaitTimeout
		}
		if err := o.waitReady(ctx, services, containerIDs, timeout, opts.DisableHealthcheck); err != nil {
			return containerIDs, err
		}
	}

	return containerIDs, nil
}

func copyIDs(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) waitReady(ctx context.Context, services map[string]project.Service, containerIDs map[string]string, timeout time.Duration, disableHealthcheck bool) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for name, svc := range services {
		id, ok := containerIDs[name]
		if !ok {
			continue
		}
		if svc.HealthCheck != nil && !disableHealthcheck {
			if err := o.waitUntilHealthy(waitCtx, id, svc.HealthCheck); err != nil {
				return err
			}
		} else if err := o.waitUntilRunning(waitCtx, id); err != nil {
			return err
		}
	}
	return nil
}

// removeOrphans implements spec.md §4.5.1 step 4.
func (o *Orchestrator) removeOrphans(ctx context.Context, p *project.Project, services map[string]project.Service) error {
	containers, err := o.listProjectContainers(ctx, p.Name)
	if err != nil {
		return err
	}
	for _, c := range containers {
		svcName := c.Labels[LabelService]
		if svcName == "" {
			svcName = serviceNameFromContainerName(p.Name, c.Name)
		}
		if _, ok := services[svcName]; ok {
			continue
		}
		if err := o.stopAndRemove(ctx, c.ID, gracefulStopTimeoutSeconds); err != nil {
			o.logger.Warn("failed to remove orphan container", "container", c.Name, "error", err)
		}
	}
	return nil
}

func serviceNameFromContainerName(projectName, name string) string {
	return strings.TrimPrefix(name, projectName+"_")
}

// listProjectContainers enumerates runtime containers belonging to
// projectName, by label when possible, falling back to the
// "<project>_" name prefix (spec.md §4.5.1 step 4, §4.5.3).
func (o *Orchestrator) listProjectContainers(ctx context.Context, projectName string) ([]runtime.ContainerInfo, error) {
	byLabel, err := o.runtime.ListContainers(ctx, runtime.ListOptions{
		All:     true,
		Filters: map[string]string{"label": fmt.Sprintf("%s=%s", LabelProject, projectName)},
	})
	if err == nil && len(byLabel) > 0 {
		return byLabel, nil
	}

	all, err := o.runtime.ListContainers(ctx, runtime.ListOptions{All: true})
	if err != nil {
		return nil, err
	}
	prefix := projectName + "_"
	var out []runtime.ContainerInfo
	for _, c := range all {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out, nil
}
