package orchestrator

import (
	"context"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// ensureNetworks implements spec.md §4.5.5: create every project-scoped
// network that doesn't yet exist, and verify every external network is
// actually present. Returns the declared-name -> runtime-ID mapping.
func (o *Orchestrator) ensureNetworks(ctx context.Context, p *project.Project) (map[string]string, error) {
	const op = "orchestrator.ensureNetworks"

	ids := make(map[string]string, len(p.Networks))
	for name, n := range p.Networks {
		if n.Driver != "" && n.Driver != "bridge" {
			return nil, apperr.Newf(op, apperr.InvalidArgument, nil, "network %q: only the bridge driver is supported", name)
		}

		runtimeName := networkRuntimeName(p.Name, n)

		if n.External {
			info, err := o.runtime.GetNetwork(ctx, runtimeName)
			if err != nil {
				return nil, apperr.Newf(op, apperr.NotFound, err, "external network %q not found", runtimeName)
			}
			ids[name] = info.ID
			continue
		}

		info, err := o.runtime.GetNetwork(ctx, runtimeName)
		if err == nil {
			ids[name] = info.ID
			continue
		}

		id, err := o.runtime.CreateNetwork(ctx, runtime.NetworkSpec{
			Name:   runtimeName,
			Driver: "bridge",
			Labels: map[string]string{LabelProject: p.Name},
		})
		if err != nil {
			return nil, apperr.Newf(op, apperr.InternalError, err, "failed to create network %q", runtimeName)
		}
		ids[name] = id
	}
	return ids, nil
}

// mapServiceNetworks resolves a service's declared network names to
// runtime IDs, preserving declared order. A service with no declared
// networks attaches to the runtime's default network.
func mapServiceNetworks(svc project.Service, networkIDs map[string]string, defaultNetworkID string) []string {
	if len(svc.Networks) == 0 {
		if defaultNetworkID != "" {
			return []string{defaultNetworkID}
		}
		return nil
	}
	out := make([]string, 0, len(svc.Networks))
	for _, name := range svc.Networks {
		if id, ok := networkIDs[name]; ok {
			out = append(out, id)
		}
	}
	return out
}
