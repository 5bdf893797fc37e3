package orchestrator

import (
	"context"
	"sort"
	"strconv"

	"github.com/containerstack/compose/internal/core/project"
)

// ContainerSummary is one row of `ps` output (spec.md §4.5.3).
type ContainerSummary struct {
	Service string
	ShortID string
	Image   string
	Status  string
	Ports   []string
}

// Ps implements spec.md §4.5.3's ps operation.
func (o *Orchestrator) Ps(ctx context.Context, p *project.Project) ([]ContainerSummary, error) {
	containers, err := o.listProjectContainers(ctx, p.Name)
	if err != nil {
		return nil, err
	}

	out := make([]ContainerSummary, 0, len(containers))
	for _, c := range containers {
		svcName := c.Labels[LabelService]
		if svcName == "" {
			svcName = serviceNameFromContainerName(p.Name, c.Name)
		}
		shortID := c.ID
		if len(shortID) > 12 {
			shortID = shortID[:12]
		}
		var ports []string
		for _, pb := range c.Ports {
			ports = append(ports, formatPort(pb.HostIP, pb.HostPort, pb.ContainerPort, pb.Protocol))
		}
		out = append(out, ContainerSummary{
			Service: svcName,
			ShortID: shortID,
			Image:   c.Image,
			Status:  string(c.Status),
			Ports:   ports,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func formatPort(hostIP string, hostPort, containerPort int, proto string) string {
	if hostPort == 0 {
		return ""
	}
	return hostIP + ":" + strconv.Itoa(hostPort) + "->" + strconv.Itoa(containerPort) + "/" + proto
}
