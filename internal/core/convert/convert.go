// Package convert implements the Converter stage of the pipeline
// (spec.md §4.3): it resolves `extends`, applies profile and selection
// filtering, and normalizes every service field into the canonical
// project.Project shape the resolver and orchestrator operate on.
package convert

import (
	"sort"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/compose"
	"github.com/containerstack/compose/internal/core/project"
)

// Options controls the filtering stages of Convert.
type Options struct {
	// Profiles is the active profile set (spec.md §4.3 stage 2).
	Profiles []string
	// Selected is the user-supplied explicit service name list (spec.md
	// §4.3 stage 3). Empty means "all services".
	Selected []string
	// ProcessEnv is consulted when expanding nested ${VAR}/$VAR
	// references inside env_file values that aren't satisfied by an
	// earlier key in the same or a prior env_file.
	ProcessEnv map[string]string
}

// Convert transforms a merged ComposeFile into a canonical Project named
// projectName, running the four stages of spec.md §4.3 in order.
func Convert(cf *compose.ComposeFile, projectName string, opts Options) (*project.Project, []string, error) {
	const op = "convert.Convert"

	services := make(map[string]compose.ServiceSpec, len(cf.Services))
	for name, svc := range cf.Services {
		services[name] = svc
	}

	services, err := resolveExtends(services)
	if err != nil {
		return nil, nil, err
	}

	services = filterByProfiles(services, opts.Profiles)

	services, warnings := filterBySelection(services, opts.Selected)

	baseDir := cf.SourceDir()

	out := &project.Project{
		Name:     projectName,
		Services: make(map[string]project.Service, len(services)),
		Networks: make(map[string]project.Network, len(cf.Networks)),
		Volumes:  make(map[string]project.Volume, len(cf.Volumes)),
	}

	for name, net := range cf.Networks {
		if net.Driver != "" && net.Driver != "bridge" {
			return nil, warnings, apperr.Newf(op, apperr.InvalidArgument, nil, "network %q: only the bridge driver is supported", name)
		}
		out.Networks[name] = project.Network{
			Name:         name,
			Driver:       "bridge",
			External:     net.External.External,
			ExternalName: net.External.Name,
		}
	}
	if _, ok := out.Networks["default"]; !ok {
		out.Networks["default"] = project.Network{Name: "default", Driver: "bridge", External: false}
	}

	for name, vol := range cf.Volumes {
		out.Volumes[name] = project.Volume{
			Name:     name,
			Driver:   vol.Driver,
			External: vol.External.External,
		}
	}

	for name, svc := range services {
		converted, err := convertService(name, svc, projectName, baseDir, opts.ProcessEnv)
		if err != nil {
			return nil, warnings, err
		}
		out.Services[name] = converted
	}

	return out, warnings, nil
}

func convertService(name string, svc compose.ServiceSpec, projectName, baseDir string, processEnv map[string]string) (project.Service, error) {
	op := "convert.Service[" + name + "]"

	environment, err := normalizeEnvFile(op, svc.EnvFile, baseDir, svc.Environment, processEnv)
	if err != nil {
		return project.Service{}, err
	}

	ports, err := normalizePorts(op, svc.Ports)
	if err != nil {
		return project.Service{}, err
	}

	volumes, err := normalizeVolumes(op, svc.Volumes, baseDir)
	if err != nil {
		return project.Service{}, err
	}

	healthCheck, err := normalizeHealthCheck(op, svc.HealthCheck)
	if err != nil {
		return project.Service{}, err
	}

	dependsOn, healthy, started, completed := normalizeDependsOn(svc.DependsOn)

	cpus, mem := svc.CPUs, svc.Mem
	if svc.Deploy != nil && svc.Deploy.Resources.Limits != nil {
		// v3's deploy.resources.limits takes precedence over the v2
		// cpus/mem_limit scalars when both are given, falling back to
		// them field-by-field for whichever one deploy leaves unset.
		if svc.Deploy.Resources.Limits.CPUs != "" {
			cpus = svc.Deploy.Resources.Limits.CPUs
		}
		if svc.Deploy.Resources.Limits.Memory != "" {
			mem = svc.Deploy.Resources.Limits.Memory
		}
	}
	cpuCount, memBytes, memIsMax, err := normalizeResources(op, cpus, mem)
	if err != nil {
		return project.Service{}, err
	}

	networks := append([]string(nil), []string(svc.Networks)...)
	if len(networks) == 0 {
		networks = []string{"default"}
	}

	containerName := svc.ContainerName
	if containerName == "" {
		containerName = projectName + "_" + name
	}

	var build *project.BuildConfig
	if svc.Build != nil {
		build = &project.BuildConfig{
			Context:    svc.Build.Context,
			Dockerfile: svc.Build.Dockerfile,
			Args:       map[string]string(svc.Build.Args),
			Target:     svc.Build.Target,
		}
		if build.Context == "" {
			build.Context = "."
		}
	}

	result := project.Service{
		Name:                           name,
		Image:                          svc.Image,
		Build:                          build,
		Command:                        []string(svc.Command),
		Entrypoint:                     []string(svc.Entrypoint),
		WorkingDir:                     svc.WorkingDir,
		Hostname:                       svc.Hostname,
		DomainName:                     svc.DomainName,
		Environment:                    environment,
		Ports:                          ports,
		Volumes:                        volumes,
		Networks:                       networks,
		DependsOn:                      dependsOn,
		DependsOnHealthy:               healthy,
		DependsOnStarted:               started,
		DependsOnCompletedSuccessfully: completed,
		HealthCheck:                    healthCheck,
		Restart:                        svc.Restart,
		ContainerName:                  containerName,
		Profiles:                       []string(svc.Profiles),
		Labels:                         map[string]string(svc.Labels),
		CPUs:                           cpuCount,
		Memory:                         memBytes,
		MemoryIsMax:                    memIsMax,
		TTY:                            svc.TTY,
		StdinOpen:                      svc.StdinOpen,
	}

	if svc.StopGracePeriod != "" {
		secs, err := parseDurationSeconds(svc.StopGracePeriod)
		if err != nil {
			return project.Service{}, apperr.Newf(op, apperr.InvalidArgument, err, "stop_grace_period: %v", err)
		}
		result.StopGracePeriod = secs
	}

	if svc.Image == "" && svc.Build == nil {
		return project.Service{}, apperr.Newf(op, apperr.InvalidArgument, nil, "service %q must specify image or build", name)
	}

	return result, nil
}

// SortedWarnings returns warnings with duplicates removed and in sorted
// order, for callers that want deterministic CLI output.
func SortedWarnings(warnings []string) []string {
	seen := make(map[string]bool, len(warnings))
	var out []string
	for _, w := range warnings {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}
