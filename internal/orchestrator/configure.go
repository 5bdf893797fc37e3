package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/containerstack/compose/internal/core/fingerprint"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

const (
	defaultCPUs        = 4
	defaultMemoryBytes = 2 * 1024 * 1024 * 1024 // 2 GiB
)

// resolveExec implements the entrypoint/command precedence of
// spec.md §4.5.2 step 4: image entrypoint/cmd is the base; a non-empty
// service entrypoint overrides it; entrypoint: [''] clears it; a
// non-empty service command overrides the image cmd.
func resolveExec(svc project.Service, imageCfg runtime.ImageConfig) (entrypoint, command []string) {
	entrypoint = imageCfg.Entrypoint
	if len(svc.Entrypoint) == 1 && svc.Entrypoint[0] == "" {
		entrypoint = nil
	} else if len(svc.Entrypoint) > 0 {
		entrypoint = svc.Entrypoint
	}

	command = imageCfg.Cmd
	if len(svc.Command) > 0 {
		command = svc.Command
	}
	return entrypoint, command
}

func combinedExec(entrypoint, command []string) (executable string, args []string) {
	full := append(append([]string{}, entrypoint...), command...)
	if len(full) == 0 {
		return "", nil
	}
	return full[0], full[1:]
}

func resolveResources(svc project.Service) (cpus float64, memory int64) {
	cpus = svc.CPUs
	if cpus == 0 {
		cpus = defaultCPUs
	}
	memory = svc.Memory
	if memory == 0 && !svc.MemoryIsMax {
		memory = defaultMemoryBytes
	}
	return cpus, memory
}

// buildContainerConfiguration assembles the runtime.ContainerConfiguration
// for svc and, from the same resolved inputs, the fingerprint used to
// decide reuse-vs-recreate (spec.md §4.5.2 step 4, §4.5.4).
func (o *Orchestrator) buildContainerConfiguration(
	ctx context.Context,
	p *project.Project,
	svc project.Service,
	imageCfg runtime.ImageConfig,
	networks []string,
	mounts []runtime.Mount,
) (runtime.ContainerConfiguration, fingerprint.Input, error) {
	entrypoint, command := resolveExec(svc, imageCfg)
	executable, args := combinedExec(entrypoint, command)
	cpus, memory := resolveResources(svc)
	image := effectiveImageName(p.Name, svc)

	labels := make(map[string]string, len(svc.Labels)+4)
	for k, v := range svc.Labels {
		labels[k] = v
	}
	name := svc.ContainerName
	if name == "" {
		name = containerName(p.Name, svc.Name)
	}
	labels[LabelProject] = p.Name
	labels[LabelService] = svc.Name
	labels[LabelContainer] = name

	var ports []runtime.PortBinding
	for _, pm := range svc.Ports {
		hostIP := pm.HostIP
		if hostIP == "" {
			hostIP = "0.0.0.0"
		}
		ports = append(ports, runtime.PortBinding{
			ContainerPort: pm.ContainerPort,
			HostPort:      pm.HostPort,
			Protocol:      pm.Protocol,
			HostIP:        hostIP,
		})
	}

	var healthCheck *runtime.HealthCheck
	var fpHealth *project.HealthCheck
	if svc.HealthCheck != nil {
		fpHealth = svc.HealthCheck
		healthCheck = &runtime.HealthCheck{
			Test:        svc.HealthCheck.Test,
			Interval:    time.Duration(secondsOrDefault(svc.HealthCheck.Interval, 30)) * time.Second,
			Timeout:     time.Duration(secondsOrDefault(svc.HealthCheck.Timeout, 30)) * time.Second,
			Retries:     svc.HealthCheck.Retries,
			StartPeriod: time.Duration(secondsOrDefault(svc.HealthCheck.StartPeriod, 0)) * time.Second,
		}
	}

	cfg := runtime.ContainerConfiguration{
		Name:        name,
		Image:       image,
		Command:     command,
		Entrypoint:  entrypoint,
		Env:         svc.Environment,
		Labels:      labels,
		Ports:       ports,
		Mounts:      mounts,
		Networks:    networks,
		WorkingDir:  svc.WorkingDir,
		Hostname:    svc.Hostname,
		DomainName:  svc.DomainName,
		TTY:         svc.TTY,
		Resources:   runtime.ResourceLimits{CPUs: cpus, Memory: memory},
		HealthCheck: healthCheck,
	}
	if svc.Restart != "" {
		cfg.RestartPolicy = runtime.RestartPolicy{Name: svc.Restart}
	}

	fpMounts := make([]fingerprint.ResolvedMount, 0, len(mounts))
	for _, m := range mounts {
		opts := ""
		if m.ReadOnly {
			opts = "ro"
		}
		fpMounts = append(fpMounts, fingerprint.ResolvedMount{Source: m.Source, Target: m.Target, Options: opts})
	}

	fpPorts := append([]project.PortMapping(nil), svc.Ports...)
	sort.Slice(fpPorts, func(i, j int) bool { return fpPorts[i].ContainerPort < fpPorts[j].ContainerPort })

	in := fingerprint.Input{
		Image:       image,
		Executable:  executable,
		Arguments:   args,
		WorkingDir:  svc.WorkingDir,
		Environment: svc.Environment,
		CPUs:        cpus,
		Memory:      memory,
		Ports:       fpPorts,
		Mounts:      fpMounts,
		Labels:      labels,
		HealthCheck: fpHealth,
	}

	return cfg, in, nil
}

func secondsOrDefault(seconds, def int) int {
	if seconds == 0 {
		return def
	}
	return seconds
}
