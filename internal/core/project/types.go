// Package project holds the canonical, post-conversion representation of
// a compose deployment: the Project, its Services, Networks and Volumes.
// Nothing in this package knows about YAML; it is produced by
// internal/core/convert and consumed by internal/core/resolver and
// internal/orchestrator.
package project

import "sort"

// Project is the canonical output of the compose pipeline.
type Project struct {
	Name     string
	Services map[string]Service
	Networks map[string]Network
	Volumes  map[string]Volume
}

// ServiceNames returns the project's service names sorted for
// deterministic iteration.
func (p *Project) ServiceNames() []string {
	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Network is a canonical network definition.
type Network struct {
	Name         string
	Driver       string
	External     bool
	ExternalName string
}

// Volume is a canonical top-level named volume definition.
type Volume struct {
	Name     string
	Driver   string
	External bool
}

// Service is the canonical, fully-normalized service definition.
type Service struct {
	Name        string
	Image       string
	Build       *BuildConfig
	Command     []string
	Entrypoint  []string
	WorkingDir  string
	Hostname    string
	DomainName  string
	Environment map[string]string
	Ports       []PortMapping
	Volumes     []VolumeMount
	Networks    []string

	DependsOn                     []string
	DependsOnHealthy              []string
	DependsOnStarted               []string
	DependsOnCompletedSuccessfully []string

	HealthCheck *HealthCheck
	Restart     string
	ContainerName string
	Profiles    []string
	Labels      map[string]string

	CPUs            float64
	Memory          int64 // bytes, 0 = default
	MemoryIsMax     bool  // "max" was requested, meaning "leave default"
	TTY             bool
	StdinOpen       bool
	StopGracePeriod int // seconds, 0 = use default
}

// AllDependencies returns the union of the four dependency-kind lists,
// deduplicated. This is the edge set the resolver builds its graph from.
func (s Service) AllDependencies() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(s.DependsOn)
	add(s.DependsOnHealthy)
	add(s.DependsOnStarted)
	add(s.DependsOnCompletedSuccessfully)
	return out
}

// BuildConfig describes how to build an image for a service.
type BuildConfig struct {
	Context    string
	Dockerfile string
	Args       map[string]string
	Target     string
}

// PortMapping is one concrete host<->container port binding.
type PortMapping struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string // tcp | udp
}

// VolumeMountType enumerates the supported mount kinds.
type VolumeMountType string

const (
	MountTypeBind   VolumeMountType = "bind"
	MountTypeVolume VolumeMountType = "volume"
	MountTypeTmpfs  VolumeMountType = "tmpfs"
)

// VolumeMount is a single normalized mount on a service.
type VolumeMount struct {
	Type     VolumeMountType
	Source   string // path, volume name, or "" for an anonymous volume
	Target   string
	ReadOnly bool
}

// HealthCheck is a normalized healthcheck definition. A nil *HealthCheck
// on a Service means "no healthcheck configured."
type HealthCheck struct {
	Test        []string
	Interval    int // seconds, 0 = default
	Timeout     int // seconds, 0 = default
	Retries     int // 0 = default
	StartPeriod int // seconds, 0 = none
}
