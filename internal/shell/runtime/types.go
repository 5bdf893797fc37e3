// Package runtime defines the adapter interface the orchestrator drives
// a container engine through (spec.md §6.2). The core never imports a
// concrete engine directly; internal/shell/runtime/docker implements
// Client against the Docker SDK and internal/shell/runtime/fake
// implements it in-memory for tests.
package runtime

import (
	"context"
	"io"
	"time"
)

// ContainerConfiguration is everything needed to create a container.
type ContainerConfiguration struct {
	Name          string
	Image         string
	Command       []string
	Entrypoint    []string
	Env           map[string]string
	Labels        map[string]string
	Ports         []PortBinding
	Mounts        []Mount
	Networks      []string
	WorkingDir    string
	User          string
	Hostname      string
	DomainName    string
	TTY           bool
	RestartPolicy RestartPolicy
	Resources     ResourceLimits
	HealthCheck   *HealthCheck
}

// PortBinding is one published container port.
type PortBinding struct {
	ContainerPort int
	HostPort      int
	Protocol      string // tcp | udp
	HostIP        string // "" means 0.0.0.0
}

// Mount is one volume or bind mount.
type Mount struct {
	Type     string // bind | volume | tmpfs
	Source   string
	Target   string
	ReadOnly bool
}

// RestartPolicy mirrors the Docker restart-policy shape.
type RestartPolicy struct {
	Name              string // "no" | "always" | "on-failure" | "unless-stopped"
	MaximumRetryCount int
}

// ResourceLimits carries CPU/memory constraints; zero values mean "use
// the runtime default".
type ResourceLimits struct {
	CPUs   float64
	Memory int64 // bytes
}

// HealthCheck is the engine-native healthcheck shape.
type HealthCheck struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// ContainerStatus enumerates the lifecycle states the orchestrator
// cares about.
type ContainerStatus string

const (
	StatusCreated    ContainerStatus = "created"
	StatusRunning    ContainerStatus = "running"
	StatusPaused     ContainerStatus = "paused"
	StatusRestarting ContainerStatus = "restarting"
	StatusExited     ContainerStatus = "exited"
	StatusDead       ContainerStatus = "dead"
	StatusUnknown    ContainerStatus = ""
)

// ContainerInfo is the shape container.list/get return (spec.md §6.2).
type ContainerInfo struct {
	ID         string
	Name       string
	Image      string
	Status     ContainerStatus
	Health     string // "", "starting", "healthy", "unhealthy"
	Labels     map[string]string
	Ports      []PortBinding
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
}

// ListOptions filters container.list.
type ListOptions struct {
	All     bool
	Filters map[string]string // label/name filters, engine-specific key names
}

// RemoveOptions controls container.delete.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// LogOptions controls container.logs.
type LogOptions struct {
	Follow     bool
	Tail       string
	Timestamps bool
	Since      time.Time
}

// ProcessConfig describes a process to spawn inside a running container
// (container.createProcess / the exec operation, spec.md §4.5.3).
type ProcessConfig struct {
	Command    []string
	Env        map[string]string
	WorkingDir string
	User       string
	TTY        bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// Process is the handle returned by CreateProcess.
type Process interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context) (exitCode int, err error)
	Kill(ctx context.Context, signal string) error
}

// PullOptions controls image.fetch.
type PullOptions struct {
	Platform string
}

// ImageConfig is the subset of an image's own metadata the orchestrator
// needs for entrypoint/cmd precedence (spec.md §4.5.2).
type ImageConfig struct {
	Entrypoint []string
	Cmd        []string
	WorkingDir string
}

// NetworkSpec describes a network to create.
type NetworkSpec struct {
	Name   string
	Driver string // only "bridge" is supported, spec.md §4.5.5
	Labels map[string]string
}

// NetworkInfo is the shape network.get returns.
type NetworkInfo struct {
	ID     string
	Name   string
	Driver string
	Labels map[string]string
}

// VolumeSpec describes a volume to create.
type VolumeSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// VolumeInfo is the shape volume.inspect/list return. Source is the
// resolved host path backing the volume (spec.md §6.2).
type VolumeInfo struct {
	Name   string
	Driver string
	Labels map[string]string
	Source string
}
