package runtime

import (
	"context"
	"io"
)

// Client is the orchestrator's sole dependency on a container engine
// (spec.md §6.2). Every blocking operation takes a context so the
// orchestrator can enforce the timeouts in spec.md §4.5.1/§4.5.2.
type Client interface {
	ContainerClient
	ImageClient
	NetworkClient
	VolumeClient

	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error
	// Close releases any held connection resources.
	Close() error
}

// ContainerClient is the container half of Client.
type ContainerClient interface {
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	GetContainer(ctx context.Context, id string) (ContainerInfo, error)
	CreateContainer(ctx context.Context, config ContainerConfiguration) (id string, err error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string, timeout int) error
	KillContainer(ctx context.Context, id string, signal string) error
	RemoveContainer(ctx context.Context, id string, opts RemoveOptions) error
	ContainerLogs(ctx context.Context, id string, opts LogOptions) (io.ReadCloser, error)
	CreateProcess(ctx context.Context, containerID string, cfg ProcessConfig) (Process, error)
}

// ImageClient is the image half of Client.
type ImageClient interface {
	GetImage(ctx context.Context, ref string) (bool, error)
	FetchImage(ctx context.Context, ref string, opts PullOptions) error
	ImageConfig(ctx context.Context, ref string) (ImageConfig, error)
}

// NetworkClient is the network half of Client.
type NetworkClient interface {
	CreateNetwork(ctx context.Context, spec NetworkSpec) (id string, err error)
	GetNetwork(ctx context.Context, nameOrID string) (NetworkInfo, error)
	RemoveNetwork(ctx context.Context, id string) error
	ConnectNetwork(ctx context.Context, networkID, containerID string) error
}

// VolumeClient is the volume half of Client.
type VolumeClient interface {
	CreateVolume(ctx context.Context, spec VolumeSpec) (VolumeInfo, error)
	ListVolumes(ctx context.Context, filters map[string]string) ([]VolumeInfo, error)
	InspectVolume(ctx context.Context, name string) (VolumeInfo, error)
	RemoveVolume(ctx context.Context, name string, force bool) error
}
