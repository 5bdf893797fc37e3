// Package fake provides an in-memory runtime.Client double for tests
// that exercise the orchestrator without a real container engine.
package fake

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/shell/runtime"
	"github.com/google/uuid"
)

// Client is a thread-safe, in-memory stand-in for a container engine.
// It tracks just enough state for the orchestrator's reconciliation
// logic to observe: containers, networks, and volumes keyed by ID/name.
type Client struct {
	mu sync.Mutex

	containers map[string]*containerState
	networks   map[string]runtime.NetworkInfo
	volumes    map[string]runtime.VolumeInfo
	images     map[string]bool

	// FailNextCreateContainer, when non-nil, is returned once by the
	// next CreateContainer call and then cleared.
	FailNextCreateContainer error
}

var _ runtime.Client = (*Client)(nil)

type containerState struct {
	info runtime.ContainerInfo
	cfg  runtime.ContainerConfiguration
}

// New returns an empty fake client.
func New() *Client {
	return &Client{
		containers: make(map[string]*containerState),
		networks:   make(map[string]runtime.NetworkInfo),
		volumes:    make(map[string]runtime.VolumeInfo),
		images:     make(map[string]bool),
	}
}

func (c *Client) Ping(ctx context.Context) error { return nil }
func (c *Client) Close() error                   { return nil }

// SeedImage marks ref as already present, so GetImage reports true
// without a prior FetchImage.
func (c *Client) SeedImage(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[ref] = true
}

// =============================================================================
// Containers
// =============================================================================

func (c *Client) ListContainers(ctx context.Context, opts runtime.ListOptions) ([]runtime.ContainerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []runtime.ContainerInfo
	for _, st := range c.containers {
		if !opts.All && st.info.Status != runtime.StatusRunning {
			continue
		}
		if !matchesFilters(st.info.Labels, opts.Filters) {
			continue
		}
		out = append(out, st.info)
	}
	return out, nil
}

func matchesFilters(labels map[string]string, filters map[string]string) bool {
	for k, v := range filters {
		key := strings.TrimPrefix(k, "label=")
		if labels[key] != v {
			return false
		}
	}
	return true
}

// GetContainer accepts either a container ID or its name, matching
// Docker's own inspect behavior.
func (c *Client) GetContainer(ctx context.Context, id string) (runtime.ContainerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.containers[id]; ok {
		return st.info, nil
	}
	for _, st := range c.containers {
		if st.info.Name == id {
			return st.info, nil
		}
	}
	return runtime.ContainerInfo{}, apperr.New("fake.GetContainer", apperr.NotFound, "no such container: "+id, nil)
}

func (c *Client) CreateContainer(ctx context.Context, cfg runtime.ContainerConfiguration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailNextCreateContainer != nil {
		err := c.FailNextCreateContainer
		c.FailNextCreateContainer = nil
		return "", err
	}

	for _, st := range c.containers {
		if st.info.Name == cfg.Name {
			return "", apperr.New("fake.CreateContainer", apperr.AlreadyExists, "container already exists: "+cfg.Name, nil)
		}
	}

	id := uuid.NewString()
	c.containers[id] = &containerState{
		info: runtime.ContainerInfo{
			ID:     id,
			Name:   cfg.Name,
			Image:  cfg.Image,
			Status: runtime.StatusCreated,
			Labels: cfg.Labels,
		},
		cfg: cfg,
	}
	return id, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.containers[id]
	if !ok {
		return apperr.New("fake.StartContainer", apperr.NotFound, "no such container: "+id, nil)
	}
	st.info.Status = runtime.StatusRunning
	return nil
}

func (c *Client) StopContainer(ctx context.Context, id string, timeout int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.containers[id]
	if !ok {
		return apperr.New("fake.StopContainer", apperr.NotFound, "no such container: "+id, nil)
	}
	st.info.Status = runtime.StatusExited
	return nil
}

func (c *Client) KillContainer(ctx context.Context, id string, signal string) error {
	return c.StopContainer(ctx, id, 0)
}

func (c *Client) RemoveContainer(ctx context.Context, id string, opts runtime.RemoveOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.containers[id]
	if !ok {
		return apperr.New("fake.RemoveContainer", apperr.NotFound, "no such container: "+id, nil)
	}
	if st.info.Status == runtime.StatusRunning && !opts.Force {
		return apperr.New("fake.RemoveContainer", apperr.InvalidArgument, "container is running: "+id, nil)
	}
	delete(c.containers, id)
	return nil
}

func (c *Client) ContainerLogs(ctx context.Context, id string, opts runtime.LogOptions) (io.ReadCloser, error) {
	c.mu.Lock()
	_, ok := c.containers[id]
	c.mu.Unlock()
	if !ok {
		return nil, apperr.New("fake.ContainerLogs", apperr.NotFound, "no such container: "+id, nil)
	}
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (c *Client) CreateProcess(ctx context.Context, containerID string, cfg runtime.ProcessConfig) (runtime.Process, error) {
	c.mu.Lock()
	_, ok := c.containers[containerID]
	c.mu.Unlock()
	if !ok {
		return nil, apperr.New("fake.CreateProcess", apperr.NotFound, "no such container: "+containerID, nil)
	}
	return &process{cfg: cfg}, nil
}

type process struct {
	cfg      runtime.ProcessConfig
	exitCode int
}

func (p *process) Start(ctx context.Context) error {
	if p.cfg.Stdout != nil {
		io.WriteString(p.cfg.Stdout, "")
	}
	return nil
}

func (p *process) Wait(ctx context.Context) (int, error) { return p.exitCode, nil }
func (p *process) Kill(ctx context.Context, signal string) error { return nil }

// =============================================================================
// Images
// =============================================================================

func (c *Client) GetImage(ctx context.Context, ref string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images[ref], nil
}

func (c *Client) FetchImage(ctx context.Context, ref string, opts runtime.PullOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[ref] = true
	return nil
}

func (c *Client) ImageConfig(ctx context.Context, ref string) (runtime.ImageConfig, error) {
	return runtime.ImageConfig{}, nil
}

// =============================================================================
// Networks
// =============================================================================

func (c *Client) CreateNetwork(ctx context.Context, spec runtime.NetworkSpec) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.networks[spec.Name]; ok {
		return "", apperr.New("fake.CreateNetwork", apperr.AlreadyExists, "network already exists: "+spec.Name, nil)
	}
	id := uuid.NewString()
	c.networks[spec.Name] = runtime.NetworkInfo{ID: id, Name: spec.Name, Driver: spec.Driver, Labels: spec.Labels}
	return id, nil
}

func (c *Client) GetNetwork(ctx context.Context, nameOrID string) (runtime.NetworkInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.networks[nameOrID]; ok {
		return n, nil
	}
	for _, n := range c.networks {
		if n.ID == nameOrID {
			return n, nil
		}
	}
	return runtime.NetworkInfo{}, apperr.New("fake.GetNetwork", apperr.NotFound, "no such network: "+nameOrID, nil)
}

func (c *Client) RemoveNetwork(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, n := range c.networks {
		if n.ID == id || name == id {
			delete(c.networks, name)
			return nil
		}
	}
	return apperr.New("fake.RemoveNetwork", apperr.NotFound, "no such network: "+id, nil)
}

func (c *Client) ConnectNetwork(ctx context.Context, networkID, containerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.containers[containerID]; !ok {
		return apperr.New("fake.ConnectNetwork", apperr.NotFound, "no such container: "+containerID, nil)
	}
	return nil
}

// =============================================================================
// Volumes
// =============================================================================

func (c *Client) CreateVolume(ctx context.Context, spec runtime.VolumeSpec) (runtime.VolumeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.volumes[spec.Name]; ok {
		return v, nil
	}
	v := runtime.VolumeInfo{Name: spec.Name, Driver: spec.Driver, Labels: spec.Labels, Source: "/fake/volumes/" + spec.Name}
	c.volumes[spec.Name] = v
	return v, nil
}

func (c *Client) ListVolumes(ctx context.Context, labelFilters map[string]string) ([]runtime.VolumeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []runtime.VolumeInfo
	for _, v := range c.volumes {
		if !matchesFilters(v.Labels, labelFilters) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Client) InspectVolume(ctx context.Context, name string) (runtime.VolumeInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.volumes[name]
	if !ok {
		return runtime.VolumeInfo{}, apperr.New("fake.InspectVolume", apperr.NotFound, "no such volume: "+name, nil)
	}
	return v, nil
}

func (c *Client) RemoveVolume(ctx context.Context, name string, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.volumes[name]; !ok {
		return apperr.New("fake.RemoveVolume", apperr.NotFound, "no such volume: "+name, nil)
	}
	delete(c.volumes, name)
	return nil
}
