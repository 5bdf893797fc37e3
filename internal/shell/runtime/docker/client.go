// Package docker implements runtime.Client against the Docker Engine
// API, grounded on the teacher's own Docker SDK wrapper.
package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/shell/runtime"
	dockertypes "github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	dockerimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	dockernetwork "github.com/docker/docker/api/types/network"
	dockervolume "github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Client implements runtime.Client using the Docker SDK.
type Client struct {
	cli *client.Client
}

var _ runtime.Client = (*Client)(nil)

// New creates a Docker-backed runtime.Client. An empty host uses the
// default Docker host from the environment.
func New(host string) (*Client, error) {
	const op = "docker.New"
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, apperr.New(op, apperr.InternalError, "failed to create docker client", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return apperr.New("docker.Ping", apperr.Timeout, "failed to reach docker daemon", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrNotFound(err) {
		return apperr.New(op, apperr.NotFound, err.Error(), err)
	}
	if strings.Contains(err.Error(), "Conflict") || strings.Contains(err.Error(), "already exists") {
		return apperr.New(op, apperr.AlreadyExists, err.Error(), err)
	}
	return apperr.New(op, apperr.InternalError, err.Error(), err)
}

// =============================================================================
// Containers
// =============================================================================

func (c *Client) ListContainers(ctx context.Context, opts runtime.ListOptions) ([]runtime.ContainerInfo, error) {
	const op = "docker.ListContainers"
	listOpts := dockercontainer.ListOptions{All: opts.All}
	if len(opts.Filters) > 0 {
		f := filters.NewArgs()
		for k, v := range opts.Filters {
			f.Add(k, v)
		}
		listOpts.Filters = f
	}

	containers, err := c.cli.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, translate(op, err)
	}

	out := make([]runtime.ContainerInfo, 0, len(containers))
	for _, ct := range containers {
		name := ""
		if len(ct.Names) > 0 {
			name = strings.TrimPrefix(ct.Names[0], "/")
		}
		var ports []runtime.PortBinding
		for _, p := range ct.Ports {
			ports = append(ports, runtime.PortBinding{
				ContainerPort: int(p.PrivatePort),
				HostPort:      int(p.PublicPort),
				Protocol:      p.Type,
				HostIP:        p.IP,
			})
		}
		out = append(out, runtime.ContainerInfo{
			ID:        ct.ID,
			Name:      name,
			Image:     ct.Image,
			Status:    runtime.ContainerStatus(ct.State),
			Labels:    ct.Labels,
			Ports:     ports,
			CreatedAt: time.Unix(ct.Created, 0),
		})
	}
	return out, nil
}

func (c *Client) GetContainer(ctx context.Context, id string) (runtime.ContainerInfo, error) {
	const op = "docker.GetContainer"
	resp, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return runtime.ContainerInfo{}, translate(op, err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.Created)
	var startedAt, finishedAt time.Time
	if resp.State != nil {
		if t, err := time.Parse(time.RFC3339Nano, resp.State.StartedAt); err == nil {
			startedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, resp.State.FinishedAt); err == nil {
			finishedAt = t
		}
	}

	var ports []runtime.PortBinding
	for containerPort, bindings := range resp.NetworkSettings.Ports {
		for _, b := range bindings {
			var hostPort, cport int
			fmt.Sscanf(b.HostPort, "%d", &hostPort)
			fmt.Sscanf(nat.Port(containerPort).Port(), "%d", &cport)
			ports = append(ports, runtime.PortBinding{
				ContainerPort: cport,
				HostPort:      hostPort,
				Protocol:      nat.Port(containerPort).Proto(),
				HostIP:        b.HostIP,
			})
		}
	}

	health := ""
	exitCode := 0
	if resp.State != nil {
		if resp.State.Health != nil {
			health = resp.State.Health.Status
		}
		exitCode = resp.State.ExitCode
	}

	status := runtime.StatusUnknown
	if resp.State != nil {
		status = runtime.ContainerStatus(resp.State.Status)
	}

	return runtime.ContainerInfo{
		ID:         resp.ID,
		Name:       strings.TrimPrefix(resp.Name, "/"),
		Image:      resp.Config.Image,
		Status:     status,
		Health:     health,
		Labels:     resp.Config.Labels,
		Ports:      ports,
		CreatedAt:  createdAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		ExitCode:   exitCode,
	}, nil
}

func (c *Client) CreateContainer(ctx context.Context, cfg runtime.ContainerConfiguration) (string, error) {
	const op = "docker.CreateContainer"

	config := &dockercontainer.Config{
		Image:      cfg.Image,
		Cmd:        cfg.Command,
		Entrypoint: cfg.Entrypoint,
		WorkingDir: cfg.WorkingDir,
		User:       cfg.User,
		Hostname:   cfg.Hostname,
		Domainname: cfg.DomainName,
		Labels:     cfg.Labels,
		Tty:        cfg.TTY,
	}
	for k, v := range cfg.Env {
		config.Env = append(config.Env, fmt.Sprintf("%s=%s", k, v))
	}

	hostConfig := &dockercontainer.HostConfig{}
	if len(cfg.Ports) > 0 {
		portBindings := nat.PortMap{}
		exposedPorts := nat.PortSet{}
		for _, p := range cfg.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposedPorts[containerPort] = struct{}{}
			hostPort := ""
			if p.HostPort != 0 {
				hostPort = fmt.Sprintf("%d", p.HostPort)
			}
			portBindings[containerPort] = append(portBindings[containerPort], nat.PortBinding{
				HostIP:   p.HostIP,
				HostPort: hostPort,
			})
		}
		config.ExposedPorts = exposedPorts
		hostConfig.PortBindings = portBindings
	}

	for _, m := range cfg.Mounts {
		mountType := mount.TypeVolume
		switch m.Type {
		case "bind":
			mountType = mount.TypeBind
		case "tmpfs":
			mountType = mount.TypeTmpfs
		}
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mountType,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	if cfg.Resources.CPUs > 0 {
		hostConfig.NanoCPUs = int64(cfg.Resources.CPUs * 1e9)
	}
	if cfg.Resources.Memory > 0 {
		hostConfig.Memory = cfg.Resources.Memory
	}

	if cfg.RestartPolicy.Name != "" {
		hostConfig.RestartPolicy = dockercontainer.RestartPolicy{
			Name:              dockercontainer.RestartPolicyMode(cfg.RestartPolicy.Name),
			MaximumRetryCount: cfg.RestartPolicy.MaximumRetryCount,
		}
	}

	if cfg.HealthCheck != nil {
		config.Healthcheck = &dockercontainer.HealthConfig{
			Test:        cfg.HealthCheck.Test,
			Interval:    cfg.HealthCheck.Interval,
			Timeout:     cfg.HealthCheck.Timeout,
			Retries:     cfg.HealthCheck.Retries,
			StartPeriod: cfg.HealthCheck.StartPeriod,
		}
	}

	var networkConfig *dockernetwork.NetworkingConfig
	if len(cfg.Networks) > 0 {
		networkConfig = &dockernetwork.NetworkingConfig{EndpointsConfig: map[string]*dockernetwork.EndpointSettings{}}
		for _, n := range cfg.Networks {
			networkConfig.EndpointsConfig[n] = &dockernetwork.EndpointSettings{}
		}
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, cfg.Name)
	if err != nil {
		return "", translate(op, err)
	}
	return resp.ID, nil
}

func (c *Client) StartContainer(ctx context.Context, id string) error {
	return translate("docker.StartContainer", c.cli.ContainerStart(ctx, id, dockercontainer.StartOptions{}))
}

func (c *Client) StopContainer(ctx context.Context, id string, timeout int) error {
	opts := dockercontainer.StopOptions{}
	if timeout > 0 {
		opts.Timeout = &timeout
	}
	return translate("docker.StopContainer", c.cli.ContainerStop(ctx, id, opts))
}

func (c *Client) KillContainer(ctx context.Context, id string, signal string) error {
	return translate("docker.KillContainer", c.cli.ContainerKill(ctx, id, signal))
}

func (c *Client) RemoveContainer(ctx context.Context, id string, opts runtime.RemoveOptions) error {
	removeOpts := dockercontainer.RemoveOptions{Force: opts.Force, RemoveVolumes: opts.RemoveVolumes}
	return translate("docker.RemoveContainer", c.cli.ContainerRemove(ctx, id, removeOpts))
}

// process implements runtime.Process over a Docker exec instance.
type process struct {
	cli    *client.Client
	id     string
	cfg    runtime.ProcessConfig
	attach dockertypes.HijackedResponse
}

func (c *Client) CreateProcess(ctx context.Context, containerID string, cfg runtime.ProcessConfig) (runtime.Process, error) {
	const op = "docker.CreateProcess"

	var env []string
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	execCfg := dockercontainer.ExecOptions{
		Cmd:          cfg.Command,
		Env:          env,
		WorkingDir:   cfg.WorkingDir,
		User:         cfg.User,
		Tty:          cfg.TTY,
		AttachStdin:  cfg.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	}

	resp, err := c.cli.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return nil, translate(op, err)
	}

	return &process{cli: c.cli, id: resp.ID, cfg: cfg}, nil
}

func (p *process) Start(ctx context.Context) error {
	const op = "docker.process.Start"
	attach, err := p.cli.ContainerExecAttach(ctx, p.id, dockercontainer.ExecAttachOptions{Tty: p.cfg.TTY})
	if err != nil {
		return translate(op, err)
	}
	p.attach = attach

	if p.cfg.Stdin != nil {
		go func() {
			io.Copy(p.attach.Conn, p.cfg.Stdin)
			p.attach.CloseWrite()
		}()
	}
	go func() {
		defer p.attach.Close()
		if p.cfg.Stdout != nil {
			io.Copy(p.cfg.Stdout, p.attach.Reader)
		}
	}()
	return nil
}

func (p *process) Wait(ctx context.Context) (int, error) {
	const op = "docker.process.Wait"
	for {
		inspect, err := p.cli.ContainerExecInspect(ctx, p.id)
		if err != nil {
			return 0, translate(op, err)
		}
		if !inspect.Running {
			return inspect.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, translate(op, ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Kill is a no-op: the Docker exec API has no signal-delivery endpoint,
// so an in-progress exec can only be abandoned by cancelling ctx.
func (p *process) Kill(ctx context.Context, signal string) error {
	return nil
}

func (c *Client) ContainerLogs(ctx context.Context, id string, opts runtime.LogOptions) (io.ReadCloser, error) {
	const op = "docker.ContainerLogs"
	logOpts := dockercontainer.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	}
	if !opts.Since.IsZero() {
		logOpts.Since = opts.Since.Format(time.RFC3339)
	}
	reader, err := c.cli.ContainerLogs(ctx, id, logOpts)
	if err != nil {
		return nil, translate(op, err)
	}
	return reader, nil
}

// =============================================================================
// Images
// =============================================================================

func (c *Client) GetImage(ctx context.Context, ref string) (bool, error) {
	const op = "docker.GetImage"
	_, _, err := c.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, translate(op, err)
	}
	return true, nil
}

func (c *Client) FetchImage(ctx context.Context, ref string, opts runtime.PullOptions) error {
	const op = "docker.FetchImage"
	reader, err := c.cli.ImagePull(ctx, ref, dockerimage.PullOptions{Platform: opts.Platform})
	if err != nil {
		return apperr.New(op, apperr.NotFound, err.Error(), err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return apperr.New(op, apperr.InternalError, err.Error(), err)
	}
	return nil
}

func (c *Client) ImageConfig(ctx context.Context, ref string) (runtime.ImageConfig, error) {
	const op = "docker.ImageConfig"
	inspect, _, err := c.cli.ImageInspectWithRaw(ctx, ref)
	if err != nil {
		return runtime.ImageConfig{}, translate(op, err)
	}
	if inspect.Config == nil {
		return runtime.ImageConfig{}, nil
	}
	return runtime.ImageConfig{
		Entrypoint: inspect.Config.Entrypoint,
		Cmd:        inspect.Config.Cmd,
		WorkingDir: inspect.Config.WorkingDir,
	}, nil
}

// =============================================================================
// Networks
// =============================================================================

func (c *Client) CreateNetwork(ctx context.Context, spec runtime.NetworkSpec) (string, error) {
	const op = "docker.CreateNetwork"
	driver := spec.Driver
	if driver == "" {
		driver = "bridge"
	}
	resp, err := c.cli.NetworkCreate(ctx, spec.Name, dockernetwork.CreateOptions{Driver: driver, Labels: spec.Labels})
	if err != nil {
		return "", translate(op, err)
	}
	return resp.ID, nil
}

func (c *Client) GetNetwork(ctx context.Context, nameOrID string) (runtime.NetworkInfo, error) {
	const op = "docker.GetNetwork"
	resp, err := c.cli.NetworkInspect(ctx, nameOrID, dockernetwork.InspectOptions{})
	if err != nil {
		return runtime.NetworkInfo{}, translate(op, err)
	}
	return runtime.NetworkInfo{ID: resp.ID, Name: resp.Name, Driver: resp.Driver, Labels: resp.Labels}, nil
}

func (c *Client) RemoveNetwork(ctx context.Context, id string) error {
	return translate("docker.RemoveNetwork", c.cli.NetworkRemove(ctx, id))
}

func (c *Client) ConnectNetwork(ctx context.Context, networkID, containerID string) error {
	return translate("docker.ConnectNetwork", c.cli.NetworkConnect(ctx, networkID, containerID, nil))
}

// =============================================================================
// Volumes
// =============================================================================

func (c *Client) CreateVolume(ctx context.Context, spec runtime.VolumeSpec) (runtime.VolumeInfo, error) {
	const op = "docker.CreateVolume"
	driver := spec.Driver
	if driver == "" {
		driver = "local"
	}
	resp, err := c.cli.VolumeCreate(ctx, dockervolume.CreateOptions{Name: spec.Name, Driver: driver, Labels: spec.Labels})
	if err != nil {
		return runtime.VolumeInfo{}, translate(op, err)
	}
	return runtime.VolumeInfo{Name: resp.Name, Driver: resp.Driver, Labels: resp.Labels, Source: resp.Mountpoint}, nil
}

func (c *Client) ListVolumes(ctx context.Context, labelFilters map[string]string) ([]runtime.VolumeInfo, error) {
	const op = "docker.ListVolumes"
	f := filters.NewArgs()
	for k, v := range labelFilters {
		f.Add("label", k+"="+v)
	}
	resp, err := c.cli.VolumeList(ctx, dockervolume.ListOptions{Filters: f})
	if err != nil {
		return nil, translate(op, err)
	}
	out := make([]runtime.VolumeInfo, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		out = append(out, runtime.VolumeInfo{Name: v.Name, Driver: v.Driver, Labels: v.Labels, Source: v.Mountpoint})
	}
	return out, nil
}

func (c *Client) InspectVolume(ctx context.Context, name string) (runtime.VolumeInfo, error) {
	const op = "docker.InspectVolume"
	v, err := c.cli.VolumeInspect(ctx, name)
	if err != nil {
		return runtime.VolumeInfo{}, translate(op, err)
	}
	return runtime.VolumeInfo{Name: v.Name, Driver: v.Driver, Labels: v.Labels, Source: v.Mountpoint}, nil
}

func (c *Client) RemoveVolume(ctx context.Context, name string, force bool) error {
	return translate("docker.RemoveVolume", c.cli.VolumeRemove(ctx, name, force))
}
