package fake

import (
	"context"
	"testing"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/shell/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStartStopRemoveContainer(t *testing.T) {
	ctx := context.Background()
	c := New()

	id, err := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web", Image: "nginx"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	info, err := c.GetContainer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusCreated, info.Status)

	require.NoError(t, c.StartContainer(ctx, id))
	info, err = c.GetContainer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusRunning, info.Status)

	err = c.RemoveContainer(ctx, id, runtime.RemoveOptions{})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidArgument, kind)

	require.NoError(t, c.RemoveContainer(ctx, id, runtime.RemoveOptions{Force: true}))
	_, err = c.GetContainer(ctx, id)
	require.Error(t, err)
}

func TestCreateContainer_DuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, err := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web", Image: "nginx"})
	require.NoError(t, err)

	_, err = c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web", Image: "nginx"})
	require.Error(t, err)
	kind, _ := apperr.KindOf(err)
	assert.Equal(t, apperr.AlreadyExists, kind)
}

func TestCreateContainer_InjectedFailure(t *testing.T) {
	ctx := context.Background()
	c := New()
	want := apperr.New("test", apperr.InternalError, "boom", nil)
	c.FailNextCreateContainer = want

	_, err := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web", Image: "nginx"})
	assert.Equal(t, want, err)

	// cleared after one use
	_, err = c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web", Image: "nginx"})
	require.NoError(t, err)
}

func TestListContainers_FiltersByAllAndLabels(t *testing.T) {
	ctx := context.Background()
	c := New()

	id1, _ := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "a", Labels: map[string]string{"project": "x"}})
	id2, _ := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "b", Labels: map[string]string{"project": "y"}})
	require.NoError(t, c.StartContainer(ctx, id1))

	running, err := c.ListContainers(ctx, runtime.ListOptions{})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, id1, running[0].ID)

	all, err := c.ListContainers(ctx, runtime.ListOptions{All: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := c.ListContainers(ctx, runtime.ListOptions{All: true, Filters: map[string]string{"label=project": "y"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, id2, filtered[0].ID)
}

func TestImageLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New()

	present, err := c.GetImage(ctx, "nginx:latest")
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, c.FetchImage(ctx, "nginx:latest", runtime.PullOptions{}))

	present, err = c.GetImage(ctx, "nginx:latest")
	require.NoError(t, err)
	assert.True(t, present)
}

func TestSeedImage(t *testing.T) {
	ctx := context.Background()
	c := New()
	c.SeedImage("redis:7")

	present, err := c.GetImage(ctx, "redis:7")
	require.NoError(t, err)
	assert.True(t, present)
}

func TestNetworkLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New()

	id, err := c.CreateNetwork(ctx, runtime.NetworkSpec{Name: "proj_default", Driver: "bridge"})
	require.NoError(t, err)

	_, err = c.CreateNetwork(ctx, runtime.NetworkSpec{Name: "proj_default"})
	require.Error(t, err)
	kind, _ := apperr.KindOf(err)
	assert.Equal(t, apperr.AlreadyExists, kind)

	info, err := c.GetNetwork(ctx, "proj_default")
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)

	infoByID, err := c.GetNetwork(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "proj_default", infoByID.Name)

	require.NoError(t, c.RemoveNetwork(ctx, id))
	_, err = c.GetNetwork(ctx, "proj_default")
	require.Error(t, err)
}

func TestConnectNetwork_RequiresExistingContainer(t *testing.T) {
	ctx := context.Background()
	c := New()
	id, _ := c.CreateNetwork(ctx, runtime.NetworkSpec{Name: "n"})

	err := c.ConnectNetwork(ctx, id, "missing")
	require.Error(t, err)

	cid, _ := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web"})
	require.NoError(t, c.ConnectNetwork(ctx, id, cid))
}

func TestVolumeLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New()

	v, err := c.CreateVolume(ctx, runtime.VolumeSpec{Name: "data", Labels: map[string]string{"project": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "data", v.Name)
	assert.NotEmpty(t, v.Source)

	// Idempotent create returns the existing volume.
	v2, err := c.CreateVolume(ctx, runtime.VolumeSpec{Name: "data"})
	require.NoError(t, err)
	assert.Equal(t, v.Source, v2.Source)

	listed, err := c.ListVolumes(ctx, map[string]string{"project": "x"})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	inspected, err := c.InspectVolume(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, v.Source, inspected.Source)

	require.NoError(t, c.RemoveVolume(ctx, "data", false))
	_, err = c.InspectVolume(ctx, "data")
	require.Error(t, err)
}

func TestCreateProcess_RequiresExistingContainer(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, err := c.CreateProcess(ctx, "missing", runtime.ProcessConfig{Command: []string{"echo", "hi"}})
	require.Error(t, err)

	cid, _ := c.CreateContainer(ctx, runtime.ContainerConfiguration{Name: "web"})
	proc, err := c.CreateProcess(ctx, cid, runtime.ProcessConfig{Command: []string{"echo", "hi"}})
	require.NoError(t, err)

	require.NoError(t, proc.Start(ctx))
	code, err := proc.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestPingAndClose(t *testing.T) {
	c := New()
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
