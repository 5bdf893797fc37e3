package orchestrator

import (
	"context"
	"testing"

	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/build"
	"github.com/containerstack/compose/internal/shell/runtime"
	"github.com/containerstack/compose/internal/shell/runtime/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator() (*Orchestrator, *fake.Client) {
	rt := fake.New()
	o := New(rt, build.NewAdapter(), nil)
	return o, rt
}

func simpleProject(name string) *project.Project {
	return &project.Project{
		Name: name,
		Services: map[string]project.Service{
			"web": {Name: "web", Image: "nginx:latest", Networks: []string{"default"}},
		},
		Networks: map[string]project.Network{"default": {Name: "default", Driver: "bridge"}},
		Volumes:  map[string]project.Volume{},
	}
}

func TestUp_CreatesAndStartsContainer(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	ids, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)
	require.Contains(t, ids, "web")

	info, err := rt.GetContainer(context.Background(), ids["web"])
	require.NoError(t, err)
	assert.Equal(t, runtime.StatusRunning, info.Status)
	assert.Equal(t, p.Name, info.Labels[LabelProject])
	assert.Equal(t, "web", info.Labels[LabelService])
	assert.NotEmpty(t, info.Labels[LabelConfigHash])
}

func TestUp_ReusesContainerWithMatchingFingerprint(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	ids1, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	ids2, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	assert.Equal(t, ids1["web"], ids2["web"])
}

func TestUp_ForceRecreateReplacesContainer(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	ids1, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	ids2, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing", ForceRecreate: true})
	require.NoError(t, err)

	assert.NotEqual(t, ids1["web"], ids2["web"])
	_, err = rt.GetContainer(context.Background(), ids1["web"])
	assert.Error(t, err)
}

func TestUp_ChangedConfigRecreatesContainer(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	ids1, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	svc := p.Services["web"]
	svc.Environment = map[string]string{"FOO": "bar"}
	p.Services["web"] = svc

	ids2, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	assert.NotEqual(t, ids1["web"], ids2["web"])
}

func TestUp_RespectsDependencyOrder(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("postgres:16")
	rt.SeedImage("nginx:latest")

	p := &project.Project{
		Name: "proj",
		Services: map[string]project.Service{
			"db":  {Name: "db", Image: "postgres:16", Networks: []string{"default"}},
			"web": {Name: "web", Image: "nginx:latest", Networks: []string{"default"}, DependsOn: []string{"db"}},
		},
		Networks: map[string]project.Network{"default": {Name: "default", Driver: "bridge"}},
	}

	ids, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)
	require.Contains(t, ids, "db")
	require.Contains(t, ids, "web")
}

func TestUp_ExternalNetworkMustExist(t *testing.T) {
	o, _ := newTestOrchestrator()
	p := simpleProject("proj")
	p.Networks["default"] = project.Network{Name: "default", Driver: "bridge", External: true, ExternalName: "missing-net"}

	_, err := o.Up(context.Background(), p, UpOptions{})
	require.Error(t, err)
}

func TestDown_RemovesContainersAndNetwork(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	ids, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	result, err := o.Down(context.Background(), p, DownOptions{})
	require.NoError(t, err)
	assert.Contains(t, result.RemovedContainers, ids["web"])

	_, err = rt.GetContainer(context.Background(), ids["web"])
	assert.Error(t, err)
}

func TestDown_RemovesVolumesWhenRequested(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("postgres:16")

	p := &project.Project{
		Name: "proj",
		Services: map[string]project.Service{
			"db": {
				Name: "db", Image: "postgres:16", Networks: []string{"default"},
				Volumes: []project.VolumeMount{{Type: project.MountTypeVolume, Source: "data", Target: "/var/lib/postgresql/data"}},
			},
		},
		Networks: map[string]project.Network{"default": {Name: "default", Driver: "bridge"}},
		Volumes:  map[string]project.Volume{"data": {Name: "data"}},
	}

	_, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	result, err := o.Down(context.Background(), p, DownOptions{RemoveVolumes: true})
	require.NoError(t, err)
	assert.Contains(t, result.RemovedVolumes, "data")

	_, err = rt.InspectVolume(context.Background(), "data")
	assert.Error(t, err)
}

func TestRemove_SkipsRunningContainerWithoutForce(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	_, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	result, err := o.Remove(context.Background(), p, RemoveOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.Len(t, result.Warnings, 1)
}

func TestRemove_ForceRemovesRunningContainer(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	_, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	result, err := o.Remove(context.Background(), p, RemoveOptions{Force: true})
	require.NoError(t, err)
	assert.Len(t, result.Removed, 1)
}

func TestPs_ListsProjectContainers(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	_, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	rows, err := o.Ps(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "web", rows[0].Service)
	assert.Equal(t, "running", rows[0].Status)
}

func TestCheckHealth_NoHealthCheckReportsRunningState(t *testing.T) {
	o, rt := newTestOrchestrator()
	rt.SeedImage("nginx:latest")
	p := simpleProject("proj")

	_, err := o.Up(context.Background(), p, UpOptions{PullPolicy: "missing"})
	require.NoError(t, err)

	results, err := o.CheckHealth(context.Background(), p, nil)
	require.NoError(t, err)
	assert.True(t, results["web"])
}

func TestEffectiveImageName(t *testing.T) {
	assert.Equal(t, "nginx:latest", effectiveImageName("proj", project.Service{Name: "web", Image: "nginx:latest"}))

	svc := project.Service{Name: "web", Build: &project.BuildConfig{Context: "."}}
	tag := effectiveImageName("proj", svc)
	assert.Regexp(t, `^proj_web:[0-9a-f]{12}$`, tag)

	assert.Equal(t, "unknown", effectiveImageName("proj", project.Service{Name: "web"}))
}

func TestResolveExec_EntrypointClearedByEmptyString(t *testing.T) {
	svc := project.Service{Entrypoint: []string{""}, Command: []string{"run"}}
	imageCfg := runtime.ImageConfig{Entrypoint: []string{"/bin/sh"}, Cmd: []string{"default"}}

	entrypoint, command := resolveExec(svc, imageCfg)
	assert.Nil(t, entrypoint)
	assert.Equal(t, []string{"run"}, command)
}

func TestResolveExec_ServiceOverridesImage(t *testing.T) {
	svc := project.Service{Entrypoint: []string{"/custom"}}
	imageCfg := runtime.ImageConfig{Entrypoint: []string{"/bin/sh"}, Cmd: []string{"default"}}

	entrypoint, command := resolveExec(svc, imageCfg)
	assert.Equal(t, []string{"/custom"}, entrypoint)
	assert.Equal(t, []string{"default"}, command)
}

func TestResolveResources_Defaults(t *testing.T) {
	cpus, mem := resolveResources(project.Service{})
	assert.Equal(t, float64(defaultCPUs), cpus)
	assert.Equal(t, int64(defaultMemoryBytes), mem)
}

func TestResolveResources_MemoryIsMaxLeavesDefaultUnset(t *testing.T) {
	_, mem := resolveResources(project.Service{MemoryIsMax: true})
	assert.Equal(t, int64(0), mem)
}

func TestAnonymousVolumeName_Deterministic(t *testing.T) {
	n1 := anonymousVolumeName("proj", "web", "/data")
	n2 := anonymousVolumeName("proj", "web", "/data")
	assert.Equal(t, n1, n2)
	assert.Regexp(t, `^proj_web_anon_[0-9a-f]{12}$`, n1)
}
