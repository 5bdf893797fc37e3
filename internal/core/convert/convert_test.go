package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/containerstack/compose/internal/core/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, spec string) *compose.ComposeFile {
	t.Helper()
	cf, _, err := compose.ParseDocument(spec, "/srv/app/docker-compose.yml", nil, compose.Options{})
	require.NoError(t, err)
	return cf
}

func TestConvert_MinimalService(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx:latest
`)
	p, warnings, err := Convert(cf, "myproj", Options{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Contains(t, p.Services, "app")
	svc := p.Services["app"]
	assert.Equal(t, "nginx:latest", svc.Image)
	assert.Equal(t, "myproj_app", svc.ContainerName)
	assert.Equal(t, []string{"default"}, svc.Networks)
	assert.Contains(t, p.Networks, "default")
}

func TestConvert_ContainerNameOverride(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    container_name: custom-name
`)
	p, _, err := Convert(cf, "myproj", Options{})
	require.NoError(t, err)
	assert.Equal(t, "custom-name", p.Services["app"].ContainerName)
}

func TestConvert_PortsShortForm(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    ports:
      - "8080:80"
      - "127.0.0.1:9090:90"
      - "53:53/udp"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	ports := p.Services["app"].Ports
	require.Len(t, ports, 3)
	assert.Equal(t, 8080, ports[0].HostPort)
	assert.Equal(t, 80, ports[0].ContainerPort)
	assert.Equal(t, "tcp", ports[0].Protocol)
	assert.Equal(t, "127.0.0.1", ports[1].HostIP)
	assert.Equal(t, "udp", ports[2].Protocol)
}

func TestConvert_PortsRangeExpansion(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    ports:
      - "8000-8002:9000-9002"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	ports := p.Services["app"].Ports
	require.Len(t, ports, 3)
	assert.Equal(t, 8000, ports[0].HostPort)
	assert.Equal(t, 9000, ports[0].ContainerPort)
	assert.Equal(t, 8002, ports[2].HostPort)
	assert.Equal(t, 9002, ports[2].ContainerPort)
}

func TestConvert_VolumesBareAnonymous(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    volumes:
      - /var/lib/data
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	vols := p.Services["app"].Volumes
	require.Len(t, vols, 1)
	assert.Equal(t, "", vols[0].Source)
	assert.Equal(t, "/var/lib/data", vols[0].Target)
}

func TestConvert_VolumesNamedVolume(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    volumes:
      - pgdata:/var/lib/postgresql/data:ro
volumes:
  pgdata:
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	vols := p.Services["app"].Volumes
	require.Len(t, vols, 1)
	assert.Equal(t, "pgdata", vols[0].Source)
	assert.True(t, vols[0].ReadOnly)
}

func TestConvert_VolumesBindMountRelativePath(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    volumes:
      - ./data:/var/lib/data
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	vols := p.Services["app"].Volumes
	require.Len(t, vols, 1)
	assert.True(t, filepath.IsAbs(vols[0].Source))
	assert.Equal(t, "/srv/app/data", vols[0].Source)
}

func TestConvert_HealthCheckNoneDisables(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    healthcheck:
      test: ["NONE"]
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	assert.Nil(t, p.Services["app"].HealthCheck)
}

func TestConvert_HealthCheckCmdShell(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    healthcheck:
      test: ["CMD-SHELL", "curl -f http://localhost || exit 1"]
      interval: 30s
      timeout: 5s
      retries: 3
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	hc := p.Services["app"].HealthCheck
	require.NotNil(t, hc)
	assert.Equal(t, []string{"/bin/sh", "-c", "curl -f http://localhost || exit 1"}, hc.Test)
	assert.Equal(t, 30, hc.Interval)
	assert.Equal(t, 5, hc.Timeout)
	assert.Equal(t, 3, hc.Retries)
}

func TestConvert_HealthCheckScalarStringShellWrapped(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    healthcheck:
      test: "curl -f http://localhost || exit 1"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	hc := p.Services["app"].HealthCheck
	require.NotNil(t, hc)
	assert.Equal(t, []string{"/bin/sh", "-c", "curl -f http://localhost || exit 1"}, hc.Test)
}

func TestConvert_DependsOnDictFormSplitsByCondition(t *testing.T) {
	cf := parse(t, `
services:
  web:
    image: nginx
    depends_on:
      db:
        condition: service_healthy
      migrate:
        condition: service_completed_successfully
      cache:
        condition: service_started
  db:
    image: postgres
  migrate:
    image: migrate
  cache:
    image: redis
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["web"]
	assert.Equal(t, []string{"db"}, svc.DependsOnHealthy)
	assert.Equal(t, []string{"migrate"}, svc.DependsOnCompletedSuccessfully)
	assert.Equal(t, []string{"cache"}, svc.DependsOnStarted)
	assert.Empty(t, svc.DependsOn)
}

func TestConvert_DependsOnListFormPopulatesDependsOnOnly(t *testing.T) {
	cf := parse(t, `
services:
  web:
    image: nginx
    depends_on:
      - db
  db:
    image: postgres
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"db"}, p.Services["web"].DependsOn)
}

func TestConvert_ProfileFilterEmptyActiveKeepsProfilelessOnly(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
  debug:
    image: debugger
    profiles: ["debug"]
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	assert.Contains(t, p.Services, "app")
	assert.NotContains(t, p.Services, "debug")
}

func TestConvert_ProfileFilterActiveIncludesMatching(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
  debug:
    image: debugger
    profiles: ["debug"]
`)
	p, _, err := Convert(cf, "p", Options{Profiles: []string{"debug"}})
	require.NoError(t, err)
	assert.Contains(t, p.Services, "app")
	assert.Contains(t, p.Services, "debug")
}

func TestConvert_SelectionFilterTransitiveClosure(t *testing.T) {
	cf := parse(t, `
services:
  web:
    image: nginx
    depends_on:
      - api
  api:
    image: api
    depends_on:
      - db
  db:
    image: postgres
  unrelated:
    image: unrelated
`)
	p, _, err := Convert(cf, "p", Options{Selected: []string{"web"}})
	require.NoError(t, err)
	assert.Contains(t, p.Services, "web")
	assert.Contains(t, p.Services, "api")
	assert.Contains(t, p.Services, "db")
	assert.NotContains(t, p.Services, "unrelated")
}

func TestConvert_SelectionFilterWarnsOnUnknownName(t *testing.T) {
	cf := parse(t, minimalValidSpecForConvert)
	_, warnings, err := Convert(cf, "p", Options{Selected: []string{"ghost"}})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ghost")
}

const minimalValidSpecForConvert = `
services:
  app:
    image: nginx:latest
`

func TestConvert_ExtendsMergesBaseService(t *testing.T) {
	cf := parse(t, `
services:
  base:
    image: nginx:base
    environment:
      FOO: base
    ports:
      - "80:80"
  app:
    extends:
      service: base
    environment:
      BAR: app
    ports:
      - "443:443"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["app"]
	assert.Equal(t, "nginx:base", svc.Image)
	assert.Equal(t, "base", svc.Environment["FOO"])
	assert.Equal(t, "app", svc.Environment["BAR"])
	assert.Len(t, svc.Ports, 2)
}

func TestConvert_ExtendsCrossFileRejected(t *testing.T) {
	cf := parse(t, `
services:
  app:
    extends:
      service: base
      file: other.yml
`)
	_, _, err := Convert(cf, "p", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cross-file")
}

func TestConvert_ExtendsCycleDetected(t *testing.T) {
	cf := parse(t, `
services:
  a:
    image: nginx
    extends:
      service: b
  b:
    image: nginx
    extends:
      service: a
`)
	_, _, err := Convert(cf, "p", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular extends")
}

func TestConvert_MissingImageAndBuildErrors(t *testing.T) {
	cf := parse(t, `
services:
  app:
    working_dir: /srv
`)
	_, _, err := Convert(cf, "p", Options{})
	require.Error(t, err)
}

func TestConvert_BuildDefaultsContextToDot(t *testing.T) {
	cf := parse(t, `
services:
  app:
    build: {}
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	require.NotNil(t, p.Services["app"].Build)
	assert.Equal(t, ".", p.Services["app"].Build.Context)
}

func TestConvert_EnvFileMergesAndServiceEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte("FOO=fromfile\nSHARED=fromfile\n"), 0o600))
	composePath := filepath.Join(dir, "docker-compose.yml")
	cf, _, err := compose.ParseDocument(`
services:
  app:
    image: nginx
    env_file:
      - app.env
    environment:
      SHARED: fromservice
`, composePath, nil, compose.Options{})
	require.NoError(t, err)

	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["app"]
	assert.Equal(t, "fromfile", svc.Environment["FOO"])
	assert.Equal(t, "fromservice", svc.Environment["SHARED"])
}

func TestConvert_ResourcesMemoryParsing(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    cpus: "1.5"
    mem_limit: "256m"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["app"]
	assert.Equal(t, 1.5, svc.CPUs)
	assert.Equal(t, int64(256*1024*1024), svc.Memory)
	assert.False(t, svc.MemoryIsMax)
}

func TestConvert_ResourcesDeployLimitsOverrideV2Fields(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    cpus: "1.5"
    mem_limit: "256m"
    deploy:
      resources:
        limits:
          cpus: "2"
          memory: "512m"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["app"]
	assert.Equal(t, 2.0, svc.CPUs)
	assert.Equal(t, int64(512*1024*1024), svc.Memory)
}

func TestConvert_ResourcesDeployLimitsFallBackToV2FieldWhenUnset(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    cpus: "1.5"
    deploy:
      resources:
        limits:
          memory: "512m"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	svc := p.Services["app"]
	assert.Equal(t, 1.5, svc.CPUs)
	assert.Equal(t, int64(512*1024*1024), svc.Memory)
}

func TestConvert_ResourcesMemoryMax(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
    mem_limit: "max"
`)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	assert.True(t, p.Services["app"].MemoryIsMax)
	assert.Equal(t, int64(0), p.Services["app"].Memory)
}

func TestConvert_NetworksDefaultedWhenNoneDeclared(t *testing.T) {
	cf := parse(t, minimalValidSpecForConvert)
	p, _, err := Convert(cf, "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, p.Services["app"].Networks)
}

func TestConvert_NetworksRejectsNonBridgeDriver(t *testing.T) {
	cf := parse(t, `
services:
  app:
    image: nginx
networks:
  custom:
    driver: overlay
`)
	_, _, err := Convert(cf, "p", Options{})
	require.Error(t, err)
}
