package fingerprint

import (
	"testing"

	"github.com/containerstack/compose/internal/core/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_DeterministicAcrossMapOrdering(t *testing.T) {
	base := Input{
		Image:      "nginx:latest",
		Executable: "/docker-entrypoint.sh",
		Arguments:  []string{"nginx", "-g", "daemon off;"},
		Environment: map[string]string{
			"A": "1",
			"B": "2",
		},
		Labels: map[string]string{
			"z": "last",
			"a": "first",
		},
	}
	h1, err := Hash(base)
	require.NoError(t, err)

	reordered := base
	reordered.Environment = map[string]string{"B": "2", "A": "1"}
	reordered.Labels = map[string]string{"a": "first", "z": "last"}
	h2, err := Hash(reordered)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestHash_DiffersOnMeaningfulChange(t *testing.T) {
	a := Input{Image: "nginx:1.0"}
	b := Input{Image: "nginx:2.0"}
	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHash_PortOrderDoesNotMatter(t *testing.T) {
	a := Input{Ports: []project.PortMapping{
		{HostPort: 80, ContainerPort: 80, Protocol: "tcp"},
		{HostPort: 443, ContainerPort: 443, Protocol: "tcp"},
	}}
	b := Input{Ports: []project.PortMapping{
		{HostPort: 443, ContainerPort: 443, Protocol: "tcp"},
		{HostPort: 80, ContainerPort: 80, Protocol: "tcp"},
	}}
	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHash_MountSourceDistinguishesVolumeFromBind(t *testing.T) {
	a := Input{Mounts: []ResolvedMount{{Source: "myvolume", Target: "/data"}}}
	b := Input{Mounts: []ResolvedMount{{Source: "/host/path", Target: "/data"}}}
	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHash_IsLowercaseHex64Chars(t *testing.T) {
	h, err := Hash(Input{Image: "nginx"})
	require.NoError(t, err)
	assert.Len(t, h, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", h)
}

func TestCanonicalJSON_HealthCheckOmittedWhenNil(t *testing.T) {
	data, err := CanonicalJSON(Input{Image: "nginx"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "healthcheck")
}

func TestCanonicalJSON_HealthCheckIncludedWhenSet(t *testing.T) {
	data, err := CanonicalJSON(Input{
		Image:       "nginx",
		HealthCheck: &project.HealthCheck{Test: []string{"CMD", "curl", "-f", "http://localhost"}, Interval: 30, Retries: 3},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "healthcheck")
	assert.Contains(t, string(data), "curl")
}
