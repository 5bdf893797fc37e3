package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_DeterministicAndOrderIndependent(t *testing.T) {
	a1 := map[string]string{"FOO": "1", "BAR": "2"}
	a2 := map[string]string{"BAR": "2", "FOO": "1"}

	fp1 := Fingerprint("proj", "web", "/ctx", "Dockerfile", a1)
	fp2 := Fingerprint("proj", "web", "/ctx", "Dockerfile", a2)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64) // hex-encoded SHA-256
}

func TestFingerprint_DiffersOnServiceName(t *testing.T) {
	fp1 := Fingerprint("proj", "web", "/ctx", "Dockerfile", nil)
	fp2 := Fingerprint("proj", "worker", "/ctx", "Dockerfile", nil)
	assert.NotEqual(t, fp1, fp2)
}

func TestDeterministicTag_Format(t *testing.T) {
	tag := DeterministicTag("proj", "web", "/ctx", "Dockerfile", nil)
	assert.Regexp(t, `^proj_web:[0-9a-f]{12}$`, tag)
}

func TestBuild_MissingContextIsNotFound(t *testing.T) {
	a := NewAdapter()
	_, err := a.Build(context.Background(), Request{
		ProjectName: "proj",
		ServiceName: "web",
		Context:     "/does/not/exist",
	})
	require.Error(t, err)
	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NotFound, kind)
}

func TestBuild_MissingDockerfileIsNotFound(t *testing.T) {
	dir := t.TempDir()

	a := NewAdapter()
	_, err := a.Build(context.Background(), Request{
		ProjectName: "proj",
		ServiceName: "web",
		Context:     dir,
		Dockerfile:  "Dockerfile",
	})
	require.Error(t, err)
	kind, _ := apperr.KindOf(err)
	assert.Equal(t, apperr.NotFound, kind)
}

func TestBuild_InvokesExecutableAndCaches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	fakeBuilder := writeFakeBuilder(t, dir, 0)

	a := NewAdapter()
	a.ExecutablePath = fakeBuilder

	req := Request{ProjectName: "proj", ServiceName: "web", Context: dir, Dockerfile: "Dockerfile"}
	tag1, err := a.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Regexp(t, `^proj_web:[0-9a-f]{12}$`, tag1)

	// Second call with an executable that would fail must hit the cache
	// instead of re-invoking the build.
	a.ExecutablePath = writeFakeBuilder(t, dir, 1)
	tag2, err := a.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, tag1, tag2)
}

func TestBuild_NonZeroExitIncludesStderr(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	a := NewAdapter()
	a.ExecutablePath = writeFakeBuilder(t, dir, 1)

	_, err := a.Build(context.Background(), Request{
		ProjectName: "proj",
		ServiceName: "web",
		Context:     dir,
		Dockerfile:  "Dockerfile",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthetic failure")
}

func TestBuild_ExplicitTagOverridesDeterministicTag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	a := NewAdapter()
	a.ExecutablePath = writeFakeBuilder(t, dir, 0)

	tag, err := a.Build(context.Background(), Request{
		ProjectName: "proj",
		ServiceName: "web",
		Context:     dir,
		Dockerfile:  "Dockerfile",
		Tag:         "myrepo/web:latest",
	})
	require.NoError(t, err)
	assert.Equal(t, "myrepo/web:latest", tag)
}

// writeFakeBuilder writes a tiny shell script standing in for the real
// build executable: it exits with exitCode, writing to stderr on failure.
func writeFakeBuilder(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	script := filepath.Join(dir, "fake-builder.sh")
	body := "#!/bin/sh\n"
	if exitCode != 0 {
		body += "echo 'synthetic failure' >&2\n"
	}
	body += "exit " + string(rune('0'+exitCode)) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}
