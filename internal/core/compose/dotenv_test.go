package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDotEnv_BasicAssignment(t *testing.T) {
	out, warnings, err := ParseDotEnv("FOO=bar\nBAZ=qux\n", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "bar", out["FOO"])
	assert.Equal(t, "qux", out["BAZ"])
}

func TestParseDotEnv_CommentsAndBlankLinesIgnored(t *testing.T) {
	out, _, err := ParseDotEnv("# a comment\n\nFOO=bar\n  # indented comment\n", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", out["FOO"])
	assert.Len(t, out, 1)
}

func TestParseDotEnv_ExportPrefixStripped(t *testing.T) {
	out, _, err := ParseDotEnv("export FOO=bar\n", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", out["FOO"])
}

func TestParseDotEnv_QuotedValues(t *testing.T) {
	out, _, err := ParseDotEnv("FOO=\"bar baz\"\nBAR='single quoted'\n", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar baz", out["FOO"])
	assert.Equal(t, "single quoted", out["BAR"])
}

func TestParseDotEnv_BareKeyPassesThroughProcessEnv(t *testing.T) {
	out, _, err := ParseDotEnv("FOO\n", nil, map[string]string{"FOO": "fromshell"})
	require.NoError(t, err)
	assert.Equal(t, "fromshell", out["FOO"])
}

func TestParseDotEnv_BareKeyUnsetInProcessEnvSkipped(t *testing.T) {
	out, _, err := ParseDotEnv("FOO\n", nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "FOO")
}

func TestParseDotEnv_InvalidNameWarns(t *testing.T) {
	_, warnings, err := ParseDotEnv("1INVALID=bar\n", nil, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "invalid name")
}

func TestParseDotEnv_NestedExpansionFromPriorKeys(t *testing.T) {
	out, _, err := ParseDotEnv("FOO=bar\nBAZ=${FOO}-qux\n", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar-qux", out["BAZ"])
}

func TestParseDotEnv_NestedExpansionFallsBackToProcessEnv(t *testing.T) {
	out, _, err := ParseDotEnv("BAZ=${FOO}-qux\n", nil, map[string]string{"FOO": "shellval"})
	require.NoError(t, err)
	assert.Equal(t, "shellval-qux", out["BAZ"])
}

func TestLoadDotEnvFile_MissingFileIsNotAnError(t *testing.T) {
	env, warnings, err := LoadDotEnvFile(t.TempDir(), map[string]string{"A": "1"})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "1", env["A"])
}

func TestLoadDotEnvFile_ShellEnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("A=fromfile\nB=fileonly\n"), 0o600))

	env, _, err := LoadDotEnvFile(dir, map[string]string{"A": "fromshell"})
	require.NoError(t, err)
	assert.Equal(t, "fromshell", env["A"])
	assert.Equal(t, "fileonly", env["B"])
}

func TestLoadDotEnvFile_WarnsOnPermissiveMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0o644))

	_, warnings, err := LoadDotEnvFile(dir, map[string]string{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "readable by group or other")
}
