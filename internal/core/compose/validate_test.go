package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_MinimalSpecPasses(t *testing.T) {
	cf := parseOrFail(t, minimalValidSpec)
	warnings, err := Validate(cf)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidate_EmptyServicesErrors(t *testing.T) {
	cf := &ComposeFile{Services: map[string]ServiceSpec{}}
	_, err := Validate(cf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "services must not be empty")
}

func TestValidate_MissingImageAndBuildErrors(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    working_dir: /srv
`)
	_, err := Validate(cf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image or build")
}

func TestValidate_BuildWithoutImageIsValid(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    build:
      context: .
`)
	_, err := Validate(cf)
	require.NoError(t, err)
}

func TestValidate_InvalidEnvNameErrors(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    environment:
      "1BAD": value
`)
	_, err := Validate(cf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment variable name")
}

func TestValidate_UnknownVersionWarns(t *testing.T) {
	cf := parseOrFail(t, minimalValidSpec)
	cf.Version = "99"
	warnings, err := Validate(cf)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unrecognized compose version")
}

func TestValidate_PortOutOfRangeErrors(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    ports:
      - "70000:80"
`)
	_, err := Validate(cf)
	require.Error(t, err)
}

func TestValidate_PortBadProtocolErrors(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    ports:
      - "80:80/sctp"
`)
	_, err := Validate(cf)
	require.Error(t, err)
}

func TestValidate_ValidPortRangePasses(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    ports:
      - "8000-8010:80"
`)
	_, err := Validate(cf)
	require.NoError(t, err)
}

func TestValidate_ShortVolumeUnknownOptionErrors(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    volumes:
      - "data:/var/lib/data:bogus"
`)
	_, err := Validate(cf)
	require.Error(t, err)
}

func TestValidate_ShortVolumeKnownOptionsPass(t *testing.T) {
	cf := parseOrFail(t, `
services:
  app:
    image: nginx
    volumes:
      - "data:/var/lib/data:ro,z"
`)
	_, err := Validate(cf)
	require.NoError(t, err)
}

func TestValidate_DirectCycleDetected(t *testing.T) {
	cf := parseOrFail(t, `
services:
  a:
    image: nginx
    depends_on:
      - b
  b:
    image: nginx
    depends_on:
      - a
`)
	_, err := Validate(cf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestValidate_DictFormDependsOnCycleDetected(t *testing.T) {
	cf := parseOrFail(t, `
services:
  a:
    image: nginx
    depends_on:
      b:
        condition: service_healthy
  b:
    image: nginx
    depends_on:
      a:
        condition: service_started
`)
	_, err := Validate(cf)
	require.Error(t, err)
}

func TestValidate_NoCycleMultiLevelPasses(t *testing.T) {
	cf := parseOrFail(t, multiServiceSpec)
	_, err := Validate(cf)
	require.NoError(t, err)
}

func TestLoadAndMerge_NoFilesErrors(t *testing.T) {
	_, _, err := LoadAndMerge(nil, nil, Options{})
	require.Error(t, err)
}
