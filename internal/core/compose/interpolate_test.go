package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate_BareVar(t *testing.T) {
	out, err := Interpolate("image: $REGISTRY/app", map[string]string{"REGISTRY": "ghcr.io"})
	assert.NoError(t, err)
	assert.Equal(t, "image: ghcr.io/app", out)
}

func TestInterpolate_BracedVar(t *testing.T) {
	out, err := Interpolate("image: ${REGISTRY}/app", map[string]string{"REGISTRY": "ghcr.io"})
	assert.NoError(t, err)
	assert.Equal(t, "image: ghcr.io/app", out)
}

func TestInterpolate_DefaultUsedWhenUnset(t *testing.T) {
	out, err := Interpolate("tag: ${TAG:-latest}", nil)
	assert.NoError(t, err)
	assert.Equal(t, "tag: latest", out)
}

func TestInterpolate_DefaultIgnoredWhenSet(t *testing.T) {
	out, err := Interpolate("tag: ${TAG:-latest}", map[string]string{"TAG": "1.0"})
	assert.NoError(t, err)
	assert.Equal(t, "tag: 1.0", out)
}

func TestInterpolate_MissingNoDefaultSubstitutesEmpty(t *testing.T) {
	out, err := Interpolate("tag: [${MISSING}]", nil)
	assert.NoError(t, err)
	assert.Equal(t, "tag: []", out)
}

func TestInterpolate_MultipleInSingleLine(t *testing.T) {
	out, err := Interpolate("$A-$B-${C:-c}", map[string]string{"A": "1", "B": "2"})
	assert.NoError(t, err)
	assert.Equal(t, "1-2-c", out)
}

func TestInterpolate_LiteralDollarUnaffected(t *testing.T) {
	out, err := Interpolate("price: $5.00", nil)
	assert.NoError(t, err)
	assert.Equal(t, "price: $5.00", out)
}

func TestInterpolate_EmptyDefault(t *testing.T) {
	out, err := Interpolate("tag: [${TAG:-}]", nil)
	assert.NoError(t, err)
	assert.Equal(t, "tag: []", out)
}

func TestIsValidEnvName(t *testing.T) {
	cases := map[string]bool{
		"FOO":      true,
		"_foo":     true,
		"foo_bar1": true,
		"1FOO":     false,
		"FOO-BAR":  false,
		"":         false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsValidEnvName(name), "name=%q", name)
	}
}
