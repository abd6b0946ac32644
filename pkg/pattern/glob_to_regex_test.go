package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobToRegexpLiteralDot(t *testing.T) {
	re, err := GlobToRegexp("file.v1")
	require.NoError(t, err)
	compiled, err := regexp.Compile("^" + re + "$")
	require.NoError(t, err)
	assert.True(t, compiled.MatchString("file.v1"))
	assert.False(t, compiled.MatchString("fileXv1"))
}

func TestGlobToRegexpStarNonGreedy(t *testing.T) {
	re, err := GlobToRegexp("*_data")
	require.NoError(t, err)
	compiled, err := regexp.Compile("^" + re + "$")
	require.NoError(t, err)
	assert.True(t, compiled.MatchString("2017_data"))
	assert.False(t, compiled.MatchString("2017_data_extra"))
}

func TestGlobToRegexpEmpty(t *testing.T) {
	_, err := GlobToRegexp("")
	assert.ErrorIs(t, err, ErrEmptyPattern)
}
