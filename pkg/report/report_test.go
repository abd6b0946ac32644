package report

import (
	"testing"

	"github.com/cairnfield/tempo/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeTemporalTemplate(t *testing.T) {
	m, err := template.Compile("{station}/{year}/{month}/data_{hour}{minute}.csv", map[string]string{"station": `[A-Z]+`})
	require.NoError(t, err)

	out, err := Describe(m, 42)
	require.NoError(t, err)
	assert.Contains(t, out, "{station}/{year}/{month}/data_{hour}{minute}.csv")
	assert.Contains(t, out, "resolution:  month")
	assert.Contains(t, out, "station (user)")
	assert.Contains(t, out, "year (temporal:year)")
	assert.Contains(t, out, "cache:       42 entries")
}

func TestDescribeSingleFileTemplate(t *testing.T) {
	m, err := template.Compile("fixed.csv", nil)
	require.NoError(t, err)

	out, err := Describe(m, -1)
	require.NoError(t, err)
	assert.Contains(t, out, "single file")
	assert.NotContains(t, out, "cache:")
}
