package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"iso", "2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"day_first_slash", "02/01/2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"slash_year_first", "2025/03/01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"day_first_dash", "02-01-2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"textual", "2 Jan 2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"excel_serial", "45658", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	for _, bad := range []string{"", "not a date", "tomorrow"} {
		_, err := coerceDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestCoerceFloat(t *testing.T) {
	got, err := coerceFloat("1,234.5")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, got)

	got, err = coerceFloat("  9.6 ")
	require.NoError(t, err)
	assert.Equal(t, 9.6, got)

	_, err = coerceFloat("n/a")
	assert.Error(t, err)
	_, err = coerceFloat("")
	assert.Error(t, err)
}

func TestCoerceInt(t *testing.T) {
	got, err := coerceInt("1,200")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got)

	// Whole floats coerce; fractional values do not.
	got, err = coerceInt("120.0")
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)

	_, err = coerceInt("120.5")
	assert.Error(t, err)
}

func TestCoerceCategory(t *testing.T) {
	allowed := []string{"A", "B", "Rework"}

	got, err := coerceCategory("rework", allowed)
	require.NoError(t, err)
	assert.Equal(t, "Rework", got)

	got, err = coerceCategory(" a ", allowed)
	require.NoError(t, err)
	assert.Equal(t, "A", got)

	_, err = coerceCategory("D", allowed)
	assert.Error(t, err)
}
