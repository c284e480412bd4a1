package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryIsValid(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())

	required := reg.Required()
	assert.Contains(t, required, "date")
	assert.Contains(t, required, "shift")
	assert.Contains(t, required, "size")
	assert.Contains(t, required, "qc_grade")
	assert.Contains(t, required, "spec_weight")
	assert.Contains(t, required, "actual_weight")
	assert.Contains(t, required, "quantity")
	assert.NotContains(t, required, "target")
}

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase_passthrough", "shift", "shift"},
		{"mixed_case", "Spec Wt", "specwt"},
		{"underscores_stripped", "spec_weight", "specweight"},
		{"punctuation_stripped", "QC-Grade.", "qcgrade"},
		{"whitespace_only", "  \t ", ""},
		{"digits_kept", "205/55R16", "20555r16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	reg := Default()
	clone := reg.Clone()

	clone.Columns[0].Synonyms[0] = "mutated"
	clone.Columns[0].Name = "mutated"

	assert.Equal(t, "date", reg.Columns[0].Name)
	assert.Equal(t, "date", reg.Columns[0].Synonyms[0])
}

func TestLoadFromYAML(t *testing.T) {
	content := `version: v2
columns:
  - name: date
    synonyms: [date, day]
    type: date
    required: true
  - name: quantity
    synonyms: [qty]
    type: int
    required: true
`
	path := filepath.Join(t.TempDir(), "registry.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", reg.Version)
	assert.Len(t, reg.Columns, 2)

	spec, ok := reg.Find("quantity")
	require.True(t, ok)
	assert.Equal(t, TypeInt, spec.Type)
}

func TestValidateRejectsBadRegistries(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
	}{
		{"no_columns", Registry{Version: "v1"}},
		{"empty_name", Registry{Columns: []ColumnSpec{{Synonyms: []string{"x"}, Type: TypeString}}}},
		{"duplicate_name", Registry{Columns: []ColumnSpec{
			{Name: "a", Synonyms: []string{"a"}, Type: TypeString},
			{Name: "a", Synonyms: []string{"b"}, Type: TypeString},
		}}},
		{"unknown_type", Registry{Columns: []ColumnSpec{{Name: "a", Synonyms: []string{"a"}, Type: "decimal"}}}},
		{"no_synonyms", Registry{Columns: []ColumnSpec{{Name: "a", Type: TypeString}}}},
		{"category_without_allowed", Registry{Columns: []ColumnSpec{{Name: "a", Synonyms: []string{"a"}, Type: TypeCategory}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.reg.Validate())
		})
	}
}
