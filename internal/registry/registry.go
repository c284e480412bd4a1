package registry

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v2"
)

// FieldType is the coercion target for a mapped column.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInt      FieldType = "int"
	TypeFloat    FieldType = "float"
	TypeDate     FieldType = "date"
	TypeCategory FieldType = "category"
)

// ColumnSpec describes one recognized logical column: the canonical name the
// rest of the system uses, the header spellings that map to it, the type its
// cells are coerced to, and whether a table is rejected when no column maps
// to it.
type ColumnSpec struct {
	Name     string    `yaml:"name"`
	Synonyms []string  `yaml:"synonyms"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	// Allowed constrains category columns to a fixed value set. Matching is
	// folded (see Fold), but the canonical spelling is what ends up in the
	// record.
	Allowed []string `yaml:"allowed,omitempty"`
}

// Registry is the versioned set of ColumnSpecs the normalizer maps against.
// It must never be mutated after initialization; use Specs or Clone to read.
type Registry struct {
	Version string       `yaml:"version"`
	Columns []ColumnSpec `yaml:"columns"`
}

// Default returns the built-in production-record registry.
func Default() *Registry {
	return &Registry{
		Version: "v1",
		Columns: []ColumnSpec{
			{
				Name:     "date",
				Synonyms: []string{"date", "production date", "prod date", "day"},
				Type:     TypeDate,
				Required: true,
			},
			{
				Name:     "shift",
				Synonyms: []string{"shift", "shift name", "sft"},
				Type:     TypeCategory,
				Required: true,
				Allowed:  []string{"A", "B", "C"},
			},
			{
				Name:     "size",
				Synonyms: []string{"size", "tyre size", "tire size", "sz", "pattern", "size pattern"},
				Type:     TypeString,
				Required: true,
			},
			{
				Name:     "qc_grade",
				Synonyms: []string{"qc grade", "grade", "quality grade", "qc", "qc_grade"},
				Type:     TypeCategory,
				Required: true,
				Allowed:  []string{"A", "B", "Rework"},
			},
			{
				Name:     "spec_weight",
				Synonyms: []string{"spec weight", "spec wt", "spec", "specified weight", "std weight", "spec_weight"},
				Type:     TypeFloat,
				Required: true,
			},
			{
				Name:     "actual_weight",
				Synonyms: []string{"actual weight", "act wt", "actual wt", "actual", "weight", "actual_weight"},
				Type:     TypeFloat,
				Required: true,
			},
			{
				Name:     "quantity",
				Synonyms: []string{"quantity", "qty", "output", "pcs", "pieces", "count"},
				Type:     TypeInt,
				Required: true,
			},
			{
				Name:     "target",
				Synonyms: []string{"target", "plan", "target qty", "planned"},
				Type:     TypeFloat,
				Required: false,
			},
		},
	}
}

// Load reads a registry from a YAML file. The loaded registry fully replaces
// the default one; it is not merged.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", path, err)
	}

	return &reg, nil
}

// Validate checks structural invariants: non-empty columns, unique canonical
// names, known types, at least one synonym per column, and allowed-value sets
// on category columns.
func (r *Registry) Validate() error {
	if len(r.Columns) == 0 {
		return fmt.Errorf("registry has no columns")
	}

	seen := make(map[string]bool, len(r.Columns))
	for _, col := range r.Columns {
		if col.Name == "" {
			return fmt.Errorf("column with empty canonical name")
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate column name: %s", col.Name)
		}
		seen[col.Name] = true

		switch col.Type {
		case TypeString, TypeInt, TypeFloat, TypeDate, TypeCategory:
		default:
			return fmt.Errorf("column %s: unknown type %q", col.Name, col.Type)
		}

		if len(col.Synonyms) == 0 {
			return fmt.Errorf("column %s: no synonyms", col.Name)
		}
		if col.Type == TypeCategory && len(col.Allowed) == 0 {
			return fmt.Errorf("column %s: category type requires allowed values", col.Name)
		}
	}

	return nil
}

// Clone returns a deep copy so callers can never alias the shared registry's
// backing arrays.
func (r *Registry) Clone() *Registry {
	out := &Registry{Version: r.Version, Columns: make([]ColumnSpec, len(r.Columns))}
	for i, col := range r.Columns {
		c := col
		c.Synonyms = append([]string(nil), col.Synonyms...)
		c.Allowed = append([]string(nil), col.Allowed...)
		out.Columns[i] = c
	}
	return out
}

// Required returns the canonical names of all required columns.
func (r *Registry) Required() []string {
	var names []string
	for _, col := range r.Columns {
		if col.Required {
			names = append(names, col.Name)
		}
	}
	return names
}

// Find returns the spec with the given canonical name.
func (r *Registry) Find(name string) (ColumnSpec, bool) {
	for _, col := range r.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

// Fold reduces a header or category cell to its comparable form: lower case
// with everything except letters and digits removed. "Spec Wt" and
// "spec_weight" fold to forms the matcher can compare directly.
func Fold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
