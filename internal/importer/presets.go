package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alvazi/microgl/internal/normalize"
)

// Registry holds named layouts for known bank exports.
type Registry struct {
	presets map[string]Layout
}

// NewRegistry creates an empty preset registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]Layout)}
}

// Register adds a preset. Panics on duplicate name.
func (r *Registry) Register(name string, l Layout) {
	key := strings.ToLower(name)
	if _, ok := r.presets[key]; ok {
		panic("duplicate layout preset: " + key)
	}
	r.presets[key] = l
}

// Get returns the preset named name.
func (r *Registry) Get(name string) (Layout, bool) {
	l, ok := r.presets[strings.ToLower(name)]
	return l, ok
}

// Names returns the registered preset names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands l.Preset (if any) and validates the result.
func (r *Registry) Resolve(l Layout) (Layout, error) {
	if l.Preset != "" {
		base, ok := r.Get(l.Preset)
		if !ok {
			return Layout{}, fmt.Errorf("unknown layout preset %q (known: %s)", l.Preset, strings.Join(r.Names(), ", "))
		}
		l = l.merge(base)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout: %w", err)
	}
	return l, nil
}

// ChaseLayout reads Chase checking exports:
// Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
func ChaseLayout() Layout {
	return Layout{
		Separator: ",",
		Columns: map[string]int{
			normalize.FieldDate:        1,
			normalize.FieldDescription: 2,
			normalize.FieldAmount:      3,
			normalize.FieldReference:   6,
		},
		Layout: normalize.Layout{DateFormat: "MM/DD/YYYY"},
	}
}

// CGDLayout reads Caixa Geral de Depositos account exports, which carry a preamble
// before the header row and use European number formatting.
func CGDLayout() Layout {
	return Layout{
		Separator: ";",
		Headers: map[string]string{
			normalize.FieldDate:        "Data mov.",
			normalize.FieldDescription: "Descrição",
			normalize.FieldAmount:      "Montante",
		},
		Layout: normalize.Layout{
			DateFormat:         "DD-MM-YYYY",
			DecimalSeparator:   ",",
			ThousandsSeparator: ".",
		},
	}
}

// DefaultRegistry returns a registry with all built-in presets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("chase", ChaseLayout())
	r.Register("cgd", CGDLayout())
	return r
}
