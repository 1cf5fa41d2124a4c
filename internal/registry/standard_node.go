// Package registry holds the minimal standard-node and metric registries
// the ID resolver, item loader, and metric service treat as external
// collaborators (spec.md §6.2, §6.3). The YAML loading shape follows the
// teacher's YAML importer (backend/internal/application/importer/yaml_importer.go):
// a plain yaml-tagged struct unmarshaled with gopkg.in/yaml.v3, then
// validated and converted into the package's own domain type.
package registry

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jeickmeier/fin-statement-model-sub001/internal/fsmerrors"
)

// SignConvention is a standard node's canonical sign, per spec.md §6.3.
type SignConvention string

const (
	SignPositive SignConvention = "positive"
	SignNegative SignConvention = "negative"
)

// NodeDefinition is one entry of a StandardNodeRegistry.
type NodeDefinition struct {
	Category       string
	Subcategory    string
	Description    string
	AlternateNames []string
	SignConvention SignConvention
}

// StandardNodeRegistry maps canonical and alternate standard node names to
// their definitions (spec.md §6.3).
type StandardNodeRegistry struct {
	definitions map[string]NodeDefinition
	alternates  map[string]string // alternate name -> canonical name
}

// NewStandardNodeRegistry creates an empty registry.
func NewStandardNodeRegistry() *StandardNodeRegistry {
	return &StandardNodeRegistry{
		definitions: make(map[string]NodeDefinition),
		alternates:  make(map[string]string),
	}
}

// Register adds or replaces the definition for canonicalName.
func (r *StandardNodeRegistry) Register(canonicalName string, def NodeDefinition) {
	r.definitions[canonicalName] = def
	for _, alt := range def.AlternateNames {
		r.alternates[alt] = canonicalName
	}
}

// GetStandardName returns the canonical name for name: name itself if it
// is already canonical or unknown, or the canonical name if name is a
// registered alternate.
func (r *StandardNodeRegistry) GetStandardName(name string) string {
	if _, ok := r.definitions[name]; ok {
		return name
	}
	if canonical, ok := r.alternates[name]; ok {
		return canonical
	}
	return name
}

// IsStandardName reports whether name is a registered canonical name.
func (r *StandardNodeRegistry) IsStandardName(name string) bool {
	_, ok := r.definitions[name]
	return ok
}

// IsAlternateName reports whether name is registered as an alternate of
// some canonical name.
func (r *StandardNodeRegistry) IsAlternateName(name string) bool {
	_, ok := r.alternates[name]
	return ok
}

// IsRecognizedName reports whether name is either canonical or an
// alternate.
func (r *StandardNodeRegistry) IsRecognizedName(name string) bool {
	return r.IsStandardName(name) || r.IsAlternateName(name)
}

// GetDefinition returns the definition for name (resolving alternates
// first) and whether it was found.
func (r *StandardNodeRegistry) GetDefinition(name string) (NodeDefinition, bool) {
	def, ok := r.definitions[r.GetStandardName(name)]
	return def, ok
}

// yamlFile is the on-disk shape loaded by LoadStandardNodeRegistryYAML:
// a map of canonical name -> definition fields.
type yamlFile struct {
	Nodes map[string]yamlNodeDefinition `yaml:"nodes"`
}

type yamlNodeDefinition struct {
	Category       string   `yaml:"category"`
	Subcategory    string   `yaml:"subcategory,omitempty"`
	Description    string   `yaml:"description,omitempty"`
	AlternateNames []string `yaml:"alternate_names,omitempty"`
	SignConvention string   `yaml:"sign_convention"`
}

// LoadStandardNodeRegistryYAML reads a YAML document of the form
//
//	nodes:
//	  revenue:
//	    category: income_statement
//	    sign_convention: positive
//	    alternate_names: [total_revenue, net_sales]
//
// and returns a populated StandardNodeRegistry.
func LoadStandardNodeRegistryYAML(r io.Reader) (*StandardNodeRegistry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula, "failed to read standard node registry", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula, "failed to parse standard node registry YAML", err)
	}

	registry := NewStandardNodeRegistry()
	for name, def := range file.Nodes {
		sign := SignConvention(def.SignConvention)
		if sign != SignPositive && sign != SignNegative {
			return nil, fsmerrors.New(fsmerrors.CodeInvalidFormula,
				fmt.Sprintf("node %q: sign_convention must be 'positive' or 'negative', got %q", name, def.SignConvention), nil)
		}
		registry.Register(name, NodeDefinition{
			Category:       def.Category,
			Subcategory:    def.Subcategory,
			Description:    def.Description,
			AlternateNames: def.AlternateNames,
			SignConvention: sign,
		})
	}
	return registry, nil
}
