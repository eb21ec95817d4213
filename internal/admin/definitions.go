package admin

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a resource layout. The DAO is supplied in
// code when the definition is built.
type Definition struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	IDField     string   `yaml:"id_field"`
	Icon        string   `yaml:"icon"`
	PageSize    int      `yaml:"page_size"`
	Columns     []Column `yaml:"columns"`
	Fields      []Field  `yaml:"fields"`
}

// Build validates the definition against dao.
func (d Definition) Build(dao DAO) (*Resource, error) {
	return NewResource(ResourceOptions{
		Name:        d.Name,
		DisplayName: d.DisplayName,
		DAO:         dao,
		Columns:     d.Columns,
		Fields:      d.Fields,
		IDField:     d.IDField,
		Icon:        d.Icon,
		PageSize:    d.PageSize,
	})
}

// Definitions is a parsed definitions document.
type Definitions struct {
	Resources []Definition `yaml:"resources"`
}

// Find returns the definition with the given name.
func (d Definitions) Find(name string) (Definition, bool) {
	for _, def := range d.Resources {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// ParseDefinitions decodes a YAML definitions document. Unknown keys are
// rejected so typos surface at startup.
func ParseDefinitions(data []byte) (Definitions, error) {
	var defs Definitions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return Definitions{}, fmt.Errorf("decode admin definitions: %w", err)
	}
	seen := map[string]bool{}
	for _, def := range defs.Resources {
		if seen[def.Name] {
			return Definitions{}, fmt.Errorf("%w: %s", ErrDuplicateResource, def.Name)
		}
		seen[def.Name] = true
	}
	return defs, nil
}

// LoadDefinitions reads and parses a definitions file.
func LoadDefinitions(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("read admin definitions %s: %w", path, err)
	}
	return ParseDefinitions(data)
}
