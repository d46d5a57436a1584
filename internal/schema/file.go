package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML document that declares a custom registry.
type File struct {
	Profile Profile   `yaml:"profile"`
	Schemas []*Schema `yaml:"schemas"`
}

// Load reads a registry declaration from a YAML document.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding schema file: %w", err)
	}
	if len(f.Schemas) == 0 {
		return nil, fmt.Errorf("schema file declares no schemas")
	}
	return NewRegistry(f.Profile, f.Schemas...)
}

// LoadFile reads a registry declaration from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file '%s': %w", path, err)
	}
	r, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading schema file '%s': %w", path, err)
	}
	return r, nil
}

// Marshal returns the YAML declaration of a registry.
func Marshal(r *Registry) ([]byte, error) {
	f := File{
		Profile: r.Profile(),
		Schemas: r.All(),
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding schema file: %w", err)
	}
	return data, nil
}
