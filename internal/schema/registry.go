package schema

import (
	"bytes"
	"fmt"
	"sort"
)

// Profile describes the ROM image layout that a registry is declared against.
type Profile struct {
	Name      string `yaml:"name"`
	Size      int    `yaml:"size"`
	Signature string `yaml:"signature"`
}

// Check runs the minimal structural sanity check of a ROM image: the image has
// the expected total size and starts with the expected signature.
// Zero values in the profile disable the corresponding check.
func (p Profile) Check(image []byte) error {
	if p.Size > 0 && len(image) != p.Size {
		return fmt.Errorf("ROM image is %d bytes but profile '%s' expects %d", len(image), p.Name, p.Size)
	}
	if len(p.Signature) > 0 && !bytes.HasPrefix(image, []byte(p.Signature)) {
		return fmt.Errorf("ROM image does not start with the signature of profile '%s'", p.Name)
	}
	return nil
}

// Registry holds the schemas of all data types of one ROM profile.
type Registry struct {
	profile Profile
	schemas map[DataType]*Schema
	types   []DataType
}

// NewRegistry validates all schemas and returns a registry containing them.
// Declaring the same data type twice or overlapping ROM regions between two
// schemas is a configuration error.
func NewRegistry(profile Profile, schemas ...*Schema) (*Registry, error) {
	r := &Registry{
		profile: profile,
		schemas: make(map[DataType]*Schema, len(schemas)),
	}

	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.schemas[s.Type]; ok {
			return nil, fmt.Errorf("data type %d declared twice", s.Type)
		}
		if profile.Size > 0 {
			for _, region := range s.Regions() {
				if region.End > profile.Size {
					return nil, fmt.Errorf("schema '%s': region 0x%X-0x%X exceeds ROM size 0x%X",
						s.Name, region.Start, region.End, profile.Size)
				}
			}
		}
		r.schemas[s.Type] = s
		r.types = append(r.types, s.Type)
	}
	sort.Slice(r.types, func(i, j int) bool { return r.types[i] < r.types[j] })

	if err := r.checkOverlaps(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) checkOverlaps() error {
	all := r.All()
	for i, a := range all {
		for _, b := range all[i+1:] {
			for _, ra := range a.Regions() {
				for _, rb := range b.Regions() {
					if ra.Overlaps(rb) {
						return fmt.Errorf("schemas '%s' and '%s' overlap at ROM range 0x%X-0x%X",
							a.Name, b.Name, max(ra.Start, rb.Start), min(ra.End, rb.End))
					}
				}
			}
		}
	}
	return nil
}

// Profile returns the ROM profile of the registry.
func (r *Registry) Profile() Profile {
	return r.profile
}

// Lookup returns the schema of a data type.
func (r *Registry) Lookup(t DataType) (*Schema, error) {
	s, ok := r.schemas[t]
	if !ok {
		return nil, fmt.Errorf("no schema registered for data type %d", t)
	}
	return s, nil
}

// ByName returns the schema with the given name.
func (r *Registry) ByName(name string) (*Schema, error) {
	for _, t := range r.types {
		if s := r.schemas[t]; s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no schema named '%s'", name)
}

// All returns all schemas ordered by data type.
func (r *Registry) All() []*Schema {
	schemas := make([]*Schema, 0, len(r.types))
	for _, t := range r.types {
		schemas = append(schemas, r.schemas[t])
	}
	return schemas
}
