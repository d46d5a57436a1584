// Package schema declares the record layouts of the data stored in the ROM.
//
// A Schema describes one data type: the size and exact number of its records,
// the field table of a record and the ROM offset of the first record. Schemas
// are fixed configuration and are never mutated once a Registry is built.
package schema

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// DataType is the tag stored in a container header that selects the schema.
type DataType uint8

// Data types of the default registry.
const (
	Monsters        DataType = 1
	Spells          DataType = 2
	Equipment       DataType = 3
	SpriteTiles     DataType = 4
	BackgroundTiles DataType = 5
)

var dataTypeNames = map[DataType]string{
	Monsters:        "monsters",
	Spells:          "spells",
	Equipment:       "equipment",
	SpriteTiles:     "tiles_sprites",
	BackgroundTiles: "tiles_background",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type_%d", uint8(t))
}

// Kind selects how the payload of a schema is interpreted.
type Kind string

const (
	// Records payloads are decoded field by field.
	Records Kind = "records"
	// Tiles payloads are 2bpp planar 8x8 tiles of 16 bytes each.
	Tiles Kind = "tiles"
)

// TileSize is the record size of a tile schema.
const TileSize = 16

// Field describes one numeric field inside a record.
// A field with Min and Max both zero accepts the full range of its width,
// unless Bounded is set. Fields read from YAML are bounded as soon as min or
// max is given, a missing bound is the capacity of the width.
type Field struct {
	Name      string `yaml:"name"`
	Offset    int    `yaml:"offset"`
	Width     int    `yaml:"width"`
	Signed    bool   `yaml:"signed,omitempty"`
	BigEndian bool   `yaml:"big_endian,omitempty"`
	Min       int64  `yaml:"min"`
	Max       int64  `yaml:"max"`

	// Bounded marks Min and Max as declared, [0,0] is then a fixed value.
	Bounded bool `yaml:"-"`
}

var fieldKeys = map[string]struct{}{
	"name": {}, "offset": {}, "width": {}, "signed": {}, "big_endian": {}, "min": {}, "max": {},
}

// UnmarshalYAML decodes a field and tracks which bounds were declared.
func (f *Field) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if _, ok := fieldKeys[key.Value]; !ok {
				return fmt.Errorf("line %d: field key '%s' not known", key.Line, key.Value)
			}
		}
	}

	var raw struct {
		Name      string `yaml:"name"`
		Offset    int    `yaml:"offset"`
		Width     int    `yaml:"width"`
		Signed    bool   `yaml:"signed"`
		BigEndian bool   `yaml:"big_endian"`
		Min       *int64 `yaml:"min"`
		Max       *int64 `yaml:"max"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*f = Field{
		Name:      raw.Name,
		Offset:    raw.Offset,
		Width:     raw.Width,
		Signed:    raw.Signed,
		BigEndian: raw.BigEndian,
	}
	if raw.Min == nil && raw.Max == nil {
		return nil
	}

	f.Bounded = true
	lo, hi := f.Capacity()
	f.Min, f.Max = lo, hi
	if raw.Min != nil {
		f.Min = *raw.Min
	}
	if raw.Max != nil {
		f.Max = *raw.Max
	}
	return nil
}

// Capacity returns the smallest and largest value the field width can store.
func (f Field) Capacity() (int64, int64) {
	bits := uint(f.Width * 8)
	if f.Signed {
		return -(1 << (bits - 1)), 1<<(bits-1) - 1
	}
	if bits >= 64 {
		return 0, math.MaxInt64
	}
	return 0, 1<<bits - 1
}

// InRange reports whether v lies inside the declared legal range.
func (f Field) InRange(v int64) bool {
	return v >= f.Min && v <= f.Max
}

// Schema is the declarative layout of one data type.
type Schema struct {
	Type        DataType `yaml:"type"`
	Name        string   `yaml:"name"`
	Kind        Kind     `yaml:"kind"`
	RecordSize  int      `yaml:"record_size"`
	RecordCount int      `yaml:"record_count"`
	ROMOffset   int      `yaml:"rom_offset"`
	Fields      []Field  `yaml:"fields,omitempty"`

	// Overrides relocates single records to an absolute ROM offset instead of
	// their slot inside the contiguous table.
	Overrides map[int]int `yaml:"overrides,omitempty"`

	// Labels are display names of the records, indexed by record position.
	Labels []string `yaml:"labels,omitempty"`

	covered []bool
}

// PayloadSize returns the exact payload length of a container of this schema.
func (s *Schema) PayloadSize() int {
	return s.RecordSize * s.RecordCount
}

// RecordOffset returns the absolute ROM offset of the record at index.
func (s *Schema) RecordOffset(index int) int {
	if offset, ok := s.Overrides[index]; ok {
		return offset
	}
	return s.ROMOffset + index*s.RecordSize
}

// Field returns the field with the given name and its position in the field table.
func (s *Schema) Field(name string) (Field, int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// Label returns the display name of a record or an empty string.
func (s *Schema) Label(index int) string {
	if index < 0 || index >= len(s.Labels) {
		return ""
	}
	return s.Labels[index]
}

// Covered returns a mask marking the record bytes that belong to a field.
// Bytes that are not covered form the raw remainder of a record.
func (s *Schema) Covered() []bool {
	if s.covered != nil {
		return s.covered
	}
	covered := make([]bool, s.RecordSize)
	for _, f := range s.Fields {
		for b := f.Offset; b < f.Offset+f.Width && b < s.RecordSize; b++ {
			if b >= 0 {
				covered[b] = true
			}
		}
	}
	return covered
}

// RemainderSize returns the number of record bytes not covered by any field.
func (s *Schema) RemainderSize() int {
	n := 0
	for _, c := range s.Covered() {
		if !c {
			n++
		}
	}
	return n
}

// Region is a half open byte range [Start, End) of the ROM image.
type Region struct {
	Start int
	End   int
}

// Overlaps reports whether both regions share at least one byte.
func (r Region) Overlaps(other Region) bool {
	return r.Start < other.End && other.Start < r.End
}

// Regions returns all ROM ranges that this schema reads from and writes to.
func (s *Schema) Regions() []Region {
	regions := []Region{{Start: s.ROMOffset, End: s.ROMOffset + s.PayloadSize()}}
	indexes := make([]int, 0, len(s.Overrides))
	for index := range s.Overrides {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		offset := s.Overrides[index]
		regions = append(regions, Region{Start: offset, End: offset + s.RecordSize})
	}
	return regions
}

// Validate checks the schema declaration and prepares derived lookup data.
// Fields with an empty legal range are widened to the capacity of their width.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema of type %d has no name", s.Type)
	}
	if s.RecordSize <= 0 || s.RecordCount <= 0 {
		return fmt.Errorf("schema '%s': record size and count must be positive", s.Name)
	}
	if s.ROMOffset < 0 {
		return fmt.Errorf("schema '%s': negative ROM offset", s.Name)
	}

	switch s.Kind {
	case Records:
	case Tiles:
		if s.RecordSize != TileSize {
			return fmt.Errorf("schema '%s': tile records must be %d bytes", s.Name, TileSize)
		}
		if len(s.Fields) > 0 {
			return fmt.Errorf("schema '%s': tile schemas can not declare fields", s.Name)
		}
	default:
		return fmt.Errorf("schema '%s': unsupported kind '%s'", s.Name, s.Kind)
	}

	if err := s.validateFields(); err != nil {
		return err
	}

	for index, offset := range s.Overrides {
		if index < 0 || index >= s.RecordCount {
			return fmt.Errorf("schema '%s': override for record %d outside of %d records", s.Name, index, s.RecordCount)
		}
		if offset < 0 {
			return fmt.Errorf("schema '%s': override for record %d has negative offset", s.Name, index)
		}
	}
	if len(s.Labels) > s.RecordCount {
		return fmt.Errorf("schema '%s': %d labels for %d records", s.Name, len(s.Labels), s.RecordCount)
	}
	return nil
}

func (s *Schema) validateFields() error {
	covered := make([]bool, s.RecordSize)
	names := make(map[string]struct{}, len(s.Fields))

	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("schema '%s': field %d has no name", s.Name, i)
		}
		if _, ok := names[f.Name]; ok {
			return fmt.Errorf("schema '%s': duplicate field '%s'", s.Name, f.Name)
		}
		names[f.Name] = struct{}{}

		switch f.Width {
		case 1, 2, 4:
		default:
			return fmt.Errorf("schema '%s': field '%s' has unsupported width %d", s.Name, f.Name, f.Width)
		}
		if f.Offset < 0 || f.Offset+f.Width > s.RecordSize {
			return fmt.Errorf("schema '%s': field '%s' lies outside the %d byte record", s.Name, f.Name, s.RecordSize)
		}

		lo, hi := f.Capacity()
		if !f.Bounded && f.Min == 0 && f.Max == 0 {
			f.Min, f.Max = lo, hi
		}
		f.Bounded = true
		if f.Min > f.Max || f.Min < lo || f.Max > hi {
			return fmt.Errorf("schema '%s': field '%s' range [%d,%d] does not fit width %d",
				s.Name, f.Name, f.Min, f.Max, f.Width)
		}

		for b := f.Offset; b < f.Offset+f.Width; b++ {
			if covered[b] {
				return fmt.Errorf("schema '%s': field '%s' overlaps another field at byte %d", s.Name, f.Name, b)
			}
			covered[b] = true
		}
	}

	s.covered = covered
	return nil
}
