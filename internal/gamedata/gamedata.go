// Package gamedata provides typed views of the records of the default registry.
// The validator uses them to reject records that a typed consumer of the game
// data could not represent.
package gamedata

import (
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
)

// Monster is one entry of the monster statistics table.
type Monster struct {
	Index        int
	Name         string
	Attack       uint8
	Defense      uint8
	HP           uint8
	SpellPattern uint8
	Resistance   uint8
	Evasion      uint8
	Experience   uint8
	Gold         uint8
	Unknown      []byte
}

// Spell is one entry of the spell cost table.
type Spell struct {
	Index  int
	Name   string
	MPCost uint8
}

// Equipment is one entry of the equipment price table.
type Equipment struct {
	Index int
	Name  string
	Price uint16
}

// fieldReader collects the values of a record by field name and remembers the
// first lookup failure.
type fieldReader struct {
	s   *schema.Schema
	r   transform.Record
	err error
}

func (fr *fieldReader) get(name string) int64 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.Get(fr.s, name)
	if err != nil {
		fr.err = err
	}
	return v
}

func (fr *fieldReader) u8(name string) uint8 {
	return uint8(fr.bounded(name, 0xFF))
}

func (fr *fieldReader) u16(name string) uint16 {
	return uint16(fr.bounded(name, 0xFFFF))
}

// bounded returns the field value if it fits the typed view, values wider
// than the view are a lookup failure instead of being truncated.
func (fr *fieldReader) bounded(name string, limit int64) int64 {
	v := fr.get(name)
	if fr.err == nil && (v < 0 || v > limit) {
		fr.err = fmt.Errorf("field '%s' value %d does not fit into [0,%d]", name, v, limit)
		return 0
	}
	return v
}

func checkType(s *schema.Schema, expected schema.DataType) error {
	if s.Type != expected {
		return fmt.Errorf("schema '%s' holds %s, expected %s", s.Name, s.Type, expected)
	}
	return nil
}

// MonsterFromRecord converts a decoded monster record.
func MonsterFromRecord(s *schema.Schema, r transform.Record) (Monster, error) {
	if err := checkType(s, schema.Monsters); err != nil {
		return Monster{}, err
	}
	fr := &fieldReader{s: s, r: r}
	m := Monster{
		Index:        r.Index,
		Name:         s.Label(r.Index),
		Attack:       fr.u8("attack"),
		Defense:      fr.u8("defense"),
		HP:           fr.u8("hp"),
		SpellPattern: fr.u8("spell_pattern"),
		Resistance:   fr.u8("resistance"),
		Evasion:      fr.u8("evasion"),
		Experience:   fr.u8("experience"),
		Gold:         fr.u8("gold"),
		Unknown:      append([]byte(nil), r.Remainder...),
	}
	return m, fr.err
}

// SpellFromRecord converts a decoded spell record.
func SpellFromRecord(s *schema.Schema, r transform.Record) (Spell, error) {
	if err := checkType(s, schema.Spells); err != nil {
		return Spell{}, err
	}
	fr := &fieldReader{s: s, r: r}
	sp := Spell{
		Index:  r.Index,
		Name:   s.Label(r.Index),
		MPCost: fr.u8("mp_cost"),
	}
	return sp, fr.err
}

// EquipmentFromRecord converts a decoded equipment record.
func EquipmentFromRecord(s *schema.Schema, r transform.Record) (Equipment, error) {
	if err := checkType(s, schema.Equipment); err != nil {
		return Equipment{}, err
	}
	fr := &fieldReader{s: s, r: r}
	e := Equipment{
		Index: r.Index,
		Name:  s.Label(r.Index),
		Price: fr.u16("price"),
	}
	return e, fr.err
}
