package gamedata

import (
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/validate"
)

// Register adds checks to a validator that the records of the monster, spell
// and equipment tables convert to their typed form. Schemas loaded from a file
// may rename or drop fields the typed views rely on, such records are
// reported instead of being packaged.
func Register(v *validate.Validator) {
	v.Register(schema.Monsters, typedCheck(func(s *schema.Schema, r transform.Record) error {
		_, err := MonsterFromRecord(s, r)
		return err
	}))
	v.Register(schema.Spells, typedCheck(func(s *schema.Schema, r transform.Record) error {
		_, err := SpellFromRecord(s, r)
		return err
	}))
	v.Register(schema.Equipment, typedCheck(func(s *schema.Schema, r transform.Record) error {
		_, err := EquipmentFromRecord(s, r)
		return err
	}))
}

// typedCheck reports the first record that fails to convert. A failing
// conversion is a property of the schema, so later records would only repeat
// the same violation.
func typedCheck(convert func(*schema.Schema, transform.Record) error) validate.Extension {
	return func(s *schema.Schema, records []transform.Record) []validate.Violation {
		for _, r := range records {
			if err := convert(s, r); err != nil {
				return []validate.Violation{{
					Index:  r.Index,
					Reason: fmt.Sprintf("typed view: %v", err),
				}}
			}
		}
		return nil
	}
}
