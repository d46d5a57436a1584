package gamedata

import (
	"errors"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/validate"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestRegisterAcceptsDefaultSchemas(t *testing.T) {
	v := validate.New(log.NewTestLogger(t), validate.Strict)
	Register(v)

	for _, dataType := range []schema.DataType{schema.Monsters, schema.Spells, schema.Equipment} {
		s, _, records := decode(t, dataType)
		validated, report, err := v.Validate(records, s)
		assert.NoError(t, err, s.Name)
		assert.True(t, report.OK())
		assert.NotNil(t, validated)
	}
}

func TestRegisterReportsRenamedField(t *testing.T) {
	s := &schema.Schema{
		Type: schema.Spells, Name: "spells", Kind: schema.Records, RecordSize: 1, RecordCount: 10,
		ROMOffset: 0x1D63, Fields: []schema.Field{{Name: "cost", Offset: 0, Width: 1, Max: 255}},
	}
	records := make([]transform.Record, 10)
	for i := range records {
		records[i] = transform.Record{Index: i, Values: []int64{int64(i)}}
	}

	v := validate.New(log.NewTestLogger(t), validate.Lenient)
	Register(v)
	validated, report, err := v.Validate(records, s)
	assert.True(t, errors.Is(err, romerr.ErrRange))
	assert.Nil(t, validated)
	assert.Len(t, report.Extensions, 1)
	assert.Equal(t, 0, report.Extensions[0].Index)
	assert.Contains(t, report.Extensions[0].Reason, "typed view")
}

func TestRegisterReportsWidenedField(t *testing.T) {
	s := &schema.Schema{
		Type: schema.Spells, Name: "spells", Kind: schema.Records, RecordSize: 2, RecordCount: 2,
		ROMOffset: 0x1D63, Fields: []schema.Field{{Name: "mp_cost", Offset: 0, Width: 2, Max: 1000}},
	}
	records := []transform.Record{
		{Index: 0, Values: []int64{4}},
		{Index: 1, Values: []int64{300}},
	}

	v := validate.New(log.NewTestLogger(t), validate.Lenient)
	Register(v)
	_, report, err := v.Validate(records, s)
	assert.True(t, errors.Is(err, romerr.ErrRange))
	assert.Len(t, report.Extensions, 1)
	assert.Equal(t, 1, report.Extensions[0].Index)
	assert.Contains(t, report.Extensions[0].Reason, "value 300")
}
