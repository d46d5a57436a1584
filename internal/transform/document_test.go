package transform

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/extract"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/testrom"
	"github.com/retroenv/retrogolib/assert"
)

func TestDocumentRoundTrip(t *testing.T) {
	rom := testrom.DragonWarrior(7)

	for _, s := range recordSchemas(t) {
		t.Run(s.Name, func(t *testing.T) {
			payload, err := extract.Payload(rom, s)
			assert.NoError(t, err)
			records, _, err := DecodeRecords(payload, s)
			assert.NoError(t, err)

			var buf bytes.Buffer
			assert.NoError(t, EncodeDocument(&buf, NewDocument(s, records)))

			doc, err := DecodeDocument(&buf)
			assert.NoError(t, err)
			decoded, err := doc.Decode(s)
			assert.NoError(t, err)

			encoded, err := FromRecords(decoded, s)
			assert.NoError(t, err)
			assert.True(t, bytes.Equal(payload, encoded))
		})
	}
}

func TestDocumentKeepsFieldOrder(t *testing.T) {
	monsters, err := schema.DragonWarrior().Lookup(schema.Monsters)
	assert.NoError(t, err)
	records, _, err := DecodeRecords(make([]byte, monsters.PayloadSize()), monsters)
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, EncodeDocument(&buf, NewDocument(monsters, records)))
	text := buf.String()

	attack := strings.Index(text, `"attack"`)
	hp := strings.Index(text, `"hp"`)
	gold := strings.Index(text, `"gold"`)
	assert.True(t, attack >= 0 && attack < hp && hp < gold)
	assert.Contains(t, text, `"label": "Slime"`)
	assert.Contains(t, text, `"remainder": "0000000000000000"`)
}

//nolint:funlen // table tests can be long
func TestDocumentRecordsErrors(t *testing.T) {
	spells, err := schema.DragonWarrior().Lookup(schema.Spells)
	assert.NoError(t, err)

	valid := func() *Document {
		records, _, err := DecodeRecords(make([]byte, spells.PayloadSize()), spells)
		assert.NoError(t, err)
		return NewDocument(spells, records)
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
		text   string
	}{
		{
			name:   "wrong format",
			mutate: func(d *Document) { d.Format = "csv" },
			text:   "unsupported document format",
		},
		{
			name:   "wrong version",
			mutate: func(d *Document) { d.Version = 2 },
			text:   "unsupported document version",
		},
		{
			name:   "wrong data type",
			mutate: func(d *Document) { d.DataType = schema.Monsters },
			text:   "data type",
		},
		{
			name:   "moved location",
			mutate: func(d *Document) { d.SourceOffset = 0x5E5B },
			text:   "located at 0x1D63",
		},
		{
			name:   "reordered records",
			mutate: func(d *Document) { d.Records[0], d.Records[1] = d.Records[1], d.Records[0] },
			text:   "can not be reordered",
		},
		{
			name:   "unknown field",
			mutate: func(d *Document) { d.Records[2].Fields = append(d.Records[2].Fields, FieldValue{Name: "power"}) },
			text:   "unknown field 'power'",
		},
		{
			name:   "missing field",
			mutate: func(d *Document) { d.Records[2].Fields = nil },
			text:   "missing field 'mp_cost'",
		},
		{
			name:   "bad remainder",
			mutate: func(d *Document) { d.Records[2].Remainder = "zz" },
			text:   "invalid remainder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			_, err := d.Decode(spells)
			assert.True(t, errors.Is(err, romerr.ErrFormat))
			assert.ErrorContains(t, err, tt.text)
		})
	}
}

func TestDecodeDocumentInvalidJSON(t *testing.T) {
	_, err := DecodeDocument(strings.NewReader("{"))
	assert.True(t, errors.Is(err, romerr.ErrFormat))
}

func TestDocumentAllowsCardinalityChanges(t *testing.T) {
	spells, err := schema.DragonWarrior().Lookup(schema.Spells)
	assert.NoError(t, err)
	records, _, err := DecodeRecords(make([]byte, spells.PayloadSize()), spells)
	assert.NoError(t, err)

	d := NewDocument(spells, records[:9])
	decoded, err := d.Decode(spells)
	assert.NoError(t, err)
	assert.Len(t, decoded, 9)
}
