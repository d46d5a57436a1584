// Package transform converts container payloads to editable representations and
// back. Structured payloads become sequences of records, tile payloads become
// sequences of pixel grids. Both directions are exact for every legal value:
// converting the output of a decode back yields the original payload.
package transform

import (
	"encoding/binary"
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
)

// Record is one decoded entity. Values are stored in the order of the schema
// field table, Remainder holds the record bytes that no field covers in offset
// order. The position of a record in its sequence is its identity.
type Record struct {
	Index     int
	Values    []int64
	Remainder []byte
}

// Get returns the value of the named field.
func (r Record) Get(s *schema.Schema, name string) (int64, error) {
	_, i, ok := s.Field(name)
	if !ok || i >= len(r.Values) {
		return 0, fmt.Errorf("schema '%s' has no field '%s'", s.Name, name)
	}
	return r.Values[i], nil
}

// Set changes the value of the named field. Range policy is left to the
// validator, Set only rejects unknown fields.
func (r *Record) Set(s *schema.Schema, name string, value int64) error {
	_, i, ok := s.Field(name)
	if !ok || i >= len(r.Values) {
		return fmt.Errorf("schema '%s' has no field '%s'", s.Name, name)
	}
	r.Values[i] = value
	return nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	return Record{
		Index:     r.Index,
		Values:    append([]int64(nil), r.Values...),
		Remainder: append([]byte(nil), r.Remainder...),
	}
}

// CloneRecords returns a deep copy of a record sequence.
func CloneRecords(records []Record) []Record {
	clones := make([]Record, len(records))
	for i, r := range records {
		clones[i] = r.Clone()
	}
	return clones
}

// Warning reports a field value outside of its declared range found while
// decoding. Malformed source data stays representable for inspection.
type Warning struct {
	Index int
	Field string
	Value int64
	Min   int64
	Max   int64
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d field '%s' value %d outside [%d,%d]", w.Index, w.Field, w.Value, w.Min, w.Max)
}

// ToRecords decodes the payload of a container into records.
func ToRecords(c *container.Container, s *schema.Schema) ([]Record, []Warning, error) {
	if err := c.Conforms(s); err != nil {
		return nil, nil, err
	}
	return DecodeRecords(c.Payload, s)
}

// DecodeRecords decodes a payload of RecordCount records of RecordSize bytes.
func DecodeRecords(payload []byte, s *schema.Schema) ([]Record, []Warning, error) {
	if s.Kind != schema.Records {
		return nil, nil, romerr.Formatf("", "schema '%s' of kind %s does not hold records", s.Name, s.Kind)
	}
	if len(payload) != s.PayloadSize() {
		return nil, nil, romerr.Formatf("", "payload of %d bytes does not hold %d records of %d bytes",
			len(payload), s.RecordCount, s.RecordSize)
	}

	records := make([]Record, s.RecordCount)
	var warnings []Warning
	for i := range records {
		chunk := payload[i*s.RecordSize : (i+1)*s.RecordSize]
		record, err := decodeRecord(chunk, s)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		record.Index = i
		records[i] = record

		for j, f := range s.Fields {
			if v := record.Values[j]; !f.InRange(v) {
				warnings = append(warnings, Warning{Index: i, Field: f.Name, Value: v, Min: f.Min, Max: f.Max})
			}
		}
	}
	return records, warnings, nil
}

func decodeRecord(chunk []byte, s *schema.Schema) (Record, error) {
	if len(chunk) < s.RecordSize {
		return Record{}, romerr.Formatf("", "truncated record of %d bytes, expected %d", len(chunk), s.RecordSize)
	}

	r := Record{
		Values:    make([]int64, len(s.Fields)),
		Remainder: make([]byte, 0, s.RemainderSize()),
	}
	for i, f := range s.Fields {
		r.Values[i] = decodeField(chunk[f.Offset:f.Offset+f.Width], f)
	}
	for i, covered := range s.Covered() {
		if !covered {
			r.Remainder = append(r.Remainder, chunk[i])
		}
	}
	return r, nil
}

// FromRecords encodes records back into a payload. The record count must match
// the schema exactly and every value must fit its field width.
func FromRecords(records []Record, s *schema.Schema) ([]byte, error) {
	if s.Kind != schema.Records {
		return nil, romerr.Formatf("", "schema '%s' of kind %s does not hold records", s.Name, s.Kind)
	}
	if len(records) != s.RecordCount {
		return nil, &romerr.RangeError{
			Record: -1,
			Reason: fmt.Sprintf("%d records given, schema '%s' declares %d", len(records), s.Name, s.RecordCount),
		}
	}

	payload := make([]byte, s.PayloadSize())
	for i, r := range records {
		if err := encodeRecord(payload[i*s.RecordSize:(i+1)*s.RecordSize], i, r, s); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func encodeRecord(dst []byte, index int, r Record, s *schema.Schema) error {
	if len(r.Values) != len(s.Fields) {
		return romerr.Formatf("", "record %d has %d values, schema '%s' declares %d fields",
			index, len(r.Values), s.Name, len(s.Fields))
	}
	if len(r.Remainder) != s.RemainderSize() {
		return romerr.Formatf("", "record %d has %d remainder bytes, schema '%s' needs %d",
			index, len(r.Remainder), s.Name, s.RemainderSize())
	}

	next := 0
	for i, covered := range s.Covered() {
		if !covered {
			dst[i] = r.Remainder[next]
			next++
		}
	}
	for i, f := range s.Fields {
		v := r.Values[i]
		if lo, hi := f.Capacity(); v < lo || v > hi {
			return &romerr.RangeError{Record: index, Field: f.Name, Value: v, Min: lo, Max: hi}
		}
		encodeField(dst[f.Offset:f.Offset+f.Width], f, v)
	}
	return nil
}

func byteOrder(f schema.Field) binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decodeField(b []byte, f schema.Field) int64 {
	order := byteOrder(f)
	switch f.Width {
	case 1:
		if f.Signed {
			return int64(int8(b[0]))
		}
		return int64(b[0])
	case 2:
		v := order.Uint16(b)
		if f.Signed {
			return int64(int16(v))
		}
		return int64(v)
	default:
		v := order.Uint32(b)
		if f.Signed {
			return int64(int32(v))
		}
		return int64(v)
	}
}

func encodeField(dst []byte, f schema.Field, v int64) {
	order := byteOrder(f)
	switch f.Width {
	case 1:
		dst[0] = byte(v)
	case 2:
		order.PutUint16(dst, uint16(v))
	default:
		order.PutUint32(dst, uint32(v))
	}
}
