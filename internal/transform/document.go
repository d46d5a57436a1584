package transform

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/goccy/go-json"
)

// DocumentFormat identifies record documents.
const DocumentFormat = "dwif-records"

// DocumentVersion is the current record document revision.
const DocumentVersion = 1

// Document is the editable text representation of a record sequence.
type Document struct {
	Format       string           `json:"format"`
	Version      int              `json:"version"`
	DataType     schema.DataType  `json:"data_type"`
	Schema       string           `json:"schema"`
	SourceOffset int              `json:"source_offset"`
	RecordCount  int              `json:"record_count"`
	Records      []DocumentRecord `json:"records"`
}

// DocumentRecord is one record of a document. Label is informational and
// ignored when the document is read back.
type DocumentRecord struct {
	Index     int         `json:"index"`
	Label     string      `json:"label,omitempty"`
	Fields    FieldValues `json:"fields"`
	Remainder string      `json:"remainder,omitempty"`
}

// FieldValue is a named field value.
type FieldValue struct {
	Name  string
	Value int64
}

// FieldValues is encoded as a JSON object that keeps the field order.
type FieldValues []FieldValue

// MarshalJSON writes the fields as an object in slice order.
func (fv FieldValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fv {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		_, _ = fmt.Fprintf(&buf, "%d", f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a field object. The resulting order is by name, records
// are rebuilt in schema order.
func (fv *FieldValues) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	values := make(FieldValues, 0, len(m))
	for name, value := range m {
		values = append(values, FieldValue{Name: name, Value: value})
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	*fv = values
	return nil
}

// NewDocument builds the document of a record sequence.
func NewDocument(s *schema.Schema, records []Record) *Document {
	doc := &Document{
		Format:       DocumentFormat,
		Version:      DocumentVersion,
		DataType:     s.Type,
		Schema:       s.Name,
		SourceOffset: s.ROMOffset,
		RecordCount:  len(records),
		Records:      make([]DocumentRecord, len(records)),
	}

	for i, r := range records {
		fields := make(FieldValues, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = FieldValue{Name: f.Name, Value: r.Values[j]}
		}
		doc.Records[i] = DocumentRecord{
			Index:     i,
			Label:     s.Label(i),
			Fields:    fields,
			Remainder: hex.EncodeToString(r.Remainder),
		}
	}
	return doc
}

// Decode converts the document back into records of the schema. Every
// declared field must be present, unknown fields are rejected and the record
// indexes must match their positions.
func (d *Document) Decode(s *schema.Schema) ([]Record, error) {
	if d.Format != DocumentFormat {
		return nil, romerr.Formatf("", "unsupported document format '%s'", d.Format)
	}
	if d.Version != DocumentVersion {
		return nil, romerr.Formatf("", "unsupported document version %d", d.Version)
	}
	if d.DataType != s.Type {
		return nil, romerr.Formatf("", "document holds data type %s, expected %s", d.DataType, s.Type)
	}
	if d.SourceOffset != s.ROMOffset {
		return nil, romerr.Formatf("", "document was exported from offset 0x%X, schema '%s' is located at 0x%X",
			d.SourceOffset, s.Name, s.ROMOffset)
	}

	records := make([]Record, len(d.Records))
	for i, dr := range d.Records {
		if dr.Index != i {
			return nil, romerr.Formatf("", "record at position %d is labeled index %d, records can not be reordered", i, dr.Index)
		}

		r, err := dr.record(s)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		r.Index = i
		records[i] = r
	}
	return records, nil
}

func (dr DocumentRecord) record(s *schema.Schema) (Record, error) {
	values := make(map[string]int64, len(dr.Fields))
	for _, f := range dr.Fields {
		if _, _, ok := s.Field(f.Name); !ok {
			return Record{}, romerr.Formatf("", "unknown field '%s'", f.Name)
		}
		values[f.Name] = f.Value
	}

	r := Record{Values: make([]int64, len(s.Fields))}
	for i, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			return Record{}, romerr.Formatf("", "missing field '%s'", f.Name)
		}
		r.Values[i] = v
	}

	remainder, err := hex.DecodeString(dr.Remainder)
	if err != nil {
		return Record{}, romerr.Formatf("", "invalid remainder: %v", err)
	}
	if len(remainder) != s.RemainderSize() {
		return Record{}, romerr.Formatf("", "remainder has %d bytes, expected %d", len(remainder), s.RemainderSize())
	}
	r.Remainder = remainder
	return r, nil
}

// EncodeDocument writes a document as indented JSON.
func EncodeDocument(w io.Writer, d *Document) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// DecodeDocument reads a JSON document.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, romerr.Formatf("", "decoding document: %v", err)
	}
	return &d, nil
}
