// Package validate checks edited records and tiles before they are packaged.
//
// Cardinality and structural problems are hard errors. Field range violations
// are collected per record: strict mode stops at the first one, lenient mode
// reports all of them. Only a successful validation produces a Validated
// value, which is the single input the packager accepts.
package validate

import (
	"errors"
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/tile"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/retroenv/retrogolib/log"
)

// Mode selects how range violations are collected.
type Mode int

const (
	// Strict stops at the first violation.
	Strict Mode = iota
	// Lenient checks every record and reports all violations.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

// Extension is a schema specific check that runs after the field range checks,
// for example constraints that span multiple records.
type Extension func(s *schema.Schema, records []transform.Record) []Violation

// Validator checks record sequences against their schema.
type Validator struct {
	logger     *log.Logger
	mode       Mode
	extensions map[schema.DataType][]Extension
}

// New returns a validator working in the given mode.
func New(logger *log.Logger, mode Mode) *Validator {
	return &Validator{
		logger:     logger,
		mode:       mode,
		extensions: map[schema.DataType][]Extension{},
	}
}

// Register adds an extension check for a data type.
func (v *Validator) Register(dataType schema.DataType, ext Extension) {
	v.extensions[dataType] = append(v.extensions[dataType], ext)
}

// Mode returns the configured mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate checks the records against the schema. The records are never
// modified. On success the returned Validated holds a deep copy of them. The
// report is returned whenever the records could be checked, also together
// with a range error.
func (v *Validator) Validate(records []transform.Record, s *schema.Schema) (*Validated, *Report, error) {
	if s == nil {
		return nil, nil, errors.New("missing schema")
	}
	if s.Kind != schema.Records {
		return nil, nil, romerr.Formatf("", "schema '%s' of kind %s does not hold records", s.Name, s.Kind)
	}
	if err := checkCount(len(records), s); err != nil {
		return nil, nil, err
	}
	if err := checkShape(records, s); err != nil {
		return nil, nil, err
	}

	report := &Report{DataType: s.Type, Mode: v.mode}
	for i, r := range records {
		result := Result{Index: i, Label: s.Label(i)}
		for j, f := range s.Fields {
			value := r.Values[j]
			if f.InRange(value) {
				continue
			}
			result.Violations = append(result.Violations, Violation{
				Index: i,
				Field: f.Name,
				Value: value,
				Min:   f.Min,
				Max:   f.Max,
			})
			if v.mode == Strict {
				break
			}
		}
		report.Results = append(report.Results, result)

		if v.mode == Strict && !result.OK() {
			v.logReport(s, report)
			return nil, report, report.Err()
		}
	}

	for _, ext := range v.extensions[s.Type] {
		report.Extensions = append(report.Extensions, ext(s, records)...)
		if v.mode == Strict && len(report.Extensions) > 0 {
			break
		}
	}

	v.logReport(s, report)
	if err := report.Err(); err != nil {
		return nil, report, err
	}

	return &Validated{
		schema:  s,
		records: transform.CloneRecords(records),
	}, report, nil
}

// ValidateGrids checks a tile sequence against a tile schema. Pixel values
// outside of [0,3] are always hard errors.
func (v *Validator) ValidateGrids(grids []tile.Grid, s *schema.Schema) (*Validated, error) {
	if s == nil {
		return nil, errors.New("missing schema")
	}
	if s.Kind != schema.Tiles {
		return nil, romerr.Formatf("", "schema '%s' of kind %s does not hold tiles", s.Name, s.Kind)
	}
	if err := checkCount(len(grids), s); err != nil {
		return nil, err
	}

	for i := range grids {
		if err := grids[i].Validate(); err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
	}

	v.logger.Debug("Tiles validated",
		log.String("schema", s.Name),
		log.Int("tiles", len(grids)))

	return &Validated{
		schema: s,
		grids:  append([]tile.Grid(nil), grids...),
	}, nil
}

func (v *Validator) logReport(s *schema.Schema, report *Report) {
	violations := report.Violations()
	if len(violations) == 0 {
		v.logger.Debug("Records validated",
			log.String("schema", s.Name),
			log.Int("records", len(report.Results)))
		return
	}
	for _, violation := range violations {
		v.logger.Warn("Validation failed",
			log.String("schema", s.Name),
			log.String("violation", violation.String()))
	}
}

func checkCount(count int, s *schema.Schema) error {
	if count == s.RecordCount {
		return nil
	}
	return &romerr.RangeError{
		Record: -1,
		Reason: fmt.Sprintf("%d records given, schema '%s' requires exactly %d", count, s.Name, s.RecordCount),
	}
}

func checkShape(records []transform.Record, s *schema.Schema) error {
	remainder := s.RemainderSize()
	for i, r := range records {
		if len(r.Values) != len(s.Fields) {
			return romerr.Formatf("", "record %d has %d values, schema '%s' declares %d fields",
				i, len(r.Values), s.Name, len(s.Fields))
		}
		if len(r.Remainder) != remainder {
			return romerr.Formatf("", "record %d has %d remainder bytes, schema '%s' needs %d",
				i, len(r.Remainder), s.Name, remainder)
		}
	}
	return nil
}
