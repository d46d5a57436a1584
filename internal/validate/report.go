package validate

import (
	"errors"
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/tile"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
)

// Violation is a single failed check. Index is -1 for violations of an
// extension that are not tied to one record.
type Violation struct {
	Index  int
	Field  string
	Value  int64
	Min    int64
	Max    int64
	Reason string
}

func (v Violation) String() string {
	switch {
	case v.Reason != "" && v.Index >= 0:
		return fmt.Sprintf("record %d: %s", v.Index, v.Reason)
	case v.Reason != "":
		return v.Reason
	default:
		return fmt.Sprintf("record %d field '%s' value %d outside [%d,%d]", v.Index, v.Field, v.Value, v.Min, v.Max)
	}
}

func (v Violation) err() error {
	if v.Reason != "" {
		return &romerr.RangeError{Record: v.Index, Field: v.Field, Value: v.Value, Reason: v.String()}
	}
	return &romerr.RangeError{Record: v.Index, Field: v.Field, Value: v.Value, Min: v.Min, Max: v.Max}
}

// Result is the outcome of the field checks of one record.
type Result struct {
	Index      int
	Label      string
	Violations []Violation
}

// OK reports whether the record passed all field checks.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Report collects the results of a validation run.
type Report struct {
	DataType   schema.DataType
	Mode       Mode
	Results    []Result
	Extensions []Violation
}

// Violations returns all violations in record order followed by the ones of
// extension checks.
func (r *Report) Violations() []Violation {
	var violations []Violation
	for _, result := range r.Results {
		violations = append(violations, result.Violations...)
	}
	return append(violations, r.Extensions...)
}

// OK reports whether no violation was found.
func (r *Report) OK() bool {
	return len(r.Violations()) == 0
}

// Err returns nil for a clean report, otherwise a range error per violation
// joined into one error.
func (r *Report) Err() error {
	violations := r.Violations()
	if len(violations) == 0 {
		return nil
	}
	errs := make([]error, len(violations))
	for i, v := range violations {
		errs[i] = v.err()
	}
	return errors.Join(errs...)
}

// Validated is the proof that a record or tile sequence passed validation.
// It can only be created by a Validator and holds its own copy of the data.
type Validated struct {
	schema  *schema.Schema
	records []transform.Record
	grids   []tile.Grid
}

// Schema returns the schema the data was validated against.
func (v *Validated) Schema() *schema.Schema {
	if v == nil {
		return nil
	}
	return v.schema
}

// Records returns a copy of the validated records.
func (v *Validated) Records() []transform.Record {
	if v == nil || v.records == nil {
		return nil
	}
	return transform.CloneRecords(v.records)
}

// Grids returns a copy of the validated tiles.
func (v *Validated) Grids() []tile.Grid {
	if v == nil || v.grids == nil {
		return nil
	}
	return append([]tile.Grid(nil), v.grids...)
}
