// Package romerr defines the error taxonomy shared by all pipeline stages.
//
// Every stage returns one of the typed errors below, wrapped with context using
// fmt.Errorf and %w. Callers match the category with errors.Is against the
// sentinel values or extract details with errors.As.
package romerr

import (
	"errors"
	"fmt"
)

// Sentinels used for errors.Is matching of the error categories.
var (
	ErrFormat   = errors.New("format error")
	ErrRange    = errors.New("range error")
	ErrChecksum = errors.New("checksum error")
	ErrBounds   = errors.New("bounds error")
	ErrIO       = errors.New("io error")
)

// FormatError reports a structural problem with a container or payload, for
// example bad magic, an unsupported major version or a payload length that does
// not match the record layout.
type FormatError struct {
	Source string // path or identity of the offending container, may be empty
	Reason string
}

func (e *FormatError) Error() string {
	if e.Source == "" {
		return "format error: " + e.Reason
	}
	return fmt.Sprintf("format error in '%s': %s", e.Source, e.Reason)
}

// Is reports whether target is the ErrFormat sentinel.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Formatf returns a new FormatError with a formatted reason.
func Formatf(source, format string, args ...any) *FormatError {
	return &FormatError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// RangeError reports a field value or record count outside the declared bounds.
// Record is -1 for errors that are not tied to a single record.
type RangeError struct {
	Record int
	Field  string
	Value  int64
	Min    int64
	Max    int64
	Reason string
}

func (e *RangeError) Error() string {
	switch {
	case e.Reason != "":
		return "range error: " + e.Reason
	case e.Record < 0:
		return fmt.Sprintf("range error: field '%s' value %d outside [%d,%d]", e.Field, e.Value, e.Min, e.Max)
	default:
		return fmt.Sprintf("range error: record %d field '%s' value %d outside [%d,%d]",
			e.Record, e.Field, e.Value, e.Min, e.Max)
	}
}

// Is reports whether target is the ErrRange sentinel.
func (e *RangeError) Is(target error) bool { return target == ErrRange }

// ChecksumError reports a payload whose checksum does not match the header.
type ChecksumError struct {
	Source   string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	msg := fmt.Sprintf("checksum mismatch, header 0x%08x but payload hashes to 0x%08x", e.Expected, e.Actual)
	if e.Source != "" {
		msg += fmt.Sprintf(" in '%s'", e.Source)
	}
	return msg
}

// Is reports whether target is the ErrChecksum sentinel.
func (e *ChecksumError) Is(target error) bool { return target == ErrChecksum }

// BoundsError reports a byte range that does not fit into an image.
type BoundsError struct {
	Offset int
	Length int
	Size   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bounds error: range 0x%X+0x%X exceeds image size 0x%X", e.Offset, e.Length, e.Size)
}

// Is reports whether target is the ErrBounds sentinel.
func (e *BoundsError) Is(target error) bool { return target == ErrBounds }

// IOError wraps a file system failure with the operation and path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
}

// Is reports whether target is the ErrIO sentinel.
func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.Err }

// CheckRange returns a BoundsError if offset+length does not fit into size.
func CheckRange(offset, length, size int) error {
	if offset < 0 || length < 0 || offset > size || length > size-offset {
		return &BoundsError{Offset: offset, Length: length, Size: size}
	}
	return nil
}
