// Package extract copies the data of a schema out of a ROM image into a container.
//
// Extraction never interprets field contents, it is a byte range copy plus the
// construction of the container header.
package extract

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/log"
)

// Extractor builds containers from ROM images.
type Extractor struct {
	logger *log.Logger
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for the advisory creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New returns a new extractor.
func New(logger *log.Logger, options ...Option) *Extractor {
	e := &Extractor{
		logger: logger,
		now:    time.Now,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Extract copies the records of a schema from the ROM image into a new container.
func (e *Extractor) Extract(rom []byte, s *schema.Schema) (*container.Container, error) {
	payload, err := Payload(rom, s)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", s.Name, err)
	}

	c := container.New(s.Type, uint32(s.ROMOffset), uint32(e.now().Unix()), payload)
	e.logger.Debug("Extracted data",
		log.String("type", s.Name),
		log.Hex("offset", s.ROMOffset),
		log.Int("size", len(payload)),
		log.Hex("checksum", c.Header.Checksum))
	return c, nil
}

// Payload returns a copy of the schema records of a ROM image. Records with an
// override are copied from their override offset.
func Payload(rom []byte, s *schema.Schema) ([]byte, error) {
	size := s.PayloadSize()
	if err := romerr.CheckRange(s.ROMOffset, size, len(rom)); err != nil {
		return nil, err
	}

	payload := make([]byte, size)
	copy(payload, rom[s.ROMOffset:s.ROMOffset+size])

	for index, offset := range s.Overrides {
		if err := romerr.CheckRange(offset, s.RecordSize, len(rom)); err != nil {
			return nil, fmt.Errorf("record %d override: %w", index, err)
		}
		copy(payload[index*s.RecordSize:(index+1)*s.RecordSize], rom[offset:offset+s.RecordSize])
	}
	return payload, nil
}

// ExtractFile extracts the records of a schema and writes the container into
// dir, named after the schema. It returns the path of the written file.
func (e *Extractor) ExtractFile(rom []byte, s *schema.Schema, dir string) (string, error) {
	c, err := e.Extract(rom, s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, s.Name+container.Extension)
	if err := container.WriteFile(path, c); err != nil {
		return "", err
	}
	return path, nil
}
