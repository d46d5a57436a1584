// Package container implements the binary intermediate format that is exchanged
// between extraction and reinsertion.
//
// A container is a fixed 32 byte little endian header followed by the payload:
//
//	0x00  4  magic "DWIF"
//	0x04  1  major version
//	0x05  1  minor version
//	0x06  1  data type
//	0x07  1  flags (reserved)
//	0x08  4  payload length
//	0x0C  4  source offset in the ROM image
//	0x10  4  CRC-32 (IEEE) of the payload
//	0x14  4  creation time in unix seconds (advisory)
//	0x18  8  reserved, zero
//	0x20  n  payload
package container

import (
	"hash/crc32"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
)

// Format constants must never change.
const (
	Magic = "DWIF"

	// VersionMajor changes only on breaking layout changes.
	VersionMajor uint8 = 1
	// VersionMinor may add optional header semantics.
	VersionMinor uint8 = 0

	// HeaderSize is the fixed size of the header in bytes.
	HeaderSize = 0x20
)

// Header is the decoded fixed size container header.
type Header struct {
	Magic         [4]byte
	VersionMajor  uint8
	VersionMinor  uint8
	DataType      schema.DataType
	Flags         uint8
	PayloadLength uint32
	SourceOffset  uint32
	Checksum      uint32
	CreatedAt     uint32
}

// Container is a header and its payload. A container is treated as immutable
// once sealed, any change to the payload requires sealing it again.
type Container struct {
	Header  Header
	Payload []byte

	// Source names where the container was read from, used in error messages.
	Source string
}

// Checksum returns the CRC-32 of a payload as stored in the header.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// New creates a sealed container for a payload.
func New(dataType schema.DataType, sourceOffset uint32, createdAt uint32, payload []byte) *Container {
	c := &Container{
		Header: Header{
			VersionMajor: VersionMajor,
			VersionMinor: VersionMinor,
			DataType:     dataType,
			SourceOffset: sourceOffset,
			CreatedAt:    createdAt,
		},
		Payload: payload,
	}
	copy(c.Header.Magic[:], Magic)
	c.Seal()
	return c
}

// Seal recomputes the payload length and checksum of the header.
func (c *Container) Seal() {
	c.Header.PayloadLength = uint32(len(c.Payload))
	c.Header.Checksum = Checksum(c.Payload)
}

// Verify checks the magic, version, payload length and checksum.
func (c *Container) Verify() error {
	if string(c.Header.Magic[:]) != Magic {
		return romerr.Formatf(c.Source, "invalid magic %q", c.Header.Magic[:])
	}
	if c.Header.VersionMajor != VersionMajor {
		return romerr.Formatf(c.Source, "unsupported major version %d", c.Header.VersionMajor)
	}
	if int(c.Header.PayloadLength) != len(c.Payload) {
		return romerr.Formatf(c.Source, "header declares %d payload bytes but %d are present",
			c.Header.PayloadLength, len(c.Payload))
	}
	return c.VerifyChecksum()
}

// VerifyChecksum checks that the header checksum matches the payload.
func (c *Container) VerifyChecksum() error {
	actual := Checksum(c.Payload)
	if actual != c.Header.Checksum {
		return &romerr.ChecksumError{
			Source:   c.Source,
			Expected: c.Header.Checksum,
			Actual:   actual,
		}
	}
	return nil
}

// Conforms checks that the container carries a payload of the given schema:
// matching data type, the schema ROM offset as source offset and a payload of
// exactly RecordSize*RecordCount bytes.
func (c *Container) Conforms(s *schema.Schema) error {
	if c.Header.DataType != s.Type {
		return romerr.Formatf(c.Source, "container holds data type %s, expected %s", c.Header.DataType, s.Type)
	}
	if int(c.Header.SourceOffset) != s.ROMOffset {
		return romerr.Formatf(c.Source, "container was extracted from offset 0x%X, schema '%s' is located at 0x%X",
			c.Header.SourceOffset, s.Name, s.ROMOffset)
	}
	length := len(c.Payload)
	if length%s.RecordSize != 0 {
		return romerr.Formatf(c.Source, "payload length %d is not a multiple of the record size %d",
			length, s.RecordSize)
	}
	if count := length / s.RecordSize; count != s.RecordCount {
		return romerr.Formatf(c.Source, "payload holds %d records, schema '%s' declares %d",
			count, s.Name, s.RecordCount)
	}
	return nil
}

// End returns the ROM offset directly after the payload.
func (c *Container) End() int {
	return int(c.Header.SourceOffset) + len(c.Payload)
}
