package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/assert"
)

func TestMarshalLayout(t *testing.T) {
	payload := []byte{0x10, 0x20, 0x30, 0x40}
	c := New(schema.Spells, 0x1D63, 0x01020304, payload)

	data, err := c.MarshalBinary()
	assert.NoError(t, err)
	assert.Len(t, data, HeaderSize+4)

	assert.Equal(t, "DWIF", string(data[0:4]))
	assert.Equal(t, VersionMajor, data[4])
	assert.Equal(t, VersionMinor, data[5])
	assert.Equal(t, uint8(schema.Spells), data[6])
	assert.Equal(t, uint8(0), data[7])
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[0x08:]))
	assert.Equal(t, uint32(0x1D63), binary.LittleEndian.Uint32(data[0x0C:]))
	assert.Equal(t, Checksum(payload), binary.LittleEndian.Uint32(data[0x10:]))
	assert.Equal(t, uint32(0x01020304), binary.LittleEndian.Uint32(data[0x14:]))
	assert.True(t, bytes.Equal(make([]byte, 8), data[0x18:0x20]))
	assert.True(t, bytes.Equal(payload, data[HeaderSize:]))
}

func TestUnmarshalRoundTrip(t *testing.T) {
	c := New(schema.Monsters, 0x5E5B, 1700000000, bytes.Repeat([]byte{0xAB}, 624))
	data, err := c.MarshalBinary()
	assert.NoError(t, err)

	decoded, err := Unmarshal(data, "test")
	assert.NoError(t, err)
	assert.Equal(t, c.Header, decoded.Header)
	assert.True(t, bytes.Equal(c.Payload, decoded.Payload))
	assert.NoError(t, decoded.Verify())

	// the decoded payload must not alias the input buffer
	data[HeaderSize] = 0
	assert.Equal(t, byte(0xAB), decoded.Payload[0])
}

//nolint:funlen // table tests can be long
func TestUnmarshalErrors(t *testing.T) {
	valid, err := New(schema.Spells, 0x10, 0, []byte{1, 2, 3}).MarshalBinary()
	assert.NoError(t, err)

	mutate := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return f(b)
	}

	tests := []struct {
		name   string
		data   []byte
		target error
		text   string
	}{
		{
			name:   "short header",
			data:   valid[:10],
			target: romerr.ErrFormat,
			text:   "too short",
		},
		{
			name:   "bad magic",
			data:   mutate(func(b []byte) []byte { b[0] = 'X'; return b }),
			target: romerr.ErrFormat,
			text:   "invalid magic",
		},
		{
			name:   "unsupported major",
			data:   mutate(func(b []byte) []byte { b[4] = 2; return b }),
			target: romerr.ErrFormat,
			text:   "major version",
		},
		{
			name:   "truncated payload",
			data:   valid[:len(valid)-1],
			target: romerr.ErrFormat,
			text:   "payload bytes",
		},
		{
			name:   "trailing bytes",
			data:   append(append([]byte(nil), valid...), 0),
			target: romerr.ErrFormat,
			text:   "payload bytes",
		},
		{
			name:   "flipped payload byte",
			data:   mutate(func(b []byte) []byte { b[HeaderSize+1] ^= 0x01; return b }),
			target: romerr.ErrChecksum,
			text:   "checksum mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data, "broken.dwif")
			assert.True(t, errors.Is(err, tt.target), "unexpected error %v", err)
			assert.ErrorContains(t, err, tt.text)
			assert.ErrorContains(t, err, "broken.dwif")
		})
	}
}

func TestMinorVersionAccepted(t *testing.T) {
	data, err := New(schema.Spells, 0, 0, []byte{1}).MarshalBinary()
	assert.NoError(t, err)
	data[5] = 7

	c, err := Unmarshal(data, "")
	assert.NoError(t, err)
	assert.Equal(t, uint8(7), c.Header.VersionMinor)
}

func TestPayloadFlipFailsVerification(t *testing.T) {
	c := New(schema.Monsters, 0x5E5B, 0, bytes.Repeat([]byte{7}, 32))
	assert.NoError(t, c.VerifyChecksum())

	for i := range c.Payload {
		c.Payload[i] ^= 0x80
		err := c.Verify()
		assert.True(t, errors.Is(err, romerr.ErrChecksum))
		c.Payload[i] ^= 0x80
	}
	assert.NoError(t, c.Verify())
}

func TestUnsealedContainerRefusesMarshal(t *testing.T) {
	c := New(schema.Spells, 0, 0, []byte{1, 2})
	c.Payload = append(c.Payload, 3)

	_, err := c.MarshalBinary()
	assert.True(t, errors.Is(err, romerr.ErrFormat))

	c.Seal()
	_, err = c.MarshalBinary()
	assert.NoError(t, err)
}

func TestConforms(t *testing.T) {
	s := &schema.Schema{Type: schema.Monsters, Name: "monsters", Kind: schema.Records, RecordSize: 16, RecordCount: 2}

	assert.NoError(t, New(schema.Monsters, 0, 0, make([]byte, 32)).Conforms(s))

	err := New(schema.Spells, 0, 0, make([]byte, 32)).Conforms(s)
	assert.ErrorContains(t, err, "data type")

	err = New(schema.Monsters, 0x5E5B, 0, make([]byte, 32)).Conforms(s)
	assert.True(t, errors.Is(err, romerr.ErrFormat))
	assert.ErrorContains(t, err, "offset 0x5E5B")

	err = New(schema.Monsters, 0, 0, make([]byte, 33)).Conforms(s)
	assert.ErrorContains(t, err, "not a multiple")

	err = New(schema.Monsters, 0, 0, make([]byte, 48)).Conforms(s)
	assert.True(t, errors.Is(err, romerr.ErrFormat))
	assert.ErrorContains(t, err, "3 records")
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spells"+Extension)
	c := New(schema.Spells, 0x1D63, 42, []byte{4, 2, 3, 3, 2, 6, 8, 2, 10, 5})

	assert.NoError(t, WriteFile(path, c))
	read, err := ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, c.Header, read.Header)
	assert.Equal(t, path, read.Source)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"+Extension))
	assert.True(t, errors.Is(err, romerr.ErrIO))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
