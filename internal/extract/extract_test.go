package extract

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/testrom"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestExtract(t *testing.T) {
	rom := testrom.DragonWarrior(1)
	registry := schema.DragonWarrior()
	stamp := time.Unix(1700000000, 0)
	e := New(log.NewTestLogger(t), WithClock(func() time.Time { return stamp }))

	for _, s := range registry.All() {
		t.Run(s.Name, func(t *testing.T) {
			c, err := e.Extract(rom, s)
			assert.NoError(t, err)
			assert.NoError(t, c.Verify())
			assert.NoError(t, c.Conforms(s))

			assert.Equal(t, s.Type, c.Header.DataType)
			assert.Equal(t, uint32(s.ROMOffset), c.Header.SourceOffset)
			assert.Equal(t, uint32(s.PayloadSize()), c.Header.PayloadLength)
			assert.Equal(t, container.Checksum(c.Payload), c.Header.Checksum)
			assert.Equal(t, uint32(1700000000), c.Header.CreatedAt)
			assert.True(t, bytes.Equal(rom[s.ROMOffset:s.ROMOffset+s.PayloadSize()], c.Payload))
		})
	}
}

func TestExtractCopiesPayload(t *testing.T) {
	rom := testrom.DragonWarrior(2)
	monsters, err := schema.DragonWarrior().Lookup(schema.Monsters)
	assert.NoError(t, err)

	c, err := New(log.NewTestLogger(t)).Extract(rom, monsters)
	assert.NoError(t, err)

	original := c.Payload[0]
	rom[monsters.ROMOffset] = original + 1
	assert.Equal(t, original, c.Payload[0])
}

func TestExtractOutOfBounds(t *testing.T) {
	s := &schema.Schema{Type: 1, Name: "tail", Kind: schema.Records, RecordSize: 4, RecordCount: 4, ROMOffset: 0x30}
	assert.NoError(t, s.Validate())

	_, err := New(log.NewTestLogger(t)).Extract(make([]byte, 0x3F), s)
	assert.True(t, errors.Is(err, romerr.ErrBounds))

	var boundsErr *romerr.BoundsError
	assert.True(t, errors.As(err, &boundsErr))
	assert.Equal(t, 0x30, boundsErr.Offset)
	assert.Equal(t, 16, boundsErr.Length)
	assert.Equal(t, 0x3F, boundsErr.Size)

	_, err = New(log.NewTestLogger(t)).Extract(make([]byte, 0x40), s)
	assert.NoError(t, err)
}

func TestPayloadOverrides(t *testing.T) {
	rom := make([]byte, 0x100)
	for i := range rom {
		rom[i] = byte(i)
	}
	s := &schema.Schema{Type: 1, Name: "table", Kind: schema.Records, RecordSize: 2, RecordCount: 3, ROMOffset: 0x10,
		Overrides: map[int]int{1: 0x80}}
	assert.NoError(t, s.Validate())

	payload, err := Payload(rom, s)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x11, 0x80, 0x81, 0x14, 0x15}, payload)

	s.Overrides[1] = 0xFF
	_, err = Payload(rom, s)
	assert.True(t, errors.Is(err, romerr.ErrBounds))
	assert.ErrorContains(t, err, "record 1 override")
}

func TestExtractFile(t *testing.T) {
	rom := testrom.DragonWarrior(2)
	spells, err := schema.DragonWarrior().Lookup(schema.Spells)
	assert.NoError(t, err)

	dir := t.TempDir()
	path, err := New(log.NewTestLogger(t)).ExtractFile(rom, spells, dir)
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "spells.dwif"), path)

	c, err := container.ReadFile(path)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(rom[spells.ROMOffset:spells.ROMOffset+10], c.Payload))
}
