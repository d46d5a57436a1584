package tile

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeKnownTile(t *testing.T) {
	data := make([]byte, Size)
	data[0], data[8] = 0x80, 0x80 // pixel (0,0) = 3
	data[1] = 0x01                // pixel (7,1) = 1
	data[10] = 0x40               // pixel (1,2) = 2

	g, err := Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, uint8(3), g[0][0])
	assert.Equal(t, uint8(1), g[1][7])
	assert.Equal(t, uint8(2), g[2][1])
	assert.Equal(t, uint8(0), g[0][1])
	assert.Equal(t, uint8(0), g[7][7])
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	for _, size := range []int{0, 15, 17, 32} {
		_, err := Decode(make([]byte, size))
		assert.True(t, errors.Is(err, romerr.ErrFormat))
	}
}

func TestEncodeRejectsIllegalIndex(t *testing.T) {
	var g Grid
	g[4][5] = 4

	_, err := Encode(g)
	assert.True(t, errors.Is(err, romerr.ErrRange))
	assert.ErrorContains(t, err, "pixel (5,4)")
}

func TestRoundTripBytes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, Size)

	for range 2000 {
		_, _ = rng.Read(data)
		g, err := Decode(data)
		assert.NoError(t, err)

		encoded, err := Encode(g)
		assert.NoError(t, err)
		assert.True(t, bytes.Equal(data, encoded), "encode(decode(b)) != b for %x", data)
	}
}

func TestRoundTripGrids(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for range 2000 {
		var g Grid
		for y := range Height {
			for x := range Width {
				g[y][x] = uint8(rng.Intn(MaxIndex + 1))
			}
		}

		encoded, err := Encode(g)
		assert.NoError(t, err)
		decoded, err := Decode(encoded)
		assert.NoError(t, err)
		assert.Equal(t, g, decoded)
	}
}

func TestBatchRoundTrip(t *testing.T) {
	payload := make([]byte, 256*Size)
	rng := rand.New(rand.NewSource(3))
	_, _ = rng.Read(payload)

	grids, err := DecodeAll(payload)
	assert.NoError(t, err)
	assert.Len(t, grids, 256)

	encoded, err := EncodeAll(grids)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(payload, encoded))
}

func TestDecodeAllPartialTile(t *testing.T) {
	_, err := DecodeAll(make([]byte, 3*Size+5))
	assert.True(t, errors.Is(err, romerr.ErrFormat))
	assert.ErrorContains(t, err, "partial tile")
}

func TestEncodeAllReportsTileIndex(t *testing.T) {
	grids := make([]Grid, 3)
	grids[2][0][0] = 9

	_, err := EncodeAll(grids)
	assert.ErrorContains(t, err, "encoding tile 2")
}
