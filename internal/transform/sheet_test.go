package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/extract"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/testrom"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/tile"
	"github.com/retroenv/retrogolib/assert"
)

func spriteTiles(t *testing.T) (*schema.Schema, []byte) {
	t.Helper()
	s, err := schema.DragonWarrior().Lookup(schema.SpriteTiles)
	assert.NoError(t, err)
	payload, err := extract.Payload(testrom.DragonWarrior(3), s)
	assert.NoError(t, err)
	assert.Len(t, payload, 4096)
	return s, payload
}

func TestSheetRoundTrip(t *testing.T) {
	s, payload := spriteTiles(t)

	grids, err := ToGrids(container.New(s.Type, uint32(s.ROMOffset), 0, payload), s)
	assert.NoError(t, err)

	sh := NewSheet(s, 32)
	img, err := GridsToImage(grids, sh)
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 64), img.Bounds())

	var imageBuf, sidecarBuf bytes.Buffer
	assert.NoError(t, EncodeSheet(&imageBuf, &sidecarBuf, img, sh))

	decoded, decodedSheet, err := DecodeSheet(&imageBuf, &sidecarBuf)
	assert.NoError(t, err)
	assert.Equal(t, sh.TileCount, decodedSheet.TileCount)
	assert.Equal(t, sh.TilesPerRow, decodedSheet.TilesPerRow)
	assert.Equal(t, schema.SpriteTiles, decodedSheet.DataType)

	decodedGrids, approximated, err := ImageToGrids(decoded, decodedSheet)
	assert.NoError(t, err)
	assert.Equal(t, 0, approximated)

	encoded, err := FromGrids(decodedGrids, s)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(payload, encoded))
}

func TestSheetPartialLastRow(t *testing.T) {
	s := &schema.Schema{Type: 9, Name: "few", Kind: schema.Tiles, RecordSize: 16, RecordCount: 5}
	assert.NoError(t, s.Validate())

	grids := make([]tile.Grid, 5)
	grids[4][7][7] = 3
	sh := NewSheet(s, 4)
	img, err := GridsToImage(grids, sh)
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
	assert.Equal(t, uint8(3), img.ColorIndexAt(7, 15))

	back, _, err := ImageToGrids(img, sh)
	assert.NoError(t, err)
	assert.Equal(t, grids, back)
}

func TestImageToGridsMapsTrueColor(t *testing.T) {
	s := &schema.Schema{Type: 9, Name: "one", Kind: schema.Tiles, RecordSize: 16, RecordCount: 1}
	assert.NoError(t, s.Validate())
	sh := NewSheet(s, 1)

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.NRGBA{R: 0xAA, G: 0xAA, B: 0xAA, A: 0xFF})
		}
	}
	img.Set(0, 0, color.NRGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF})

	grids, approximated, err := ImageToGrids(img, sh)
	assert.NoError(t, err)
	assert.Equal(t, 1, approximated)
	assert.Equal(t, uint8(3), grids[0][0][0])
	assert.Equal(t, uint8(2), grids[0][4][4])
}

func TestSheetErrors(t *testing.T) {
	s, _ := spriteTiles(t)
	sh := NewSheet(s, 16)

	_, err := GridsToImage(make([]tile.Grid, 3), sh)
	assert.True(t, errors.Is(err, romerr.ErrFormat))

	_, _, err = ImageToGrids(image.NewNRGBA(image.Rect(0, 0, 8, 8)), sh)
	assert.ErrorContains(t, err, "sheet needs 128x128")

	broken := sh
	broken.Palette = []string{"#000000"}
	_, err = broken.ColorPalette()
	assert.True(t, errors.Is(err, romerr.ErrFormat))

	broken.Palette = []string{"#000000", "#GGGGGG", "#AAAAAA", "#FFFFFF"}
	_, err = broken.ColorPalette()
	assert.ErrorContains(t, err, "palette entry 1")

	broken.Palette = []string{"#000000", "#000000", "#AAAAAA", "#FFFFFF"}
	_, err = broken.ColorPalette()
	assert.True(t, errors.Is(err, romerr.ErrFormat))
	assert.ErrorContains(t, err, "entries 0 and 1")
	_, _, err = ImageToGrids(image.NewNRGBA(sh.Bounds()), broken)
	assert.True(t, errors.Is(err, romerr.ErrFormat))

	_, err = FromGrids(make([]tile.Grid, 255), s)
	assert.True(t, errors.Is(err, romerr.ErrRange))
}

func TestPreview(t *testing.T) {
	s, payload := spriteTiles(t)
	grids, err := tile.DecodeAll(payload)
	assert.NoError(t, err)

	img, err := GridsToImage(grids, NewSheet(s, 16))
	assert.NoError(t, err)

	preview := Preview(img, 3)
	assert.Equal(t, image.Rect(0, 0, 384, 384), preview.Bounds())
	assert.Equal(t, img.ColorIndexAt(5, 9), preview.ColorIndexAt(5*3+1, 9*3+2))
	assert.True(t, Preview(img, 1) == img)
}

func TestSaveAndLoadSheet(t *testing.T) {
	s, payload := spriteTiles(t)
	grids, err := tile.DecodeAll(payload)
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tiles_sprites.png")
	assert.NoError(t, SaveSheet(path, grids, NewSheet(s, 32)))

	_, err = os.Stat(SidecarPath(path))
	assert.NoError(t, err)

	loaded, sh, approximated, err := LoadSheet(path)
	assert.NoError(t, err)
	assert.Equal(t, 0, approximated)
	assert.Equal(t, 32, sh.TilesPerRow)
	assert.Equal(t, grids, loaded)

	_, _, _, err = LoadSheet(filepath.Join(t.TempDir(), "missing.png"))
	assert.True(t, errors.Is(err, romerr.ErrIO))
}
