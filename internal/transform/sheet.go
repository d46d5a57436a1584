package transform

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/tile"
	xdraw "golang.org/x/image/draw"
	"gopkg.in/yaml.v3"
)

// DefaultTilesPerRow is the default width of a tile sheet in tiles.
const DefaultTilesPerRow = 16

// DefaultPalette maps the four color indexes to gray levels.
var DefaultPalette = []string{"#000000", "#555555", "#AAAAAA", "#FFFFFF"}

// Sheet is the sidecar that describes a tile sheet image.
type Sheet struct {
	DataType    schema.DataType `yaml:"data_type"`
	Schema      string          `yaml:"schema"`
	TileCount   int             `yaml:"tile_count"`
	TilesPerRow int             `yaml:"tiles_per_row"`
	Palette     []string        `yaml:"palette"`
}

// NewSheet returns the sidecar for the tiles of a schema.
func NewSheet(s *schema.Schema, tilesPerRow int) Sheet {
	if tilesPerRow <= 0 {
		tilesPerRow = DefaultTilesPerRow
	}
	return Sheet{
		DataType:    s.Type,
		Schema:      s.Name,
		TileCount:   s.RecordCount,
		TilesPerRow: tilesPerRow,
		Palette:     append([]string(nil), DefaultPalette...),
	}
}

// Bounds returns the pixel size of the sheet image.
func (sh Sheet) Bounds() image.Rectangle {
	rows := (sh.TileCount + sh.TilesPerRow - 1) / sh.TilesPerRow
	return image.Rect(0, 0, sh.TilesPerRow*tile.Width, rows*tile.Height)
}

// ColorPalette parses the palette of the sidecar. Every color index needs a
// distinct color.
func (sh Sheet) ColorPalette() (color.Palette, error) {
	if len(sh.Palette) != tile.MaxIndex+1 {
		return nil, romerr.Formatf("", "palette has %d colors, expected %d", len(sh.Palette), tile.MaxIndex+1)
	}
	palette := make(color.Palette, len(sh.Palette))
	for i, s := range sh.Palette {
		c, err := parseColor(s)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		for j, prev := range palette[:i] {
			if prev == c {
				return nil, romerr.Formatf("", "palette entries %d and %d are both '%s', indexes would be ambiguous", j, i, s)
			}
		}
		palette[i] = c
	}
	return palette, nil
}

func (sh Sheet) validate() error {
	if sh.TileCount <= 0 || sh.TilesPerRow <= 0 {
		return romerr.Formatf("", "sheet declares %d tiles with %d tiles per row", sh.TileCount, sh.TilesPerRow)
	}
	return nil
}

func parseColor(s string) (color.NRGBA, error) {
	hexValue := strings.TrimPrefix(s, "#")
	if len(hexValue) != 6 {
		return color.NRGBA{}, romerr.Formatf("", "invalid color '%s'", s)
	}
	v, err := strconv.ParseUint(hexValue, 16, 32)
	if err != nil {
		return color.NRGBA{}, romerr.Formatf("", "invalid color '%s'", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// GridsToImage lays the tiles out row by row into an indexed color image.
// Cells after the last tile are left at color index 0.
func GridsToImage(grids []tile.Grid, sh Sheet) (*image.Paletted, error) {
	if err := sh.validate(); err != nil {
		return nil, err
	}
	if len(grids) != sh.TileCount {
		return nil, romerr.Formatf("", "%d tiles given, sheet declares %d", len(grids), sh.TileCount)
	}
	palette, err := sh.ColorPalette()
	if err != nil {
		return nil, err
	}

	img := image.NewPaletted(sh.Bounds(), palette)
	for i, g := range grids {
		ox := (i % sh.TilesPerRow) * tile.Width
		oy := (i / sh.TilesPerRow) * tile.Height
		for y := range tile.Height {
			for x := range tile.Width {
				img.SetColorIndex(ox+x, oy+y, g[y][x])
			}
		}
	}
	return img, nil
}

// ImageToGrids cuts an image back into tiles. Pixels whose color is exactly a
// palette entry map to its index, any other color maps to the nearest entry
// and is counted in the returned number of approximated pixels.
func ImageToGrids(img image.Image, sh Sheet) ([]tile.Grid, int, error) {
	if err := sh.validate(); err != nil {
		return nil, 0, err
	}
	palette, err := sh.ColorPalette()
	if err != nil {
		return nil, 0, err
	}
	bounds := img.Bounds()
	if bounds.Dx() != sh.Bounds().Dx() || bounds.Dy() != sh.Bounds().Dy() {
		return nil, 0, romerr.Formatf("", "image is %dx%d pixels, sheet needs %dx%d",
			bounds.Dx(), bounds.Dy(), sh.Bounds().Dx(), sh.Bounds().Dy())
	}

	exact := make(map[[4]uint32]uint8, len(palette))
	for i, c := range palette {
		exact[rgbaKey(c)] = uint8(i)
	}

	var approximated int
	grids := make([]tile.Grid, sh.TileCount)
	for i := range grids {
		ox := bounds.Min.X + (i%sh.TilesPerRow)*tile.Width
		oy := bounds.Min.Y + (i/sh.TilesPerRow)*tile.Height
		for y := range tile.Height {
			for x := range tile.Width {
				c := img.At(ox+x, oy+y)
				index, ok := exact[rgbaKey(c)]
				if !ok {
					index = uint8(palette.Index(c))
					approximated++
				}
				grids[i][y][x] = index
			}
		}
	}
	return grids, approximated, nil
}

func rgbaKey(c color.Color) [4]uint32 {
	r, g, b, a := c.RGBA()
	return [4]uint32{r, g, b, a}
}

// Preview returns the sheet image scaled up by an integer factor.
func Preview(img *image.Paletted, scale int) *image.Paletted {
	if scale <= 1 {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, bounds.Dx()*scale, bounds.Dy()*scale), img.Palette)
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// EncodeSheet writes the image as PNG and the sidecar as YAML.
func EncodeSheet(imageWriter, sidecarWriter io.Writer, img image.Image, sh Sheet) error {
	if err := png.Encode(imageWriter, img); err != nil {
		return fmt.Errorf("encoding sheet image: %w", err)
	}
	enc := yaml.NewEncoder(sidecarWriter)
	if err := enc.Encode(sh); err != nil {
		return fmt.Errorf("encoding sheet sidecar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding sheet sidecar: %w", err)
	}
	return nil
}

// DecodeSheet reads a PNG sheet image and its YAML sidecar.
func DecodeSheet(imageReader, sidecarReader io.Reader) (image.Image, Sheet, error) {
	var sh Sheet
	if err := yaml.NewDecoder(sidecarReader).Decode(&sh); err != nil {
		return nil, sh, romerr.Formatf("", "decoding sheet sidecar: %v", err)
	}
	img, err := png.Decode(imageReader)
	if err != nil {
		return nil, sh, romerr.Formatf("", "decoding sheet image: %v", err)
	}
	return img, sh, nil
}

// SidecarPath returns the sidecar file name of a sheet image.
func SidecarPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, ".png") + ".yaml"
}

// SaveSheet writes the tiles as sheet image and sidecar next to each other.
func SaveSheet(imagePath string, grids []tile.Grid, sh Sheet) error {
	img, err := GridsToImage(grids, sh)
	if err != nil {
		return err
	}

	imageFile, err := os.Create(imagePath)
	if err != nil {
		return &romerr.IOError{Op: "creating sheet image", Path: imagePath, Err: err}
	}
	defer func() { _ = imageFile.Close() }()

	sidecarPath := SidecarPath(imagePath)
	sidecarFile, err := os.Create(sidecarPath)
	if err != nil {
		return &romerr.IOError{Op: "creating sheet sidecar", Path: sidecarPath, Err: err}
	}
	defer func() { _ = sidecarFile.Close() }()

	if err := EncodeSheet(imageFile, sidecarFile, img, sh); err != nil {
		return err
	}
	if err := imageFile.Close(); err != nil {
		return &romerr.IOError{Op: "closing sheet image", Path: imagePath, Err: err}
	}
	if err := sidecarFile.Close(); err != nil {
		return &romerr.IOError{Op: "closing sheet sidecar", Path: sidecarPath, Err: err}
	}
	return nil
}

// LoadSheet reads a sheet image and its sidecar and cuts it into tiles.
func LoadSheet(imagePath string) ([]tile.Grid, Sheet, int, error) {
	imageFile, err := os.Open(imagePath)
	if err != nil {
		return nil, Sheet{}, 0, &romerr.IOError{Op: "opening sheet image", Path: imagePath, Err: err}
	}
	defer func() { _ = imageFile.Close() }()

	sidecarPath := SidecarPath(imagePath)
	sidecarFile, err := os.Open(sidecarPath)
	if err != nil {
		return nil, Sheet{}, 0, &romerr.IOError{Op: "opening sheet sidecar", Path: sidecarPath, Err: err}
	}
	defer func() { _ = sidecarFile.Close() }()

	img, sh, err := DecodeSheet(imageFile, sidecarFile)
	if err != nil {
		return nil, sh, 0, err
	}
	grids, approximated, err := ImageToGrids(img, sh)
	if err != nil {
		return nil, sh, 0, err
	}
	return grids, sh, approximated, nil
}
