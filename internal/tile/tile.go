// Package tile converts NES 2 bit per pixel planar tiles to pixel grids and back.
//
// A tile is 16 bytes: bytes 0-7 hold bit plane 0 (the low bit of every pixel)
// and bytes 8-15 hold bit plane 1 (the high bit), one byte per pixel row with
// the most significant bit being the leftmost pixel. The conversion is exact in
// both directions, mapping color indexes to real colors is left to the caller.
package tile

import (
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
)

const (
	// Width and Height of a tile in pixels.
	Width  = 8
	Height = 8
	// Size is the encoded size of a tile in bytes.
	Size = 16
	// MaxIndex is the largest color index a pixel can hold.
	MaxIndex = 3

	planeSize = Size / 2
)

// Grid is an 8x8 array of color indexes, addressed as Grid[y][x].
type Grid [Height][Width]uint8

// Validate returns a RangeError for the first pixel outside of [0,3].
func (g *Grid) Validate() error {
	for y := range Height {
		for x := range Width {
			if g[y][x] > MaxIndex {
				return &romerr.RangeError{
					Record: -1,
					Reason: pixelReason(x, y, g[y][x]),
				}
			}
		}
	}
	return nil
}

// Decode converts the 16 bytes of a planar tile to a pixel grid.
func Decode(data []byte) (Grid, error) {
	var g Grid
	if len(data) != Size {
		return g, romerr.Formatf("", "tile data is %d bytes, expected %d", len(data), Size)
	}
	decodeInto(&g, data)
	return g, nil
}

func decodeInto(g *Grid, data []byte) {
	for y := range Height {
		plane0 := data[y]
		plane1 := data[y+planeSize]
		for x := range Width {
			shift := uint(7 - x)
			g[y][x] = (plane1>>shift&1)<<1 | plane0>>shift&1
		}
	}
}

// Encode converts a pixel grid to the 16 bytes of a planar tile.
// Pixels outside of [0,3] are rejected and never truncated.
func Encode(g Grid) ([]byte, error) {
	data := make([]byte, Size)
	if err := EncodeInto(data, g); err != nil {
		return nil, err
	}
	return data, nil
}

// EncodeInto encodes a pixel grid into dst, which must hold at least 16 bytes.
func EncodeInto(dst []byte, g Grid) error {
	if len(dst) < Size {
		return romerr.Formatf("", "tile buffer is %d bytes, expected %d", len(dst), Size)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	for y := range Height {
		var plane0, plane1 byte
		for x := range Width {
			shift := uint(7 - x)
			index := g[y][x]
			plane0 |= (index & 1) << shift
			plane1 |= (index >> 1 & 1) << shift
		}
		dst[y] = plane0
		dst[y+planeSize] = plane1
	}
	return nil
}
