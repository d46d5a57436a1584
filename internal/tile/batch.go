package tile

import (
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
)

// DecodeAll decodes a payload of consecutive tiles.
// A payload that ends with a partial tile is rejected.
func DecodeAll(payload []byte) ([]Grid, error) {
	if len(payload)%Size != 0 {
		return nil, romerr.Formatf("", "tile payload of %d bytes ends with a partial tile of %d bytes",
			len(payload), len(payload)%Size)
	}

	grids := make([]Grid, len(payload)/Size)
	for i := range grids {
		decodeInto(&grids[i], payload[i*Size:(i+1)*Size])
	}
	return grids, nil
}

// EncodeAll encodes tiles into one payload of 16 bytes per tile.
func EncodeAll(grids []Grid) ([]byte, error) {
	payload := make([]byte, len(grids)*Size)
	for i, g := range grids {
		if err := EncodeInto(payload[i*Size:], g); err != nil {
			return nil, fmt.Errorf("encoding tile %d: %w", i, err)
		}
	}
	return payload, nil
}

func pixelReason(x, y int, value uint8) string {
	return fmt.Sprintf("pixel (%d,%d) has color index %d outside [0,%d]", x, y, value, MaxIndex)
}
