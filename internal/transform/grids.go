package transform

import (
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/tile"
)

// ToGrids decodes the tiles of a container payload.
func ToGrids(c *container.Container, s *schema.Schema) ([]tile.Grid, error) {
	if err := c.Conforms(s); err != nil {
		return nil, err
	}
	if s.Kind != schema.Tiles {
		return nil, romerr.Formatf(c.Source, "schema '%s' of kind %s does not hold tiles", s.Name, s.Kind)
	}
	grids, err := tile.DecodeAll(c.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding tiles: %w", err)
	}
	return grids, nil
}

// FromGrids encodes tiles back into a payload. The tile count must match the
// schema record count exactly.
func FromGrids(grids []tile.Grid, s *schema.Schema) ([]byte, error) {
	if s.Kind != schema.Tiles {
		return nil, romerr.Formatf("", "schema '%s' of kind %s does not hold tiles", s.Name, s.Kind)
	}
	if len(grids) != s.RecordCount {
		return nil, &romerr.RangeError{
			Record: -1,
			Reason: fmt.Sprintf("%d tiles given, schema '%s' declares %d", len(grids), s.Name, s.RecordCount),
		}
	}
	payload, err := tile.EncodeAll(grids)
	if err != nil {
		return nil, fmt.Errorf("encoding tiles: %w", err)
	}
	return payload, nil
}
