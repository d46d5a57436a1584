// Package verification verifies that a ROM image survives the complete
// pipeline without edits byte for byte.
package verification

import (
	"bytes"
	"fmt"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/extract"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/gamedata"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/packager"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/reinsert"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/validate"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/log"
)

// VerifyRoundTrip extracts every data type of the registry, converts it to its
// editable form and back, validates and packages it and reinserts the result
// into a copy of the image. The copy has to match the input exactly.
func VerifyRoundTrip(logger *log.Logger, registry *schema.Registry, rom []byte, opts options.Pipeline) error {
	extractor := extract.New(logger)
	mode := validate.Strict
	if opts.Lenient {
		mode = validate.Lenient
	}
	validator := validate.New(logger, mode)
	gamedata.Register(validator)
	pack := packager.New(logger)

	var containers []*container.Container
	for _, s := range registry.All() {
		extracted, err := extractor.Extract(rom, s)
		if err != nil {
			return err
		}

		validated, err := throughEditable(validator, extracted, s, opts.TilesPerRow)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		packaged, err := pack.Package(validated)
		if err != nil {
			return err
		}

		if err := checkBufferEqual(logger, extracted.Payload, packaged.Payload); err != nil {
			return fmt.Errorf("%s payload mismatch: %w", s.Name, err)
		}
		containers = append(containers, packaged)
	}

	session, err := reinsert.NewSession(logger, "verification", rom, registry,
		reinsert.Options{Backuper: &reinsert.MemoryBackup{}})
	if err != nil {
		return err
	}
	if _, err := session.ApplyAll(containers); err != nil {
		return fmt.Errorf("reinserting: %w", err)
	}

	output := session.ROM()
	if err := checkBufferEqual(logger, rom, output); err != nil {
		if registry.Profile().Signature == schema.INESSignature {
			if detailsErr := compareCartridgeDetails(logger, rom, output); detailsErr != nil {
				return fmt.Errorf("comparing cartridge details: %w", detailsErr)
			}
		}
		return fmt.Errorf("image mismatch: %w", err)
	}
	return nil
}

// throughEditable converts the container to the editable representation of its
// schema, serializes and parses it again and validates the result.
func throughEditable(validator *validate.Validator, c *container.Container, s *schema.Schema,
	tilesPerRow int) (*validate.Validated, error) {

	if s.Kind == schema.Tiles {
		grids, err := transform.ToGrids(c, s)
		if err != nil {
			return nil, err
		}
		sheet := transform.NewSheet(s, tilesPerRow)
		img, err := transform.GridsToImage(grids, sheet)
		if err != nil {
			return nil, err
		}

		var imageBuf, sidecarBuf bytes.Buffer
		if err := transform.EncodeSheet(&imageBuf, &sidecarBuf, img, sheet); err != nil {
			return nil, err
		}
		decoded, decodedSheet, err := transform.DecodeSheet(&imageBuf, &sidecarBuf)
		if err != nil {
			return nil, err
		}
		grids, approximated, err := transform.ImageToGrids(decoded, decodedSheet)
		if err != nil {
			return nil, err
		}
		if approximated > 0 {
			return nil, fmt.Errorf("%d pixels changed color in the sheet", approximated)
		}
		return validator.ValidateGrids(grids, s)
	}

	records, _, err := transform.ToRecords(c, s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := transform.EncodeDocument(&buf, transform.NewDocument(s, records)); err != nil {
		return nil, err
	}
	doc, err := transform.DecodeDocument(&buf)
	if err != nil {
		return nil, err
	}
	records, err = doc.Decode(s)
	if err != nil {
		return nil, err
	}
	validated, _, err := validator.Validate(records, s)
	return validated, err
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("mismatched lengths, %d != %d", len(input), len(output))
	}

	var diffs uint64
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if diffs < 10 {
			logger.Error("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%d offset mismatches", diffs)
}

func compareCartridgeDetails(logger *log.Logger, input, output []byte) error {
	cart1, err := cartridge.LoadFile(bytes.NewReader(input))
	if err != nil {
		return fmt.Errorf("loading cartridge file: %w", err)
	}
	cart2, err := cartridge.LoadFile(bytes.NewReader(output))
	if err != nil {
		return fmt.Errorf("loading cartridge file: %w", err)
	}

	if err := checkBufferEqual(logger, cart1.PRG, cart2.PRG); err != nil {
		return fmt.Errorf("segment PRG mismatch: %w", err)
	}
	if err := checkBufferEqual(logger, cart1.CHR, cart2.CHR); err != nil {
		return fmt.Errorf("segment CHR mismatch: %w", err)
	}
	if cart1.Mapper != cart2.Mapper {
		return fmt.Errorf("mapper mismatch, expected %d but got %d", cart1.Mapper, cart2.Mapper)
	}
	return nil
}
