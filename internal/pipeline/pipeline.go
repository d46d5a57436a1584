// Package pipeline orchestrates the extraction, import and reinsertion workflows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/cache"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/detector"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/extract"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/gamedata"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/loader"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/packager"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/reinsert"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/validate"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/verification"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sync/errgroup"
)

// Pipeline orchestrates the complete data workflow.
type Pipeline struct {
	logger    *log.Logger
	registry  *schema.Registry
	opts      options.Pipeline
	detector  *detector.Detector
	loader    *loader.Loader
	extractor *extract.Extractor
	validator *validate.Validator
	packager  *packager.Packager
	cache     *cache.Cache
}

// New creates a new pipeline for the schemas of a registry.
func New(logger *log.Logger, registry *schema.Registry, opts options.Pipeline) *Pipeline {
	mode := validate.Strict
	if opts.Lenient {
		mode = validate.Lenient
	}
	validator := validate.New(logger, mode)
	gamedata.Register(validator)

	return &Pipeline{
		logger:    logger,
		registry:  registry,
		opts:      opts,
		detector:  detector.New(logger),
		loader:    loader.New(logger),
		extractor: extract.New(logger),
		validator: validator,
		packager:  packager.New(logger),
		cache:     cache.New(opts.CacheSize),
	}
}

// Validator returns the validator used for imports, extensions can be
// registered on it.
func (p *Pipeline) Validator() *validate.Validator {
	return p.validator
}

// Cache returns the container cache of the pipeline.
func (p *Pipeline) Cache() *cache.Cache {
	return p.cache
}

// Extraction is the outcome of extracting one data type.
type Extraction struct {
	Schema    *schema.Schema
	Container *container.Container
	Err       error
}

// Schemas returns the schemas of the given data type names, all schemas if
// no names are given.
func (p *Pipeline) Schemas(names []string) ([]*schema.Schema, error) {
	if len(names) == 0 {
		return p.registry.All(), nil
	}
	schemas := make([]*schema.Schema, 0, len(names))
	for _, name := range names {
		s, err := p.registry.ByName(strings.ToLower(name))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// ExtractAll extracts the given schemas from an image in parallel. The data
// types are independent: a failing type does not stop the others, its error is
// stored in its result and all errors are returned joined. Results are cached
// by data type and source when source is not empty.
func (p *Pipeline) ExtractAll(ctx context.Context, rom []byte, source string,
	schemas []*schema.Schema) ([]Extraction, error) {

	results := make([]Extraction, len(schemas))
	var g errgroup.Group
	for i, s := range schemas {
		results[i].Schema = s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			c, err := p.extract(rom, source, s)
			results[i].Container = c
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (p *Pipeline) extract(rom []byte, source string, s *schema.Schema) (*container.Container, error) {
	if source == "" {
		return p.extractor.Extract(rom, s)
	}
	key := cache.Key{DataType: s.Type, Source: source}
	return p.cache.GetOrLoad(key, func() (*container.Container, error) {
		return p.extractor.Extract(rom, s)
	})
}

// Export extracts the data types from the ROM at romPath into outDir. Every
// data type is written as container and, unless disabled, as editable file.
// It returns the paths of all written files.
func (p *Pipeline) Export(ctx context.Context, romPath, outDir string, types []string) ([]string, error) {
	schemas, err := p.Schemas(types)
	if err != nil {
		return nil, err
	}

	img, err := p.loader.Load(romPath)
	if err != nil {
		return nil, fmt.Errorf("loading ROM: %w", err)
	}
	defer func() { _ = img.Close() }()

	if err := loader.Check(p.registry.Profile(), img.Data); err != nil {
		p.logger.Warn("ROM does not match the registry profile",
			log.String("file", romPath),
			log.Err(err))
	} else {
		p.loader.PrintInfo(img)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &romerr.IOError{Op: "creating output directory", Path: outDir, Err: err}
	}

	results, extractErr := p.ExtractAll(ctx, img.Data, romPath, schemas)
	errs := []error{extractErr}

	var written []string
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		files, err := p.writeOutputs(result.Container, result.Schema, outDir)
		written = append(written, files...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Schema.Name, err))
		}
	}
	return written, errors.Join(errs...)
}

func (p *Pipeline) writeOutputs(c *container.Container, s *schema.Schema, outDir string) ([]string, error) {
	containerPath := filepath.Join(outDir, s.Name+container.Extension)
	if err := container.WriteFile(containerPath, c); err != nil {
		return nil, err
	}
	written := []string{containerPath}
	if !p.opts.Editable {
		return written, nil
	}

	files, err := p.writeEditable(c, s, outDir)
	return append(written, files...), err
}

func (p *Pipeline) writeEditable(c *container.Container, s *schema.Schema, outDir string) ([]string, error) {
	if s.Kind == schema.Tiles {
		return p.writeSheet(c, s, outDir)
	}

	records, warnings, err := transform.ToRecords(c, s)
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		p.logger.Warn("Value outside of declared range",
			log.String("schema", s.Name),
			log.String("warning", warning.String()))
	}

	path := filepath.Join(outDir, s.Name+".json")
	file, err := os.Create(path)
	if err != nil {
		return nil, &romerr.IOError{Op: "creating document", Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	if err := transform.EncodeDocument(file, transform.NewDocument(s, records)); err != nil {
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, &romerr.IOError{Op: "closing document", Path: path, Err: err}
	}
	return []string{path}, nil
}

func (p *Pipeline) writeSheet(c *container.Container, s *schema.Schema, outDir string) ([]string, error) {
	grids, err := transform.ToGrids(c, s)
	if err != nil {
		return nil, err
	}
	sheet := transform.NewSheet(s, p.opts.TilesPerRow)
	path := filepath.Join(outDir, s.Name+".png")
	if err := transform.SaveSheet(path, grids, sheet); err != nil {
		return nil, err
	}
	written := []string{path, transform.SidecarPath(path)}

	if p.opts.PreviewScale <= 1 {
		return written, nil
	}
	img, err := transform.GridsToImage(grids, sheet)
	if err != nil {
		return written, err
	}
	previewPath := filepath.Join(outDir, s.Name+".preview.png")
	file, err := os.Create(previewPath)
	if err != nil {
		return written, &romerr.IOError{Op: "creating preview", Path: previewPath, Err: err}
	}
	defer func() { _ = file.Close() }()
	if err := png.Encode(file, transform.Preview(img, p.opts.PreviewScale)); err != nil {
		return written, fmt.Errorf("encoding preview: %w", err)
	}
	return append(written, previewPath), nil
}

// Import reads a container or editable file and returns a sealed container.
// Editable files are validated and packaged, the validation report is
// returned for them also when validation fails.
func (p *Pipeline) Import(path, format string) (*container.Container, *validate.Report, error) {
	switch p.detector.Detect(path, format) {
	case detector.Container:
		c, err := container.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		s, err := p.registry.Lookup(c.Header.DataType)
		if err != nil {
			return nil, nil, romerr.Formatf(path, "%v", err)
		}
		if err := c.Conforms(s); err != nil {
			return nil, nil, err
		}
		return c, nil, nil

	case detector.Document:
		return p.importDocument(path)

	case detector.Sheet:
		c, err := p.importSheet(path)
		return c, nil, err

	default:
		return nil, nil, fmt.Errorf("file '%s' is not a container or editable file", path)
	}
}

func (p *Pipeline) importDocument(path string) (*container.Container, *validate.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, &romerr.IOError{Op: "opening document", Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	doc, err := transform.DecodeDocument(file)
	if err != nil {
		return nil, nil, fmt.Errorf("'%s': %w", path, err)
	}
	s, err := p.registry.Lookup(doc.DataType)
	if err != nil {
		return nil, nil, romerr.Formatf(path, "%v", err)
	}
	records, err := doc.Decode(s)
	if err != nil {
		return nil, nil, fmt.Errorf("'%s': %w", path, err)
	}

	validated, report, err := p.validator.Validate(records, s)
	if err != nil {
		return nil, report, fmt.Errorf("validating '%s': %w", path, err)
	}
	c, err := p.packager.Package(validated)
	return c, report, err
}

func (p *Pipeline) importSheet(path string) (*container.Container, error) {
	grids, sheet, approximated, err := transform.LoadSheet(path)
	if err != nil {
		return nil, err
	}
	if approximated > 0 {
		p.logger.Warn("Mapped pixels to the nearest palette color",
			log.String("file", path),
			log.Int("pixels", approximated))
	}

	s, err := p.registry.Lookup(sheet.DataType)
	if err != nil {
		return nil, romerr.Formatf(path, "%v", err)
	}
	validated, err := p.validator.ValidateGrids(grids, s)
	if err != nil {
		return nil, fmt.Errorf("validating '%s': %w", path, err)
	}
	return p.packager.Package(validated)
}

// ImportFile imports a file and writes the resulting container to outPath.
func (p *Pipeline) ImportFile(path, format, outPath string) (*container.Container, error) {
	c, _, err := p.Import(path, format)
	if err != nil {
		return nil, err
	}
	if err := container.WriteFile(outPath, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Reinsert imports all inputs and writes them into the ROM at romPath. Inputs
// that fail to import are reported and skipped, the remaining containers are
// applied as one batch and the ROM is saved if anything was written.
func (p *Pipeline) Reinsert(ctx context.Context, romPath string, inputs []string) ([]reinsert.Report, error) {
	var (
		containers []*container.Container
		errs       []error
	)
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, _, err := p.Import(input, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		containers = append(containers, c)
	}

	session, err := reinsert.Open(p.logger, romPath, p.registry, reinsert.Options{
		Backuper: reinsert.FileBackup{Dir: p.opts.BackupDir},
		Cache:    p.cache,
	})
	if err != nil {
		return nil, err
	}

	reports, err := session.ApplyAll(containers)
	if err != nil {
		errs = append(errs, err)
	}
	if len(reports) > 0 {
		if err := session.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// Verify runs the no edit round trip of the ROM at romPath.
func (p *Pipeline) Verify(romPath string) error {
	img, err := p.loader.Load(romPath)
	if err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	defer func() { _ = img.Close() }()

	if err := verification.VerifyRoundTrip(p.logger, p.registry, img.Data, p.opts); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	p.logger.Info("Verification successful", log.String("file", romPath))
	return nil
}
