// Package reinsert writes containers back into a ROM image.
//
// A Session owns a private copy of one ROM image. Every container passes four
// gates before it is written: its checksum, its location, its bounds and the
// structural sanity check of the image. A container is only written to the
// location its schema declares, the registry guarantees that the locations of
// different data types never share bytes. The first write of a session is preceded by a
// mandatory backup of the unmodified image; if the backup fails the session is
// aborted and never writes. Writes are serialized.
package reinsert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/cache"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/loader"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/google/uuid"
	"github.com/retroenv/retrogolib/log"
)

// maxDiffs is the number of differing offsets kept in a report.
const maxDiffs = 10

// ErrOverlap is returned for containers of a batch that write the same bytes.
var ErrOverlap = errors.New("overlapping reinsertion")

// ErrAborted is returned by every operation of a session whose backup failed.
var ErrAborted = errors.New("session aborted")

// Diff is one changed byte.
type Diff struct {
	Offset int
	Old    byte
	New    byte
}

// Report describes the effect of writing one container.
type Report struct {
	DataType schema.DataType
	Offset   int
	Length   int
	Changed  int
	Diffs    []Diff // first differing bytes, at most maxDiffs
}

// Options configures a Session.
type Options struct {
	// Backuper is required, a session can not be created without one.
	Backuper Backuper
	// Cache is optional, entries of the ROM path are invalidated on writes.
	Cache *cache.Cache
}

// Session reinserts containers into one ROM image.
type Session struct {
	mu sync.Mutex

	logger   *log.Logger
	id       uuid.UUID
	path     string
	registry *schema.Registry
	opts     Options

	rom        []byte
	original   []byte
	backupPath string
	aborted    error
	dirty      bool
}

// Open reads the ROM image at path and starts a session for it.
func Open(logger *log.Logger, path string, registry *schema.Registry, opts Options) (*Session, error) {
	rom, err := loader.New(logger).LoadWritable(path)
	if err != nil {
		return nil, err
	}
	return NewSession(logger, path, rom, registry, opts)
}

// NewSession starts a session for an image already in memory. The session
// keeps its own copy of rom, path is used for backups, saving and cache
// invalidation.
func NewSession(logger *log.Logger, path string, rom []byte, registry *schema.Registry, opts Options) (*Session, error) {
	if opts.Backuper == nil {
		return nil, errors.New("reinsertion requires a backup target")
	}
	if registry == nil {
		return nil, errors.New("reinsertion requires a schema registry")
	}

	s := &Session{
		logger:   logger,
		id:       uuid.New(),
		path:     path,
		registry: registry,
		opts:     opts,
		rom:      append([]byte(nil), rom...),
		original: append([]byte(nil), rom...),
	}
	s.logger.Debug("Reinsertion session started",
		log.String("session", s.id.String()),
		log.String("file", path))
	return s, nil
}

// ID returns the session identifier that is part of the backup file name.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// BackupPath returns the location of the backup, empty until the first write.
func (s *Session) BackupPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupPath
}

// ROM returns a copy of the current image contents.
func (s *Session) ROM() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.rom...)
}

// Apply checks a container and writes its payload into the image.
func (s *Session) Apply(c *container.Container) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aborted != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrAborted, s.aborted)
	}

	sch, writes, err := s.check(c)
	if err != nil {
		return Report{}, err
	}

	if s.backupPath == "" {
		backupPath, err := s.opts.Backuper.Backup(s.path, s.original, s.id)
		if err != nil {
			s.aborted = err
			s.logger.Error("Backup failed, aborting reinsertion session",
				log.String("session", s.id.String()),
				log.Err(err))
			return Report{}, fmt.Errorf("%w: creating backup: %w", ErrAborted, err)
		}
		s.backupPath = backupPath
		s.logger.Info("Created backup", log.String("file", backupPath))
	}

	report := s.write(sch.Type, c, writes)
	s.dirty = true
	if s.opts.Cache != nil {
		s.opts.Cache.Invalidate(s.path)
	}
	return report, nil
}

type write struct {
	offset int
	data   []byte
}

// check runs the gates in order: checksum, location, bounds, image sanity.
func (s *Session) check(c *container.Container) (*schema.Schema, []write, error) {
	if c == nil {
		return nil, nil, errors.New("missing container")
	}
	if err := c.Verify(); err != nil {
		return nil, nil, err
	}

	sch, err := s.registry.Lookup(c.Header.DataType)
	if err != nil {
		return nil, nil, romerr.Formatf(c.Source, "%v", err)
	}
	if err := c.Conforms(sch); err != nil {
		return nil, nil, err
	}

	writes := planWrites(c, sch)
	for _, w := range writes {
		if err := romerr.CheckRange(w.offset, len(w.data), len(s.rom)); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", sch.Name, err)
		}
	}

	if err := loader.Check(s.registry.Profile(), s.rom); err != nil {
		return nil, nil, fmt.Errorf("ROM sanity check: %w", err)
	}
	return sch, writes, nil
}

// planWrites splits the payload into the byte ranges it is written to.
// Without overrides the payload is written contiguously from the schema
// offset, otherwise record by record with overridden records going to their
// override offset.
func planWrites(c *container.Container, sch *schema.Schema) []write {
	base := sch.ROMOffset
	if len(sch.Overrides) == 0 {
		return []write{{offset: base, data: c.Payload}}
	}

	writes := make([]write, sch.RecordCount)
	for i := range writes {
		offset, ok := sch.Overrides[i]
		if !ok {
			offset = base + i*sch.RecordSize
		}
		writes[i] = write{offset: offset, data: c.Payload[i*sch.RecordSize : (i+1)*sch.RecordSize]}
	}
	return writes
}

func regionsOf(writes []write) []schema.Region {
	regions := make([]schema.Region, len(writes))
	for i, w := range writes {
		regions[i] = schema.Region{Start: w.offset, End: w.offset + len(w.data)}
	}
	return regions
}

func (s *Session) write(dataType schema.DataType, c *container.Container, writes []write) Report {
	report := Report{
		DataType: dataType,
		Offset:   int(c.Header.SourceOffset),
		Length:   len(c.Payload),
	}

	for _, w := range writes {
		for i, b := range w.data {
			offset := w.offset + i
			old := s.rom[offset]
			if old == b {
				continue
			}
			report.Changed++
			if len(report.Diffs) < maxDiffs {
				report.Diffs = append(report.Diffs, Diff{Offset: offset, Old: old, New: b})
				s.logger.Debug("Byte changed",
					log.Hex("offset", offset),
					log.Hex("old", old),
					log.Hex("new", b))
			}
		}
		copy(s.rom[w.offset:], w.data)
	}

	s.logger.Info("Reinserted data",
		log.String("type", dataType.String()),
		log.Hex("offset", report.Offset),
		log.Int("size", report.Length),
		log.Int("changed", report.Changed))
	return report
}

// ApplyAll applies a batch of containers. Containers whose regions overlap
// another container of the batch, such as two edits of one data type, are
// held back since neither can be preferred. All others are applied in order.
// The errors of all failed containers are joined.
func (s *Session) ApplyAll(containers []*container.Container) ([]Report, error) {
	held := s.overlapping(containers)

	var (
		reports []Report
		errs    []error
	)
	for i, c := range containers {
		if reason, ok := held[i]; ok {
			errs = append(errs, fmt.Errorf("container %d: %w", i, reason))
			continue
		}
		report, err := s.Apply(c)
		if err != nil {
			errs = append(errs, fmt.Errorf("container %d: %w", i, err))
			if errors.Is(err, ErrAborted) {
				break
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// overlapping returns the indexes of all batch containers that share bytes
// with another container of the batch.
func (s *Session) overlapping(containers []*container.Container) map[int]error {
	type entry struct {
		index   int
		name    string
		regions []schema.Region
	}

	var entries []entry
	for i, c := range containers {
		if c == nil {
			continue
		}
		sch, err := s.registry.Lookup(c.Header.DataType)
		if err != nil || c.Conforms(sch) != nil {
			continue // reported by Apply
		}
		entries = append(entries, entry{index: i, name: sch.Name, regions: regionsOf(planWrites(c, sch))})
	}

	held := map[int]error{}
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if !regionsOverlap(entries[i].regions, entries[j].regions) {
				continue
			}
			a, b := entries[i], entries[j]
			held[a.index] = fmt.Errorf("%w: %s overlaps %s (container %d)", ErrOverlap, a.name, b.name, b.index)
			held[b.index] = fmt.Errorf("%w: %s overlaps %s (container %d)", ErrOverlap, b.name, a.name, a.index)
		}
	}
	return held
}

func regionsOverlap(a, b []schema.Region) bool {
	for _, ra := range a {
		for _, rb := range b {
			if ra.Overlaps(rb) {
				return true
			}
		}
	}
	return false
}

// Save writes the modified image back to the session path. The file is
// replaced atomically by writing a temporary file and renaming it.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aborted != nil {
		return fmt.Errorf("%w: %w", ErrAborted, s.aborted)
	}
	if !s.dirty {
		return nil
	}
	if err := writeAtomic(s.path, s.rom); err != nil {
		return err
	}
	s.dirty = false
	if s.opts.Cache != nil {
		s.opts.Cache.Invalidate(s.path)
	}
	s.logger.Info("Saved ROM", log.String("file", s.path))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &romerr.IOError{Op: "creating temp file", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &romerr.IOError{Op: "writing ROM", Path: tmpPath, Err: err}
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return &romerr.IOError{Op: "setting ROM permissions", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &romerr.IOError{Op: "syncing ROM", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &romerr.IOError{Op: "closing ROM", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &romerr.IOError{Op: "replacing ROM", Path: path, Err: err}
	}
	return syncDir(dir)
}
