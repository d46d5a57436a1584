// Package loader handles ROM image loading operations.
package loader

import (
	"bytes"
	"fmt"
	"os"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sys/unix"
)

// Image is a read only ROM image. Images opened by Load may be memory mapped
// and must be closed to release the mapping.
type Image struct {
	Path string
	Data []byte

	mmapped bool
}

// Close releases the memory mapping of the image, if any.
func (img *Image) Close() error {
	if img == nil || !img.mmapped {
		return nil
	}
	err := unix.Munmap(img.Data)
	img.Data = nil
	img.mmapped = false
	return err
}

// Loader handles loading ROM images from disk.
type Loader struct {
	logger *log.Logger
}

// New creates a new ROM image loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load maps a ROM image read only. If mmap is unavailable it falls back to
// reading the whole file into memory.
func (l *Loader) Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &romerr.IOError{Op: "opening ROM", Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, &romerr.IOError{Op: "reading ROM size", Path: path, Err: err}
	}
	size := int(stat.Size())
	if size == 0 {
		return nil, romerr.Formatf(path, "ROM image is empty")
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &Image{Path: path, Data: data, mmapped: true}, nil
	}
	l.logger.Debug("Memory mapping failed, reading ROM into memory",
		log.String("file", path),
		log.Err(err))

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, &romerr.IOError{Op: "reading ROM", Path: path, Err: err}
	}
	return &Image{Path: path, Data: data}, nil
}

// LoadWritable reads a ROM image into a private buffer that can be modified.
func (l *Loader) LoadWritable(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &romerr.IOError{Op: "reading ROM", Path: path, Err: err}
	}
	return data, nil
}

// Check runs the structural sanity check of a ROM image against a profile.
// Images carrying the iNES signature are additionally parsed as a cartridge to
// verify that the header matches the image contents.
func Check(profile schema.Profile, data []byte) error {
	if err := profile.Check(data); err != nil {
		return err
	}
	if profile.Signature != schema.INESSignature {
		return nil
	}
	if _, err := Inspect(data); err != nil {
		return err
	}
	return nil
}

// Inspect parses the iNES header of an image and returns the cartridge.
func Inspect(data []byte) (*cartridge.Cartridge, error) {
	cart, err := cartridge.LoadFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing iNES image: %w", err)
	}
	return cart, nil
}

// PrintInfo logs the cartridge details of an iNES image.
func (l *Loader) PrintInfo(img *Image) {
	cart, err := Inspect(img.Data)
	if err != nil {
		l.logger.Warn("ROM image is not a valid iNES file",
			log.String("file", img.Path),
			log.Err(err))
		return
	}
	l.logger.Info("Loaded ROM",
		log.String("file", img.Path),
		log.Int("size", len(img.Data)),
		log.Int("prg", len(cart.PRG)),
		log.Int("chr", len(cart.CHR)),
		log.Uint16("mapper", cart.Mapper),
	)
}
