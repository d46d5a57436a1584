// Package detector handles input format detection.
package detector

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/log"
)

// Format is the kind of file a path holds.
type Format string

// Supported formats.
const (
	Unknown   Format = ""
	ROM       Format = "rom"
	Container Format = "container"
	Document  Format = "document"
	Sheet     Format = "sheet"
)

// Detector handles format detection from file extensions and contents.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the format of a file. An explicitly requested format wins,
// otherwise the file extension is used and, for unknown extensions, the first
// bytes of the file.
func (d *Detector) Detect(filename, requested string) Format {
	if format := Format(strings.ToLower(requested)); isKnown(format) {
		return format
	}

	format := d.detectFromFile(filename)
	if format == Unknown {
		format = d.detectFromContent(filename)
	}
	d.logger.Debug("Auto-detected format",
		log.String("format", string(format)),
		log.String("file", filename))
	return format
}

func isKnown(format Format) bool {
	switch format {
	case ROM, Container, Document, Sheet:
		return true
	default:
		return false
	}
}

// detectFromFile determines the format based on the file extension.
func (d *Detector) detectFromFile(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".nes":
		return ROM
	case container.Extension:
		return Container
	case ".json":
		return Document
	case ".png":
		return Sheet
	default:
		return Unknown
	}
}

// detectFromContent checks the file signature.
func (d *Detector) detectFromContent(filename string) Format {
	file, err := os.Open(filename)
	if err != nil {
		return Unknown
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 8)
	n, _ := file.Read(head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte(container.Magic)):
		return Container
	case bytes.HasPrefix(head, []byte(schema.INESSignature)):
		return ROM
	case bytes.HasPrefix(head, []byte("\x89PNG")):
		return Sheet
	case bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("{")):
		return Document
	default:
		return Unknown
	}
}
