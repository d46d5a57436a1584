package container

import (
	"fmt"
	"os"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/romerr"
)

// Extension is the file extension used for container files.
const Extension = ".dwif"

// ReadFile reads and verifies a container file.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &romerr.IOError{Op: "reading container", Path: path, Err: err}
	}
	c, err := Unmarshal(data, path)
	if err != nil {
		return nil, fmt.Errorf("decoding container: %w", err)
	}
	return c, nil
}

// WriteFile encodes a container and writes it to path.
func WriteFile(path string, c *Container) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding container: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &romerr.IOError{Op: "writing container", Path: path, Err: err}
	}
	return nil
}
