// Package packager turns validated data back into sealed containers.
package packager

import (
	"errors"
	"fmt"
	"time"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/validate"
	"github.com/retroenv/retrogolib/log"
)

var errNotValidated = errors.New("data was not validated")

// Packager builds containers from validated data.
type Packager struct {
	logger *log.Logger
	now    func() time.Time
}

// Option configures a Packager.
type Option func(*Packager)

// WithClock sets the clock used for the creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(p *Packager) {
		p.now = now
	}
}

// New returns a packager.
func New(logger *log.Logger, opts ...Option) *Packager {
	p := &Packager{
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Package encodes the validated data into a fresh container. Data type and
// source offset come from the schema, length and checksum are computed from
// the new payload.
func (p *Packager) Package(v *validate.Validated) (*container.Container, error) {
	s := v.Schema()
	if s == nil {
		return nil, errNotValidated
	}

	var (
		payload []byte
		err     error
	)
	switch s.Kind {
	case schema.Records:
		payload, err = transform.FromRecords(v.Records(), s)
	case schema.Tiles:
		payload, err = transform.FromGrids(v.Grids(), s)
	default:
		err = fmt.Errorf("unsupported schema kind '%s'", s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("packaging %s: %w", s.Name, err)
	}

	c := container.New(s.Type, uint32(s.ROMOffset), uint32(p.now().Unix()), payload)

	p.logger.Debug("Packaged container",
		log.String("schema", s.Name),
		log.Int("size", len(payload)),
		log.Hex("checksum", c.Header.Checksum))
	return c, nil
}

// PackageFile packages the validated data and writes the container to path.
func (p *Packager) PackageFile(v *validate.Validated, path string) (*container.Container, error) {
	c, err := p.Package(v)
	if err != nil {
		return nil, err
	}
	if err := container.WriteFile(path, c); err != nil {
		return nil, fmt.Errorf("writing container: %w", err)
	}
	return c, nil
}
