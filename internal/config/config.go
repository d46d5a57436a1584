// Package config handles application configuration and setup
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/log"
	"gopkg.in/yaml.v3"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// File represents the config file (~/.config/dwdata/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type File struct {
	Schemas      string `yaml:"schemas"`
	BackupDir    string `yaml:"backup_dir"`
	Lenient      *bool  `yaml:"lenient"`
	TilesPerRow  *int   `yaml:"tiles_per_row"`
	PreviewScale *int   `yaml:"preview_scale"`
	Debug        *bool  `yaml:"debug"`
	Quiet        *bool  `yaml:"quiet"`
}

// Path returns the default config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dwdata", "config.yaml")
}

// Load reads a config file. An empty path selects the default location, a
// missing default file yields an empty config. An explicitly given file must
// exist.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
		if path == "" {
			return File{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("reading config file '%s': %w", path, err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parsing config file '%s': %w", path, err)
	}
	return cfg, nil
}

// IsSetFunc reports whether a flag was set explicitly on the command line.
type IsSetFunc func(name string) bool

// Apply copies config file values into the options for every flag that was not
// set explicitly.
func (f File) Apply(opts *options.Program, isSet IsSetFunc) {
	if f.Schemas != "" && !isSet("schemas") {
		opts.Schemas = f.Schemas
	}
	if f.BackupDir != "" && !isSet("backup-dir") {
		opts.BackupDir = f.BackupDir
	}
	if f.Lenient != nil && !isSet("lenient") {
		opts.Lenient = *f.Lenient
	}
	if f.TilesPerRow != nil && !isSet("tiles-per-row") {
		opts.TilesPerRow = *f.TilesPerRow
	}
	if f.PreviewScale != nil && !isSet("preview-scale") {
		opts.PreviewScale = *f.PreviewScale
	}
	if f.Debug != nil && !isSet("debug") {
		opts.Debug = *f.Debug
	}
	if f.Quiet != nil && !isSet("q") {
		opts.Quiet = *f.Quiet
	}
}

// LoadRegistry returns the registry of the schema file in the options or the
// built-in Dragon Warrior registry.
func LoadRegistry(opts options.Program) (*schema.Registry, error) {
	if opts.Schemas == "" {
		return schema.DragonWarrior(), nil
	}
	registry, err := schema.LoadFile(opts.Schemas)
	if err != nil {
		return nil, fmt.Errorf("loading schema file: %w", err)
	}
	return registry, nil
}
