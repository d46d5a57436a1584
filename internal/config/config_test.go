package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/assert"
)

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backup_dir: /backups\nlenient: true\ntiles_per_row: 32\npreview_scale: 4\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)

	opts := options.Program{}
	opts.TilesPerRow = 8
	explicit := map[string]bool{"tiles-per-row": true}
	cfg.Apply(&opts, func(name string) bool { return explicit[name] })

	assert.Equal(t, "/backups", opts.BackupDir)
	assert.True(t, opts.Lenient)
	assert.Equal(t, 8, opts.TilesPerRow)
	assert.Equal(t, 4, opts.PreviewScale)
	assert.False(t, opts.Debug)
	assert.Equal(t, "", opts.Schemas)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	path := filepath.Join(t.TempDir(), "broken.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("lenient: [1"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestLoadRegistry(t *testing.T) {
	registry, err := LoadRegistry(options.Program{})
	assert.NoError(t, err)
	assert.Len(t, registry.All(), 5)

	data, err := schema.Marshal(registry)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	opts := options.Program{}
	opts.Schemas = path
	loaded, err := LoadRegistry(opts)
	assert.NoError(t, err)
	assert.Equal(t, registry.Profile(), loaded.Profile())

	opts.Schemas = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = LoadRegistry(opts)
	assert.ErrorContains(t, err, "loading schema file")
}

func TestCreateLogger(t *testing.T) {
	assert.NotNil(t, CreateLogger(true, false))
	assert.NotNil(t, CreateLogger(false, true))
}
