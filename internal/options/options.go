// Package options contains the program options.
package options

// Parameters contains file path options.
type Parameters struct {
	Input     string // input ROM, container or editable file
	Output    string // output directory or file
	Format    string // input format, detected if empty
	Config    string // YAML config file
	Schemas   string // YAML schema registry file, empty uses the built-in registry
	Batch     string // batch file pattern
	BackupDir string // backup location, empty places backups next to the ROM
}

// Flags contains behavior options.
type Flags struct {
	Types   []string
	Lenient bool
	Verify  bool
	Debug   bool
	Quiet   bool
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	TilesPerRow  int
	PreviewScale int
	NoEditable   bool
}

// Program options of the data tool.
type Program struct {
	Parameters
	Flags
	OutputFlags
}

// Pipeline defines options to control the processing pipeline.
type Pipeline struct {
	Lenient      bool   // collect all validation violations
	TilesPerRow  int    // tile sheet width in tiles
	PreviewScale int    // upscale factor of tile sheet previews, 0 disables previews
	Editable     bool   // write editable files next to containers
	BackupDir    string // backup location, empty places backups next to the ROM
	CacheSize    int    // number of containers kept in the extraction cache
}

// NewPipeline returns pipeline options derived from the program options.
func NewPipeline(opts Program) Pipeline {
	return Pipeline{
		Lenient:      opts.Lenient,
		TilesPerRow:  opts.TilesPerRow,
		PreviewScale: opts.PreviewScale,
		Editable:     !opts.NoEditable,
		BackupDir:    opts.BackupDir,
	}
}
