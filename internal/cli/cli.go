// Package cli handles command line interface logic
package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/config"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/detector"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/transform"
	ucli "github.com/urfave/cli/v3"
)

// DefaultTilesPerRow is the default width of exported tile sheets.
const DefaultTilesPerRow = transform.DefaultTilesPerRow

// CommonFlags returns the flags shared by all commands.
func CommonFlags(opts *options.Program) []ucli.Flag {
	return []ucli.Flag{
		&ucli.StringFlag{
			Name:        "c",
			Aliases:     []string{"config"},
			Usage:       "YAML config file (default: user config dir)",
			Destination: &opts.Config,
		},
		&ucli.StringFlag{
			Name:        "schemas",
			Usage:       "YAML schema registry file (default: built-in Dragon Warrior registry)",
			Destination: &opts.Schemas,
		},
		&ucli.StringSliceFlag{
			Name:        "t",
			Aliases:     []string{"types"},
			Usage:       "data types to process, for example monsters,spells (default: all)",
			Destination: &opts.Types,
		},
		&ucli.BoolFlag{
			Name:        "lenient",
			Usage:       "report all validation violations instead of stopping at the first",
			Destination: &opts.Lenient,
		},
		&ucli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debugging options for extended logging",
			Destination: &opts.Debug,
		},
		&ucli.BoolFlag{
			Name:        "q",
			Aliases:     []string{"quiet"},
			Usage:       "perform operations quietly",
			Destination: &opts.Quiet,
		},
	}
}

// ExportFlags returns the flags of commands that write extracted data.
func ExportFlags(opts *options.Program) []ucli.Flag {
	return []ucli.Flag{
		&ucli.StringFlag{
			Name:        "o",
			Aliases:     []string{"output"},
			Usage:       "output directory, named after the ROM if not given",
			Destination: &opts.Output,
		},
		&ucli.StringFlag{
			Name:        "batch",
			Usage:       "process a batch of ROM files matching a path and file mask, for example *.nes",
			Destination: &opts.Batch,
		},
		&ucli.IntFlag{
			Name:        "tiles-per-row",
			Usage:       "width of exported tile sheets in tiles",
			Value:       DefaultTilesPerRow,
			Destination: &opts.TilesPerRow,
		},
		&ucli.IntFlag{
			Name:        "preview-scale",
			Usage:       "write an upscaled preview of tile sheets (0 disables)",
			Destination: &opts.PreviewScale,
		},
		&ucli.BoolFlag{
			Name:        "containers-only",
			Usage:       "only write containers, no editable files",
			Destination: &opts.NoEditable,
		},
	}
}

// ImportFlags returns the flags of the import command.
func ImportFlags(opts *options.Program) []ucli.Flag {
	return []ucli.Flag{
		&ucli.StringFlag{
			Name:        "o",
			Aliases:     []string{"output"},
			Usage:       "output container file, input name with .dwif extension if not given",
			Destination: &opts.Output,
		},
		&ucli.StringFlag{
			Name:        "f",
			Aliases:     []string{"format"},
			Usage:       "input format (container, document, sheet), detected if not given",
			Destination: &opts.Format,
		},
	}
}

// VerifyFlags returns the flag that enables the round trip verification.
func VerifyFlags(opts *options.Program) []ucli.Flag {
	return []ucli.Flag{
		&ucli.BoolFlag{
			Name:        "verify",
			Usage:       "verify the lossless round trip of the ROM first",
			Destination: &opts.Verify,
		},
	}
}

// ReinsertFlags returns the flags of the reinsert command.
func ReinsertFlags(opts *options.Program) []ucli.Flag {
	return append(VerifyFlags(opts), &ucli.StringFlag{
		Name:        "backup-dir",
		Usage:       "directory for ROM backups (default: next to the ROM)",
		Destination: &opts.BackupDir,
	})
}

// ParseArgs applies the config file to all options that were not set on the
// command line, validates the positional arguments and normalizes the
// options. The first argument becomes the input file unless a batch is
// processed, the remaining arguments are returned.
func ParseArgs(cmd *ucli.Command, opts *options.Program) ([]string, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	cfg.Apply(opts, cmd.IsSet)

	args := cmd.Args().Slice()
	if len(args) == 0 && opts.Input == "" && opts.Batch == "" {
		return nil, &UsageError{cmd: cmd, msg: "missing input file"}
	}
	if opts.Batch != "" && len(args) > 0 && opts.Input == "" {
		return nil, &UsageError{cmd: cmd, msg: "an input file can not be combined with a batch pattern"}
	}
	if err := validateArgs(cmd, args); err != nil {
		return nil, err
	}
	if err := normalizeOptions(opts); err != nil {
		return nil, err
	}
	if err := validateOptionCombinations(*opts); err != nil {
		return nil, err
	}

	if opts.Batch == "" && opts.Input == "" {
		opts.Input = args[0]
		args = args[1:]
	}
	return args, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	cmd *ucli.Command
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the help of the command that failed.
func (e *UsageError) ShowUsage() {
	if e.cmd == nil {
		return
	}
	_ = ucli.ShowSubcommandHelp(e.cmd)
}

// RejectExtraArgs returns a usage error if arguments are left after the input
// file of a command that processes a single input.
func RejectExtraArgs(cmd *ucli.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return &UsageError{
		cmd: cmd,
		msg: fmt.Sprintf("unexpected arguments %s, use --batch to process multiple files", strings.Join(args, " ")),
	}
}

// validateArgs checks if arguments are in correct order
func validateArgs(cmd *ucli.Command, args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				cmd: cmd,
				msg: fmt.Sprintf("Potential argument %s found after input file, please pass all files as last arguments", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	var types []string
	for _, t := range opts.Types {
		for name := range strings.SplitSeq(t, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" && !slices.Contains(types, name) {
				types = append(types, name)
			}
		}
	}
	opts.Types = types

	if opts.TilesPerRow == 0 {
		opts.TilesPerRow = DefaultTilesPerRow
	}
	if opts.TilesPerRow < 0 {
		return fmt.Errorf("invalid tiles per row %d, must be positive", opts.TilesPerRow)
	}
	if opts.PreviewScale < 0 {
		return fmt.Errorf("invalid preview scale %d, must not be negative", opts.PreviewScale)
	}

	opts.Format = strings.ToLower(opts.Format)
	validFormats := []detector.Format{detector.Container, detector.Document, detector.Sheet}
	if opts.Format != "" && !slices.Contains(validFormats, detector.Format(opts.Format)) {
		return fmt.Errorf("unsupported format: %s. Valid options: container, document, sheet", opts.Format)
	}
	return nil
}

// validateOptionCombinations checks for options that exclude each other
func validateOptionCombinations(opts options.Program) error {
	if opts.Debug && opts.Quiet {
		return fmt.Errorf("debug and quiet options can not be combined")
	}
	return nil
}
