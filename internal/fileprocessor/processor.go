// Package fileprocessor handles file loading and processing operations
package fileprocessor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/pipeline"
	"github.com/retroenv/retrogolib/log"
)

// ProcessFile exports all selected data types of one ROM file
func ProcessFile(ctx context.Context, logger *log.Logger, p *pipeline.Pipeline, opts options.Program) error {
	if opts.Verify {
		if err := p.Verify(opts.Input); err != nil {
			return err
		}
	}

	outDir := OutputDir(opts)
	written, err := p.Export(ctx, opts.Input, outDir, opts.Types)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	logger.Info("Exported data",
		log.String("input", opts.Input),
		log.String("output", outDir),
		log.Int("files", len(written)))
	return nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// OutputDir returns the export directory for the current input file. Without
// an output option the directory is created next to the input file, in batch
// mode every input gets its own directory inside the output directory.
func OutputDir(opts options.Program) string {
	if opts.Output == "" {
		return GenerateOutputDirname(opts.Input)
	}
	if opts.Batch != "" {
		return filepath.Join(opts.Output, filepath.Base(GenerateOutputDirname(opts.Input)))
	}
	return opts.Output
}

// GenerateOutputDirname generates the export directory name for a given input file
func GenerateOutputDirname(inputFile string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + "_data"
}

// GenerateOutputFilename generates the container filename for a given input file
func GenerateOutputFilename(inputFile string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + container.Extension
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("dwdata", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
