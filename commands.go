package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/cli"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/config"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/fileprocessor"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/options"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/pipeline"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"github.com/retroenv/retrogolib/log"
	ucli "github.com/urfave/cli/v3"
)

// session holds everything a command needs after argument parsing.
type session struct {
	logger   *log.Logger
	pipeline *pipeline.Pipeline
	args     []string
}

// setup parses the arguments, creates the logger and the pipeline. Arguments
// after the input file are only accepted if extraArgs is set.
func setup(cmd *ucli.Command, opts *options.Program, extraArgs bool) (*session, error) {
	args, err := cli.ParseArgs(cmd, opts)
	if err == nil && !extraArgs {
		err = cli.RejectExtraArgs(cmd, args)
	}
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, *opts, version, commit, date)
			usageErr.ShowUsage()
		}
		return nil, ucli.Exit(err.Error(), 1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, *opts, version, commit, date)

	registry, err := config.LoadRegistry(*opts)
	if err != nil {
		return nil, ucli.Exit(err.Error(), 1)
	}

	return &session{
		logger:   logger,
		pipeline: pipeline.New(logger, registry, options.NewPipeline(*opts)),
		args:     args,
	}, nil
}

func flags(opts *options.Program, sets ...func(*options.Program) []ucli.Flag) []ucli.Flag {
	result := cli.CommonFlags(opts)
	for _, set := range sets {
		result = append(result, set(opts)...)
	}
	return result
}

func extractCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:      "extract",
		Usage:     "Extract data types of ROM files into containers",
		ArgsUsage: "<ROM file>",
		Flags:     flags(&opts, cli.ExportFlags, cli.VerifyFlags),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			opts.NoEditable = true
			return processFiles(ctx, cmd, &opts)
		},
	}
}

func exportCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:      "export",
		Usage:     "Extract data types of ROM files into containers and editable files",
		ArgsUsage: "<ROM file>",
		Flags:     flags(&opts, cli.ExportFlags, cli.VerifyFlags),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			return processFiles(ctx, cmd, &opts)
		},
	}
}

func processFiles(ctx context.Context, cmd *ucli.Command, opts *options.Program) error {
	s, err := setup(cmd, opts, false)
	if err != nil {
		return err
	}

	files, err := fileprocessor.GetFilesToProcess(opts)
	if err != nil {
		return ucli.Exit(err.Error(), 1)
	}

	failed := 0
	for _, file := range files {
		opts.Input = file
		if err := fileprocessor.ProcessFile(ctx, s.logger, s.pipeline, *opts); err != nil {
			// Handle context cancellation (Ctrl+C) gracefully
			if errors.Is(err, context.Canceled) {
				s.logger.Info("Operation cancelled")
				return nil
			}
			s.logger.Error("Export failed", log.String("file", file), log.Err(err))
			failed++
		}
	}
	if failed > 0 {
		return ucli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(files)), 1)
	}
	return nil
}

func importCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:      "import",
		Usage:     "Validate an editable file and package it into a container",
		ArgsUsage: "<document or sheet file>",
		Flags:     flags(&opts, cli.ImportFlags),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			s, err := setup(cmd, &opts, false)
			if err != nil {
				return err
			}

			output := opts.Output
			if output == "" {
				output = fileprocessor.GenerateOutputFilename(opts.Input)
			}
			if output == opts.Input {
				return ucli.Exit("output file would overwrite the input file", 1)
			}

			c, err := s.pipeline.ImportFile(opts.Input, opts.Format, output)
			if err != nil {
				s.logger.Error("Import failed", log.String("file", opts.Input), log.Err(err))
				return ucli.Exit("import failed", 1)
			}
			s.logger.Info("Packaged container",
				log.String("file", output),
				log.String("data_type", c.Header.DataType.String()),
				log.Hex("checksum", c.Header.Checksum))
			return nil
		},
	}
}

func reinsertCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:      "reinsert",
		Usage:     "Write containers or editable files back into a ROM file",
		ArgsUsage: "<ROM file> <input files...>",
		Flags:     flags(&opts, cli.ReinsertFlags),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			s, err := setup(cmd, &opts, true)
			if err != nil {
				return err
			}
			if len(s.args) == 0 {
				return ucli.Exit("no input files to reinsert given", 1)
			}

			if opts.Verify {
				if err := s.pipeline.Verify(opts.Input); err != nil {
					s.logger.Error("Verification failed, ROM is left unchanged", log.Err(err))
					return ucli.Exit("verification failed", 1)
				}
			}

			reports, err := s.pipeline.Reinsert(ctx, opts.Input, s.args)
			for _, report := range reports {
				s.logger.Info("Reinserted",
					log.String("data_type", report.DataType.String()),
					log.Hex("offset", report.Offset),
					log.Int("length", report.Length),
					log.Int("changed", report.Changed))
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					s.logger.Info("Operation cancelled")
					return nil
				}
				s.logger.Error("Reinsertion failed", log.Err(err))
				return ucli.Exit("reinsertion failed", 1)
			}
			return nil
		},
	}
}

func verifyCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:      "verify",
		Usage:     "Verify that ROM files survive extraction and reinsertion unchanged",
		ArgsUsage: "<ROM file>",
		Flags:     flags(&opts, cli.ExportFlags),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			s, err := setup(cmd, &opts, false)
			if err != nil {
				return err
			}

			files, err := fileprocessor.GetFilesToProcess(&opts)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			failed := 0
			for _, file := range files {
				if ctx.Err() != nil {
					s.logger.Info("Operation cancelled")
					return nil
				}
				if err := s.pipeline.Verify(file); err != nil {
					s.logger.Error("Verification failed", log.String("file", file), log.Err(err))
					failed++
				}
			}
			if failed > 0 {
				return ucli.Exit(fmt.Sprintf("%d of %d files failed verification", failed, len(files)), 1)
			}
			return nil
		},
	}
}

func schemasCmd() *ucli.Command {
	var opts options.Program
	return &ucli.Command{
		Name:  "schemas",
		Usage: "Print the schema registry as YAML",
		Flags: append(cli.CommonFlags(&opts), &ucli.StringFlag{
			Name:        "o",
			Aliases:     []string{"output"},
			Usage:       "output file, printed on console if no name given",
			Destination: &opts.Output,
		}),
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			cfg.Apply(&opts, cmd.IsSet)

			registry, err := config.LoadRegistry(opts)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}
			data, err := schema.Marshal(registry)
			if err != nil {
				return ucli.Exit(err.Error(), 1)
			}

			if opts.Output == "" {
				_, err = os.Stdout.Write(data)
			} else {
				err = os.WriteFile(opts.Output, data, 0o644)
			}
			if err != nil {
				return ucli.Exit(fmt.Sprintf("writing schemas: %v", err), 1)
			}
			return nil
		},
	}
}
