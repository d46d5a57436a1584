// Package main implements the main entry point for the Dragon Warrior ROM data tool
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/app"
	ucli "github.com/urfave/cli/v3"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	root := &ucli.Command{
		Name:    "dwdata",
		Usage:   "extract, edit and reinsert Dragon Warrior ROM data",
		Version: version,
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			return ucli.ShowAppHelp(cmd)
		},
		Commands: []*ucli.Command{
			extractCmd(),
			exportCmd(),
			importCmd(),
			reinsertCmd(),
			verifyCmd(),
			schemasCmd(),
		},
	}

	if err := root.Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
