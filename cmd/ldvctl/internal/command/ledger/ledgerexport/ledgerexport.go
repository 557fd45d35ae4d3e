// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ledgerexport implements the "ledger export" command.
package ledgerexport

import (
	"context"
	"errors"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/ldv/ldvpath"
	"github.com/bufdev/ldvctl/internal/ldv/ldvsqlite"
	"github.com/spf13/pflag"
)

const (
	// inputFlagName is the flag name for the SQLite ledger to read.
	inputFlagName = "input"
	// outputFlagName is the flag name for the YAML journal to write.
	outputFlagName = "output"
)

// NewCommand returns a new ledger export command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Export a SQLite ledger as a YAML journal",
		Args:  appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ldvctl directory that relative paths are resolved against.
	Dir string
	// Input is the SQLite ledger path. Empty means ledger.db in Dir.
	Input string
	// Output is the YAML journal path.
	Output string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ldvctlcmd.DirFlagName, ".", "The ldvctl directory that relative paths are resolved against")
	flagSet.StringVar(&f.Input, inputFlagName, "", "The SQLite ledger to read (default ledger.db in --dir)")
	flagSet.StringVar(&f.Output, outputFlagName, "", "The YAML journal to write")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	if flags.Output == "" {
		return appcmd.NewInvalidArgumentErrorf("--%s is required", outputFlagName)
	}
	outputFilePath, err := ldvpath.ResolvePath(flags.Dir, flags.Output)
	if err != nil {
		return err
	}
	if ldvpath.IsDatabasePath(outputFilePath) {
		return appcmd.NewInvalidArgumentErrorf("--%s must be a YAML journal, not a SQLite ledger", outputFlagName)
	}
	inputFilePath := ldvpath.DefaultDatabaseFilePath(flags.Dir)
	if flags.Input != "" {
		inputFilePath, err = ldvpath.ResolvePath(flags.Dir, flags.Input)
		if err != nil {
			return err
		}
	}
	if !ldvpath.IsDatabasePath(inputFilePath) {
		return appcmd.NewInvalidArgumentErrorf("--%s must have a .db, .sqlite, or .sqlite3 extension", inputFlagName)
	}
	store, err := ldvsqlite.OpenExisting(ctx, container.Logger(), inputFilePath)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	journal, err := store.Journal(ctx)
	if err != nil {
		return err
	}
	if err := ldvledger.WriteJournalFile(outputFilePath, journal); err != nil {
		return err
	}
	_, err = fmt.Fprintf(container.Stdout(), "%s\n", outputFilePath)
	return err
}
