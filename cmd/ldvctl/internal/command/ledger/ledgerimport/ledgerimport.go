// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ledgerimport implements the "ledger import" command.
package ledgerimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/ldv/ldvpath"
	"github.com/bufdev/ldvctl/internal/ldv/ldvsqlite"
	"github.com/spf13/pflag"
)

// outputFlagName is the flag name for the SQLite ledger to write.
const outputFlagName = "output"

// NewCommand returns a new ledger import command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Import the YAML journal into a SQLite ledger",
		Long: `Import the configured YAML journal into a SQLite ledger.

Existing ledger contents are replaced. Point the ledger field of ldvctl.yaml
at the written file to report from it.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	// Dir is the ldvctl directory containing ldvctl.yaml.
	Dir string
	// Output is the SQLite ledger path. Empty means ledger.db in Dir.
	Output string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ldvctlcmd.DirFlagName, ".", "The ldvctl directory containing ldvctl.yaml")
	flagSet.StringVar(&f.Output, outputFlagName, "", "The SQLite ledger to write (default ledger.db in --dir)")
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	config, err := ldvconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	if ldvpath.IsDatabasePath(config.LedgerFilePath) {
		return fmt.Errorf("ledger %s is already a SQLite ledger, configure a YAML journal to import", config.LedgerFilePath)
	}
	outputFilePath := ldvpath.DefaultDatabaseFilePath(flags.Dir)
	if flags.Output != "" {
		outputFilePath, err = ldvpath.ResolvePath(flags.Dir, flags.Output)
		if err != nil {
			return err
		}
	}
	if !ldvpath.IsDatabasePath(outputFilePath) {
		return appcmd.NewInvalidArgumentErrorf("--%s must have a .db, .sqlite, or .sqlite3 extension", outputFlagName)
	}
	journal, err := ldvledger.ReadJournalFile(config.LedgerFilePath)
	if err != nil {
		return err
	}
	logger := container.Logger()
	store, err := ldvsqlite.Open(ctx, logger, outputFilePath)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	if err := store.Import(ctx, journal); err != nil {
		return err
	}
	logger.Info(
		"imported ledger",
		slog.String("from", config.LedgerFilePath),
		slog.String("to", outputFilePath),
		slog.Int("postings", len(journal.Rows())),
		slog.Int("prices", len(journal.Prices())),
	)
	_, err = fmt.Fprintf(container.Stdout(), "%s\n", outputFilePath)
	return err
}
