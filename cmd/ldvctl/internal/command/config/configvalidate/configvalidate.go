// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package configvalidate implements the "config validate" command.
package configvalidate

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/spf13/pflag"
)

// NewCommand returns a new config validate command that validates a configuration file.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Validate the configuration file",
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
	// Dir is the ldvctl directory containing ldvctl.yaml.
	Dir string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, ldvctlcmd.DirFlagName, ".", "The ldvctl directory containing ldvctl.yaml")
}

func run(_ context.Context, container appext.Container, flags *flags) error {
	config, err := ldvconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	container.Logger().Debug("config is valid", "ledger", config.LedgerFilePath)
	return nil
}
