// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxcurrent implements the "tax current" command.
package taxcurrent

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/spf13/pflag"
)

// NewCommand returns a new tax current command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Report capital gains for the current year to date",
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
	ldvctlcmd.OutputFlags
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.OutputFlags.Bind(flagSet)
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	format, err := flags.ParseFormat()
	if err != nil {
		return err
	}
	config, err := ldvconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	report, err := ldvctlcmd.BuildTaxReport(ctx, container, config, xtime.Today().Year)
	if err != nil {
		return err
	}
	return ldvctlcmd.WriteTaxReport(container.Stdout(), format, flags.Raw, "RU Current Year Tax", report)
}
