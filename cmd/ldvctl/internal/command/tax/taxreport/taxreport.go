// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxreport implements the "tax report" command.
package taxreport

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/spf13/pflag"
)

// yearFlagName is the flag name for the fiscal year.
const yearFlagName = "year"

// NewCommand returns a new tax report command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Report capital gains for a fiscal year",
		Long: `Report capital gains for a fiscal year.

Gains on lots held at least three years (1095 days) are reported separately
as long-term (LDV). Losses are always ordinary.

The year defaults to report_year from ldvctl.yaml, or the previous calendar
year if unset.`,
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
	ldvctlcmd.OutputFlags
	// Year is the fiscal year. Zero means the configured default.
	Year int
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.OutputFlags.Bind(flagSet)
	flagSet.IntVar(&f.Year, yearFlagName, 0, "The fiscal year (default report_year, or the previous year)")
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
	year := flags.Year
	if year == 0 {
		year = config.DefaultReportYear(xtime.Today())
	}
	report, err := ldvctlcmd.BuildTaxReport(ctx, container, config, year)
	if err != nil {
		return err
	}
	return ldvctlcmd.WriteTaxReport(container.Stdout(), format, flags.Raw, "RU Tax Report", report)
}
