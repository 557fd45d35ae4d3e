// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvfuture implements the "ldv future" command.
package ldvfuture

import (
	"context"
	"errors"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/cmd/ldvctl/internal/ldvctlcmd"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/bufdev/ldvctl/internal/ldv/ldvprojection"
	"github.com/bufdev/ldvctl/internal/ldv/ldvrender"
	"github.com/bufdev/ldvctl/internal/pkg/cliio"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	// yearsFlagName is the flag name for the projection window.
	yearsFlagName = "years"
	// todayFlagName is the flag name for the reference date.
	todayFlagName = "today"
)

// NewCommand returns a new ldv future command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List lots that reached LDV or reach it within the coming years",
		Long: `List held lots that reached LDV (three years from acquisition) before
today, and lots that reach it before January 1 of the year --years after the
current year.

--years defaults to future_years from ldvctl.yaml, or 1 if unset, which lists
lots reaching LDV before the end of the current year.`,
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
	// Years is the projection window. Only used if --years was given.
	Years int
	// Today is the reference date in YYYY-MM-DD format. Empty means today.
	Today string

	flagSet *pflag.FlagSet
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.OutputFlags.Bind(flagSet)
	flagSet.IntVar(&f.Years, yearsFlagName, 0, "The number of calendar years to look ahead, at least 1 (default future_years, or 1)")
	flagSet.StringVar(&f.Today, todayFlagName, "", "The reference date in YYYY-MM-DD format (default today)")
	f.flagSet = flagSet
}

func run(ctx context.Context, container appext.Container, flags *flags) (retErr error) {
	format, err := flags.ParseFormat()
	if err != nil {
		return err
	}
	today := xtime.Today()
	if flags.Today != "" {
		today, err = xtime.ParseDate(flags.Today)
		if err != nil {
			return appcmd.NewInvalidArgumentErrorf("invalid --%s date %q, expected YYYY-MM-DD format: %v", todayFlagName, flags.Today, err)
		}
	}
	config, err := ldvconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	years, err := flags.years(config.FutureYears)
	if err != nil {
		return err
	}
	querier, closeFunc, err := ldvctlcmd.OpenQuerier(ctx, container.Logger(), config)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, closeFunc())
	}()
	holdings, err := querier.QueryHoldings(ctx, config.HoldingsFilter())
	if err != nil {
		return err
	}
	projection, err := ldvprojection.Project(holdings, today, years)
	if err != nil {
		return err
	}
	writer := container.Stdout()
	switch format {
	case cliio.FormatTable:
		headers := append([]string{"STATUS"}, ldvprojection.ProjectedLotHeaders()...)
		rows := make([][]string, 0, len(projection.Matured)+len(projection.Future))
		for _, lot := range projection.Matured {
			rows = append(rows, append([]string{"MATURED"}, ldvprojection.ProjectedLotToTableRow(lot)...))
		}
		for _, lot := range projection.Future {
			rows = append(rows, append([]string{"FUTURE"}, ldvprojection.ProjectedLotToTableRow(lot)...))
		}
		totalsRow := make([]string, len(headers))
		totalsRow[0] = "HORIZON"
		totalsRow[len(headers)-1] = projection.Horizon.String()
		return cliio.WriteTableWithTotals(writer, headers, rows, totalsRow)
	case cliio.FormatCSV:
		records := make([][]string, 0, len(projection.Matured)+len(projection.Future)+1)
		records = append(records, append([]string{"STATUS"}, ldvprojection.ProjectedLotHeaders()...))
		for _, lot := range projection.Matured {
			records = append(records, append([]string{"MATURED"}, ldvprojection.ProjectedLotToRow(lot)...))
		}
		for _, lot := range projection.Future {
			records = append(records, append([]string{"FUTURE"}, ldvprojection.ProjectedLotToRow(lot)...))
		}
		return cliio.WriteCSVRecords(writer, records)
	case cliio.FormatJSON:
		return cliio.WriteJSON(writer, &projectionJSON{
			Today:   today,
			Horizon: projection.Horizon,
			Years:   years,
			Matured: projection.Matured,
			Future:  projection.Future,
		})
	case cliio.FormatMarkdown:
		markdown, err := ldvrender.FutureMarkdown(projection, today)
		if err != nil {
			return err
		}
		return cliio.WriteMarkdown(writer, markdown, flags.Raw)
	default:
		return appcmd.NewInvalidArgumentErrorf("unsupported format: %s", format)
	}
}

// years returns --years if it was given, otherwise defaultYears.
func (f *flags) years(defaultYears int) (int, error) {
	if f.flagSet == nil || !f.flagSet.Changed(yearsFlagName) {
		return defaultYears, nil
	}
	if f.Years < 1 {
		return 0, appcmd.NewInvalidArgumentErrorf("--%s must be at least 1, got %d", yearsFlagName, f.Years)
	}
	return f.Years, nil
}

type projectionJSON struct {
	Today   xtime.Date                    `json:"today"`
	Horizon xtime.Date                    `json:"horizon"`
	Years   int                           `json:"years"`
	Matured []*ldvprojection.ProjectedLot `json:"matured"`
	Future  []*ldvprojection.ProjectedLot `json:"future"`
}
