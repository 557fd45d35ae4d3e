// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvctlcmd provides shared wiring for ldvctl commands: opening the
// configured ledger and writing reports in the requested format.
package ldvctlcmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/ldvctl/internal/ldv/ldvconfig"
	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/ldv/ldvpath"
	"github.com/bufdev/ldvctl/internal/ldv/ldvrender"
	"github.com/bufdev/ldvctl/internal/ldv/ldvsqlite"
	"github.com/bufdev/ldvctl/internal/ldv/ldvtaxreport"
	"github.com/bufdev/ldvctl/internal/pkg/cliio"
	"github.com/spf13/pflag"
)

const (
	// DirFlagName is the flag name for the base directory containing ldvctl.yaml.
	DirFlagName = "dir"
	// FormatFlagName is the flag name for the output format.
	FormatFlagName = "format"
	// RawFlagName is the flag name for writing markdown without terminal rendering.
	RawFlagName = "raw"
)

// OutputFlags are the flags shared by every report command.
type OutputFlags struct {
	// Dir is the base directory containing ldvctl.yaml.
	Dir string
	// Format is the output format (table, csv, json, markdown).
	Format string
	// Raw writes markdown without terminal rendering.
	Raw bool
}

// Bind registers the flag definitions with the given flag set.
func (f *OutputFlags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Dir, DirFlagName, ".", "The ldvctl directory containing ldvctl.yaml")
	flagSet.StringVar(&f.Format, FormatFlagName, "table", "Output format (table, csv, json, markdown)")
	flagSet.BoolVar(&f.Raw, RawFlagName, false, "Write markdown as-is instead of rendering it for the terminal")
}

// ParseFormat parses the format flag, returning an invalid argument error for unknown formats.
func (f *OutputFlags) ParseFormat() (cliio.Format, error) {
	format, err := cliio.ParseFormat(f.Format)
	if err != nil {
		return "", appcmd.NewInvalidArgumentError(err.Error())
	}
	return format, nil
}

// OpenQuerier opens the ledger named by the config.
//
// SQLite ledgers are opened in place and must already exist; YAML journals
// are loaded into memory. The returned close function must be called when done.
func OpenQuerier(ctx context.Context, logger *slog.Logger, config *ldvconfig.Config) (ldvledger.Querier, func() error, error) {
	if ldvpath.IsDatabasePath(config.LedgerFilePath) {
		store, err := ldvsqlite.OpenExisting(ctx, logger, config.LedgerFilePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	journal, err := ldvledger.ReadJournalFile(config.LedgerFilePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("loaded journal", slog.String("path", config.LedgerFilePath), slog.Int("rows", len(journal.Rows())))
	return journal, func() error { return nil }, nil
}

// LogSkipped logs every disposal of the report that had no matching cash leg.
func LogSkipped(logger *slog.Logger, report *ldvtaxreport.Report) {
	for _, row := range report.Skipped {
		logger.Warn(
			"skipping disposal without proceeds",
			slog.String("id", row.ID),
			slog.String("date", row.Date.String()),
			slog.String("account", row.Account),
		)
	}
}

// WriteTaxReport writes the report in the given format.
func WriteTaxReport(writer io.Writer, format cliio.Format, raw bool, title string, report *ldvtaxreport.Report) error {
	switch format {
	case cliio.FormatTable:
		headers := ldvtaxreport.DisposalHeaders()
		rows := make([][]string, 0, len(report.Ordinary)+len(report.LongTerm))
		for _, disposal := range report.Ordinary {
			rows = append(rows, ldvtaxreport.DisposalToTableRow(disposal))
		}
		for _, disposal := range report.LongTerm {
			rows = append(rows, ldvtaxreport.DisposalToTableRow(disposal))
		}
		totals := report.FormatTotals()
		if totals == nil {
			return cliio.WriteTable(writer, headers, rows)
		}
		totalsRow := make([]string, len(headers))
		totalsRow[0] = "TOTAL " + strconv.Itoa(report.Year)
		totalsRow[4] = totals.Currency
		totalsRow[7] = totals.TotalSale
		totalsRow[8] = totals.TotalCost
		totalsRow[9] = totals.SumTotal
		totalsRow[10] = "LDV " + totals.SumLDV
		if err := cliio.WriteTableWithTotals(writer, headers, rows, totalsRow); err != nil {
			return err
		}
		return cliio.WriteTable(
			writer,
			[]string{"", ""},
			[][]string{
				{"ORDINARY", totals.Sum},
				{"LDV", totals.SumLDV},
				{"BROKER FEES", totals.BrokerFee},
			},
		)
	case cliio.FormatCSV:
		records := make([][]string, 0, len(report.Ordinary)+len(report.LongTerm)+1)
		records = append(records, ldvtaxreport.DisposalHeaders())
		for _, disposal := range report.Ordinary {
			records = append(records, ldvtaxreport.DisposalToRow(disposal))
		}
		for _, disposal := range report.LongTerm {
			records = append(records, ldvtaxreport.DisposalToRow(disposal))
		}
		return cliio.WriteCSVRecords(writer, records)
	case cliio.FormatJSON:
		return cliio.WriteJSON(writer, newTaxReportJSON(report))
	case cliio.FormatMarkdown:
		markdown, err := ldvrender.TaxReportMarkdown(title, report)
		if err != nil {
			return err
		}
		return cliio.WriteMarkdown(writer, markdown, raw)
	default:
		return appcmd.NewInvalidArgumentErrorf("unsupported format: %s", format)
	}
}

// NewTaxReportParams returns the tax report parameters for year, failing on
// years the ledger cannot contain.
func NewTaxReportParams(config *ldvconfig.Config, year int) (ldvtaxreport.Params, error) {
	if year < 1900 || year > 9999 {
		return ldvtaxreport.Params{}, appcmd.NewInvalidArgumentErrorf("year %d is out of range", year)
	}
	return config.TaxReportParams(year), nil
}

// BuildTaxReport opens the configured ledger and builds the tax report for
// the year. Skipped disposals are logged.
func BuildTaxReport(ctx context.Context, container appext.Container, config *ldvconfig.Config, year int) (_ *ldvtaxreport.Report, retErr error) {
	params, err := NewTaxReportParams(config, year)
	if err != nil {
		return nil, err
	}
	logger := container.Logger()
	querier, closeFunc, err := OpenQuerier(ctx, logger, config)
	if err != nil {
		return nil, err
	}
	defer func() {
		retErr = errors.Join(retErr, closeFunc())
	}()
	report, err := ldvtaxreport.BuildReport(ctx, querier, params)
	if err != nil {
		return nil, err
	}
	LogSkipped(logger, report)
	return report, nil
}

// *** PRIVATE ***

type taxReportJSON struct {
	Year     int                           `json:"year"`
	Ordinary []*ldvtaxreport.Disposal      `json:"ordinary"`
	LongTerm []*ldvtaxreport.Disposal      `json:"long_term"`
	Totals   *ldvtaxreport.FormattedTotals `json:"totals"`
	Skipped  []*ldvledger.Row              `json:"skipped,omitempty"`
}

func newTaxReportJSON(report *ldvtaxreport.Report) *taxReportJSON {
	return &taxReportJSON{
		Year:     report.Year,
		Ordinary: report.Ordinary,
		LongTerm: report.LongTerm,
		Totals:   report.FormatTotals(),
		Skipped:  report.Skipped,
	}
}
