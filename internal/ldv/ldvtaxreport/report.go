// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvtaxreport

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/shopspring/decimal"
)

// Params selects the ledger rows a report is built from.
type Params struct {
	// Year is the fiscal year to report on.
	Year int
	// AssetsPattern matches accounts holding assets.
	AssetsPattern *regexp.Regexp
	// CashPattern matches accounts receiving sale proceeds. Matching
	// accounts are never treated as disposals.
	CashPattern *regexp.Regexp
	// BrokerFeesPattern matches accounts accumulating broker fees.
	BrokerFeesPattern *regexp.Regexp
	// ExcludePatterns match asset accounts whose reductions are not disposals
	// (e.g., currency balances held at cost).
	ExcludePatterns []*regexp.Regexp
}

// Report is a capital gains report for one fiscal year.
type Report struct {
	*Classification
	// Year is the fiscal year of the report.
	Year int
	// BrokerFee is the total broker fee for the year, zero if none was recorded.
	BrokerFee decimal.Decimal
}

// FormattedTotals are the report totals formatted for display.
type FormattedTotals struct {
	Currency  string `json:"currency"`
	Sum       string `json:"sum"`
	SumLDV    string `json:"sum_ldv"`
	SumTotal  string `json:"sum_total"`
	TotalSale string `json:"total_sale"`
	TotalCost string `json:"total_cost"`
	BrokerFee string `json:"broker_fee"`
}

// BuildReport queries the ledger and builds the report for params.Year.
//
// Errors are only returned if the ledger cannot be queried. A year without
// any matched disposal yields a report for which HasData returns false.
func BuildReport(ctx context.Context, querier ldvledger.Querier, params Params) (*Report, error) {
	disposals, err := querier.QueryPostings(ctx, DisposalFilter(params))
	if err != nil {
		return nil, fmt.Errorf("querying disposals for %d: %w", params.Year, err)
	}
	cashRows, err := querier.QueryPostings(ctx, CashFilter(params))
	if err != nil {
		return nil, fmt.Errorf("querying cash legs for %d: %w", params.Year, err)
	}
	brokerFee, ok, err := querier.QueryLastBalance(ctx, BrokerFeeFilter(params))
	if err != nil {
		return nil, fmt.Errorf("querying broker fees for %d: %w", params.Year, err)
	}
	if !ok {
		brokerFee = decimal.Zero
	}
	return &Report{
		Classification: Classify(disposals, cashRows),
		Year:           params.Year,
		BrokerFee:      brokerFee,
	}, nil
}

// DisposalFilter selects reductions of asset accounts other than cash and excluded accounts.
func DisposalFilter(params Params) ldvledger.Filter {
	excludePatterns := make([]*regexp.Regexp, 0, len(params.ExcludePatterns)+1)
	if params.CashPattern != nil {
		excludePatterns = append(excludePatterns, params.CashPattern)
	}
	excludePatterns = append(excludePatterns, params.ExcludePatterns...)
	return ldvledger.Filter{
		Year:                   params.Year,
		AccountPattern:         params.AssetsPattern,
		ExcludeAccountPatterns: excludePatterns,
		Weight:                 ldvledger.WeightNegative,
	}
}

// CashFilter selects cash postings.
func CashFilter(params Params) ldvledger.Filter {
	return ldvledger.Filter{
		Year:           params.Year,
		AccountPattern: params.CashPattern,
	}
}

// BrokerFeeFilter selects broker fee postings.
func BrokerFeeFilter(params Params) ldvledger.Filter {
	return ldvledger.Filter{
		Year:           params.Year,
		AccountPattern: params.BrokerFeesPattern,
	}
}

// FormatTotals returns the formatted totals, or nil if the report has no data.
func (r *Report) FormatTotals() *FormattedTotals {
	if !r.HasData() {
		return nil
	}
	return &FormattedTotals{
		Currency:  r.Currency,
		Sum:       decimalfmt.Format(r.Totals.Sum),
		SumLDV:    decimalfmt.Format(r.Totals.SumLDV),
		SumTotal:  decimalfmt.Format(r.Totals.SumTotal),
		TotalSale: decimalfmt.Format(r.Totals.TotalSale),
		TotalCost: decimalfmt.Format(r.Totals.TotalCost),
		BrokerFee: decimalfmt.Format(r.BrokerFee),
	}
}

// DisposalHeaders returns the column headers for table/CSV output.
func DisposalHeaders() []string {
	return []string{"DATE", "NARRATION", "ACCOUNT", "UNITS", "CURRENCY", "COST DATE", "DAYS", "PRICE", "COST", "BASE", "LDV"}
}

// DisposalToRow converts a Disposal to a string slice for CSV output.
func DisposalToRow(d *Disposal) []string {
	return []string{
		d.Date.String(),
		d.Narration,
		d.Account,
		d.Position.Units.String(),
		d.Position.Currency,
		d.Position.CostDate.String(),
		strconv.Itoa(d.DateDiff),
		decimalfmt.FormatPlain(d.AllocatedPrice),
		decimalfmt.FormatPlain(d.Cost),
		decimalfmt.FormatPlain(d.Base),
		strconv.FormatBool(d.LongTerm),
	}
}

// DisposalToTableRow converts a Disposal to a string slice for table output,
// with thousands grouping on monetary columns.
func DisposalToTableRow(d *Disposal) []string {
	row := DisposalToRow(d)
	row[7] = decimalfmt.Format(d.AllocatedPrice)
	row[8] = decimalfmt.Format(d.Cost)
	row[9] = decimalfmt.Format(d.Base)
	return row
}
