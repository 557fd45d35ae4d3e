// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvtaxreport computes realized capital gains for a fiscal year and
// splits them into ordinary gains and gains exempt under the long-duration
// holding rule (LDV).
//
// A sale in the ledger is a transaction with one or more asset postings that
// reduce a holding (disposals) and a cash posting that receives the proceeds
// (the cash leg). Disposals sharing a transaction id form one lot; the cash
// leg is allocated across them in proportion to their quantities.
package ldvtaxreport

import (
	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/shopspring/decimal"
)

// LDVDays is the holding period in days after which a net-positive gain is
// classified as long-term.
const LDVDays = 365 * 3

// Disposal is a disposal row with its derived gain figures.
type Disposal struct {
	*ldvledger.Row
	// AllocatedPrice is this row's share of the cash leg, rounded to two places.
	AllocatedPrice decimal.Decimal `json:"allocated_price"`
	// Cost is the cost basis of the disposed units, rounded to two places.
	Cost decimal.Decimal `json:"cost"`
	// Base is the realized gain (AllocatedPrice - Cost before rounding), rounded to two places.
	Base decimal.Decimal `json:"base"`
	// LongTerm is true if the disposal is classified under the LDV rule.
	LongTerm bool `json:"long_term"`
}

// Totals are the aggregated figures of a Classification.
//
// Sum, SumLDV, SumTotal, and TotalSale accumulate unrounded values.
// TotalCost accumulates the per-row costs after rounding.
type Totals struct {
	// Sum is the total ordinary gain.
	Sum decimal.Decimal `json:"sum"`
	// SumLDV is the total long-term gain.
	SumLDV decimal.Decimal `json:"sum_ldv"`
	// SumTotal is the running total of all gains.
	SumTotal decimal.Decimal `json:"sum_total"`
	// TotalSale is the total of allocated prices.
	TotalSale decimal.Decimal `json:"total_sale"`
	// TotalCost is the total of costs.
	TotalCost decimal.Decimal `json:"total_cost"`
}

// Classification is the result of classifying disposals.
type Classification struct {
	// Ordinary are the disposals taxed as ordinary gains, in input order.
	Ordinary []*Disposal
	// LongTerm are the disposals exempt under the LDV rule, in input order.
	LongTerm []*Disposal
	// Totals are nil if no disposal was matched to a cash leg.
	Totals *Totals
	// Currency is the currency of the matched cash legs.
	Currency string
	// Skipped are the disposals with no matching cash leg, in input order.
	Skipped []*ldvledger.Row
}

// HasData returns true if at least one disposal was matched to a cash leg.
func (c *Classification) HasData() bool {
	return c.Totals != nil
}

// AggregateLots returns the net disposed quantity per transaction id.
//
// A single sale may be split into several partial-fill rows sharing an id.
// The total is independent of row order.
func AggregateLots(disposals []*ldvledger.Row) map[string]decimal.Decimal {
	lots := make(map[string]decimal.Decimal)
	for _, disposal := range disposals {
		lots[disposal.ID] = lots[disposal.ID].Add(disposal.Position.Units)
	}
	return lots
}

// MatchCashLeg returns the first cash row with the disposal's transaction id.
// The bool is false if there is none.
func MatchCashLeg(disposal *ldvledger.Row, cashRows []*ldvledger.Row) (*ldvledger.Row, bool) {
	for _, cashRow := range cashRows {
		if cashRow.ID == disposal.ID {
			return cashRow, true
		}
	}
	return nil, false
}

// CashLegIndex maps transaction ids to cash rows.
//
// Lookups return the same row as MatchCashLeg: the first cash row in input
// order carrying the id.
type CashLegIndex map[string]*ldvledger.Row

// NewCashLegIndex indexes cash rows by transaction id, keeping the first row per id.
func NewCashLegIndex(cashRows []*ldvledger.Row) CashLegIndex {
	index := make(CashLegIndex, len(cashRows))
	for _, cashRow := range cashRows {
		if _, ok := index[cashRow.ID]; !ok {
			index[cashRow.ID] = cashRow
		}
	}
	return index
}

// Match returns the cash row for the disposal's transaction id.
func (c CashLegIndex) Match(disposal *ldvledger.Row) (*ldvledger.Row, bool) {
	cashRow, ok := c[disposal.ID]
	return cashRow, ok
}

// IsLongTerm returns true if a disposal held dateDiff days with gain base
// qualifies for the LDV exemption. Losses never qualify.
func IsLongTerm(dateDiff int, base decimal.Decimal) bool {
	return dateDiff >= LDVDays && base.IsPositive()
}

// Classify computes the gain of every disposal and splits the disposals into
// ordinary and long-term.
//
// Disposals without a cash leg are excluded from every total and returned in
// Skipped. The inputs are not modified.
func Classify(disposals []*ldvledger.Row, cashRows []*ldvledger.Row) *Classification {
	lots := AggregateLots(disposals)
	cashLegIndex := NewCashLegIndex(cashRows)
	classification := &Classification{}
	var totals Totals
	matched := false
	for _, disposal := range disposals {
		cashRow, ok := cashLegIndex.Match(disposal)
		if !ok {
			classification.Skipped = append(classification.Skipped, disposal)
			continue
		}
		lotTotal := lots[disposal.ID]
		if lotTotal.IsZero() {
			// Offsetting rows under one id have no quantity to allocate proceeds to.
			classification.Skipped = append(classification.Skipped, disposal)
			continue
		}
		matched = true
		classification.Currency = cashRow.Position.Currency
		allocatedPrice := cashRow.Position.Units.Mul(disposal.Position.Units).Div(lotTotal)
		cost := disposal.Position.CostNumber.Mul(disposal.Position.Units.Abs())
		base := allocatedPrice.Sub(cost)
		roundedCost := decimalfmt.Round(cost)
		result := &Disposal{
			Row:            disposal,
			AllocatedPrice: decimalfmt.Round(allocatedPrice),
			Cost:           roundedCost,
			Base:           decimalfmt.Round(base),
			LongTerm:       IsLongTerm(disposal.DateDiff, base),
		}
		totals.TotalSale = totals.TotalSale.Add(allocatedPrice)
		totals.TotalCost = totals.TotalCost.Add(roundedCost)
		totals.SumTotal = totals.SumTotal.Add(base)
		if result.LongTerm {
			totals.SumLDV = totals.SumLDV.Add(base)
			classification.LongTerm = append(classification.LongTerm, result)
			continue
		}
		totals.Sum = totals.Sum.Add(base)
		classification.Ordinary = append(classification.Ordinary, result)
	}
	if matched {
		classification.Totals = &totals
	}
	return classification
}
