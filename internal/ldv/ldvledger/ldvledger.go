// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvledger provides the ledger query capability consumed by the
// tax report and LDV projection code.
//
// A ledger is a list of balanced transactions, each with postings that carry
// a position (units of a currency, optionally held at a per-unit cost with an
// acquisition date). Queries return fully materialized, typed rows selected
// by a Filter.
package ldvledger

import (
	"context"
	"regexp"
	"sort"

	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// Querier runs filtered queries against a ledger snapshot.
//
// Implementations must treat the ledger as read-only and return rows in
// ledger order (transaction date, then file order, then posting order).
type Querier interface {
	// QueryPostings returns every posting row matching the filter.
	QueryPostings(ctx context.Context, filter Filter) ([]*Row, error)
	// QueryLastBalance returns the running balance of the matching postings
	// after the last matching row, in the units of those postings.
	// The bool is false if no posting matched.
	QueryLastBalance(ctx context.Context, filter Filter) (decimal.Decimal, bool, error)
	// QueryHoldings returns open positions grouped by account, cost date,
	// currency, cost currency, and per-unit cost. Only AccountPattern and
	// ExcludeAccountPatterns are applied; holdings always span the whole ledger.
	QueryHoldings(ctx context.Context, filter Filter) ([]*HoldingRow, error)
}

// WeightSign selects postings by the sign of their weight.
type WeightSign int

const (
	// WeightAny selects postings regardless of weight.
	WeightAny WeightSign = iota
	// WeightNegative selects postings with a negative weight, i.e. reductions of a holding.
	WeightNegative
)

// Filter selects posting rows.
type Filter struct {
	// Year restricts rows to transactions dated in this year. Zero means all years.
	Year int
	// AccountPattern must match the account name. Nil matches every account.
	AccountPattern *regexp.Regexp
	// ExcludeAccountPatterns must not match the account name.
	ExcludeAccountPatterns []*regexp.Regexp
	// Weight selects rows by weight sign.
	Weight WeightSign
}

// Position is a posting's units with an optional per-unit cost.
type Position struct {
	// Units is the signed quantity.
	Units decimal.Decimal `json:"units"`
	// Currency is the commodity or currency of Units.
	Currency string `json:"currency"`
	// CostNumber is the per-unit cost, zero if the position is not held at cost.
	CostNumber decimal.Decimal `json:"cost_number"`
	// CostCurrency is the currency of CostNumber, empty if not held at cost.
	CostCurrency string `json:"cost_currency,omitempty"`
	// CostDate is the acquisition date of the lot, zero if not held at cost.
	CostDate xtime.Date `json:"cost_date"`
}

// HasCost returns true if the position is held at cost.
func (p Position) HasCost() bool {
	return p.CostCurrency != ""
}

// Row is a single posting as returned by QueryPostings.
type Row struct {
	// ID identifies the transaction the posting belongs to.
	ID string `json:"id"`
	// Date is the transaction date.
	Date xtime.Date `json:"date"`
	// Narration is the transaction description.
	Narration string `json:"narration"`
	// Account is the full account name (e.g., "Assets:RU:Sber:SBER").
	Account string `json:"account"`
	// Position is the posting's units and cost.
	Position Position `json:"position"`
	// DateDiff is the number of days from the cost date to the transaction
	// date, zero if the position has no cost date.
	DateDiff int `json:"date_diff"`
	// Weight is the amount the posting contributes to the transaction balance.
	Weight decimal.Decimal `json:"weight"`
	// Price is the per-unit price annotation, zero if absent.
	Price decimal.Decimal `json:"price"`
	// PriceCurrency is the currency of Price, empty if absent.
	PriceCurrency string `json:"price_currency,omitempty"`
}

// HoldingRow is an open position grouped by acquisition lot.
type HoldingRow struct {
	// Account is the full account name.
	Account string `json:"account"`
	// Units is the summed quantity of the lot.
	Units decimal.Decimal `json:"units"`
	// Currency is the commodity held.
	Currency string `json:"currency"`
	// AcquisitionDate is the lot's cost date, zero for positions not held at cost.
	AcquisitionDate xtime.Date `json:"acquisition_date"`
	// CostCurrency is the currency of CostBasis and MarketValue.
	CostCurrency string `json:"cost_currency,omitempty"`
	// CostNumber is the per-unit cost of the lot.
	CostNumber decimal.Decimal `json:"cost_number"`
	// CostBasis is Units * CostNumber.
	CostBasis decimal.Decimal `json:"cost_basis"`
	// MarketValue is Units at the latest known price, or CostBasis if no price is known.
	MarketValue decimal.Decimal `json:"market_value"`
}

// PriceKey identifies a price series: a commodity quoted in a currency.
type PriceKey struct {
	Currency      string
	QuoteCurrency string
}

// IsEmpty returns true if the lot holds no units.
func (h *HoldingRow) IsEmpty() bool {
	return h.Units.IsZero()
}

// Match returns true if the row satisfies the filter.
func (f Filter) Match(row *Row) bool {
	if f.Year != 0 && row.Date.Year != f.Year {
		return false
	}
	if !f.MatchAccount(row.Account) {
		return false
	}
	if f.Weight == WeightNegative && !row.Weight.IsNegative() {
		return false
	}
	return true
}

// MatchAccount returns true if the account satisfies the account patterns of the filter.
func (f Filter) MatchAccount(account string) bool {
	if f.AccountPattern != nil && !f.AccountPattern.MatchString(account) {
		return false
	}
	for _, exclude := range f.ExcludeAccountPatterns {
		if exclude.MatchString(account) {
			return false
		}
	}
	return true
}

// FilterRows returns the rows matching the filter, preserving order.
func FilterRows(rows []*Row, filter Filter) []*Row {
	var result []*Row
	for _, row := range rows {
		if filter.Match(row) {
			result = append(result, row)
		}
	}
	return result
}

// LastBalance returns the running balance after the last row matching the filter.
func LastBalance(rows []*Row, filter Filter) (decimal.Decimal, bool) {
	balance := decimal.Zero
	found := false
	for _, row := range rows {
		if !filter.Match(row) {
			continue
		}
		balance = balance.Add(row.Position.Units)
		found = true
	}
	return balance, found
}

// GroupHoldings groups posting rows into holding lots.
//
// Rows are grouped by (account, cost date, currency, cost currency, cost number).
// Groups whose units sum to zero are kept so callers can distinguish emptied
// lots from lots that never existed. A lot is valued with the latest price
// quoted in its cost currency, and at cost if there is none.
func GroupHoldings(rows []*Row, filter Filter, latestPrices map[PriceKey]decimal.Decimal) []*HoldingRow {
	type holdingKey struct {
		account      string
		costDate     xtime.Date
		currency     string
		costCurrency string
		costNumber   string
	}
	var keys []holdingKey
	groups := make(map[holdingKey]*HoldingRow)
	for _, row := range rows {
		if !filter.MatchAccount(row.Account) {
			continue
		}
		key := holdingKey{
			account:      row.Account,
			costDate:     row.Position.CostDate,
			currency:     row.Position.Currency,
			costCurrency: row.Position.CostCurrency,
			costNumber:   row.Position.CostNumber.String(),
		}
		holding, ok := groups[key]
		if !ok {
			holding = &HoldingRow{
				Account:         row.Account,
				Currency:        row.Position.Currency,
				AcquisitionDate: row.Position.CostDate,
				CostCurrency:    row.Position.CostCurrency,
				CostNumber:      row.Position.CostNumber,
			}
			groups[key] = holding
			keys = append(keys, key)
		}
		holding.Units = holding.Units.Add(row.Position.Units)
	}
	result := make([]*HoldingRow, 0, len(keys))
	for _, key := range keys {
		holding := groups[key]
		if holding.CostCurrency == "" {
			// Not held at cost: the basis and value are the units themselves.
			holding.CostBasis = holding.Units
			holding.MarketValue = holding.Units
		} else {
			holding.CostBasis = holding.Units.Mul(holding.CostNumber)
			holding.MarketValue = holding.CostBasis
			if price, ok := latestPrices[PriceKey{Currency: holding.Currency, QuoteCurrency: holding.CostCurrency}]; ok {
				holding.MarketValue = holding.Units.Mul(price)
			}
		}
		result = append(result, holding)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Account != result[j].Account {
			return result[i].Account < result[j].Account
		}
		return result[i].AcquisitionDate.Before(result[j].AcquisitionDate)
	})
	return result
}
