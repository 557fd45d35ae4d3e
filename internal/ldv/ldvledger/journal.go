// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/bufdev/ldvctl/internal/pkg/yamlio"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// ExternalJournal is the YAML-serializable journal file structure.
type ExternalJournal struct {
	// Transactions is the list of transactions, in any order.
	Transactions []ExternalTransaction `yaml:"transactions"`
	// Prices is the list of price observations used for market values.
	Prices []ExternalPrice `yaml:"prices,omitempty"`
}

// ExternalTransaction is a single transaction in the journal file.
type ExternalTransaction struct {
	// ID is the transaction identifier. Optional; derived from date and position if empty.
	ID string `yaml:"id,omitempty"`
	// Date is the transaction date in YYYY-MM-DD format.
	Date string `yaml:"date"`
	// Narration is the transaction description.
	Narration string `yaml:"narration,omitempty"`
	// Postings are the legs of the transaction.
	Postings []ExternalPosting `yaml:"postings"`
}

// ExternalPosting is a single posting in the journal file.
type ExternalPosting struct {
	// Account is the full account name.
	Account string `yaml:"account"`
	// Units is the signed quantity as a decimal string.
	Units string `yaml:"units"`
	// Currency is the commodity or currency of Units.
	Currency string `yaml:"currency"`
	// Cost is the per-unit cost as a decimal string. Optional.
	Cost string `yaml:"cost,omitempty"`
	// CostCurrency is the currency of Cost. Required if Cost is set.
	CostCurrency string `yaml:"cost_currency,omitempty"`
	// CostDate is the lot acquisition date. Defaults to the transaction date if Cost is set.
	CostDate string `yaml:"cost_date,omitempty"`
	// Price is the per-unit price annotation as a decimal string. Optional.
	Price string `yaml:"price,omitempty"`
	// PriceCurrency is the currency of Price.
	PriceCurrency string `yaml:"price_currency,omitempty"`
}

// ExternalPrice is a price observation in the journal file.
type ExternalPrice struct {
	// Date is the observation date in YYYY-MM-DD format.
	Date string `yaml:"date"`
	// Currency is the commodity being priced.
	Currency string `yaml:"currency"`
	// Amount is the price per unit as a decimal string.
	Amount string `yaml:"amount"`
	// QuoteCurrency is the currency of Amount.
	QuoteCurrency string `yaml:"quote_currency"`
}

// Price is a validated price observation.
type Price struct {
	Date          xtime.Date
	Currency      string
	Amount        decimal.Decimal
	QuoteCurrency string
}

// Journal is an in-memory ledger.
//
// A Journal is immutable after construction and safe for concurrent queries.
type Journal struct {
	rows         []*Row
	prices       []*Price
	latestPrices map[PriceKey]decimal.Decimal
}

var _ Querier = &Journal{}

// NewJournal validates an ExternalJournal and returns a Journal.
func NewJournal(externalJournal ExternalJournal) (*Journal, error) {
	type datedTransaction struct {
		date        xtime.Date
		transaction ExternalTransaction
		index       int
	}
	transactions := make([]datedTransaction, 0, len(externalJournal.Transactions))
	seenIDs := make(map[string]struct{}, len(externalJournal.Transactions))
	for i, transaction := range externalJournal.Transactions {
		date, err := xtime.ParseDate(transaction.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: invalid date %q: %w", i, transaction.Date, err)
		}
		if transaction.ID == "" {
			transaction.ID = fmt.Sprintf("%s#%d", date, i)
		}
		if _, ok := seenIDs[transaction.ID]; ok {
			return nil, fmt.Errorf("transaction %d: duplicate id %q", i, transaction.ID)
		}
		seenIDs[transaction.ID] = struct{}{}
		if len(transaction.Postings) == 0 {
			return nil, fmt.Errorf("transaction %s: no postings", transaction.ID)
		}
		transactions = append(transactions, datedTransaction{date: date, transaction: transaction, index: i})
	}
	// Ledger order is by date, then by position in the file.
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].date.Before(transactions[j].date)
	})
	var rows []*Row
	for _, dated := range transactions {
		for _, posting := range dated.transaction.Postings {
			row, err := newRow(dated.transaction, dated.date, posting)
			if err != nil {
				return nil, fmt.Errorf("transaction %s: %w", dated.transaction.ID, err)
			}
			rows = append(rows, row)
		}
	}
	prices := make([]*Price, 0, len(externalJournal.Prices))
	for i, externalPrice := range externalJournal.Prices {
		price, err := newPrice(externalPrice)
		if err != nil {
			return nil, fmt.Errorf("price %d: %w", i, err)
		}
		prices = append(prices, price)
	}
	return NewJournalFromRows(rows, prices), nil
}

// NewJournalFromRows returns a Journal over already validated rows in ledger order.
func NewJournalFromRows(rows []*Row, prices []*Price) *Journal {
	return &Journal{
		rows:         rows,
		prices:       prices,
		latestPrices: LatestPrices(prices),
	}
}

// ReadJournalFile reads and validates a YAML journal file.
func ReadJournalFile(filePath string) (*Journal, error) {
	var externalJournal ExternalJournal
	if err := yamlio.ReadFileStrict(filePath, &externalJournal); err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return NewJournal(externalJournal)
}

// WriteJournalFile writes the journal as a YAML journal file.
func WriteJournalFile(filePath string, journal *Journal) error {
	if err := yamlio.WriteFile(filePath, journal.ExternalJournal()); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}

// ExternalJournal returns the journal in its YAML-serializable form.
//
// Rows sharing a transaction id are regrouped into one transaction, in ledger
// order.
func (j *Journal) ExternalJournal() ExternalJournal {
	var externalJournal ExternalJournal
	transactionIndexes := make(map[string]int)
	for _, row := range j.rows {
		index, ok := transactionIndexes[row.ID]
		if !ok {
			index = len(externalJournal.Transactions)
			transactionIndexes[row.ID] = index
			externalJournal.Transactions = append(
				externalJournal.Transactions,
				ExternalTransaction{
					ID:        row.ID,
					Date:      row.Date.String(),
					Narration: row.Narration,
				},
			)
		}
		externalJournal.Transactions[index].Postings = append(
			externalJournal.Transactions[index].Postings,
			newExternalPosting(row),
		)
	}
	for _, price := range j.prices {
		externalJournal.Prices = append(
			externalJournal.Prices,
			ExternalPrice{
				Date:          price.Date.String(),
				Currency:      price.Currency,
				Amount:        price.Amount.String(),
				QuoteCurrency: price.QuoteCurrency,
			},
		)
	}
	return externalJournal
}

// Rows returns all posting rows in ledger order.
func (j *Journal) Rows() []*Row {
	return j.rows
}

// Prices returns all price observations in file order.
func (j *Journal) Prices() []*Price {
	return j.prices
}

// QueryPostings implements Querier.
func (j *Journal) QueryPostings(ctx context.Context, filter Filter) ([]*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FilterRows(j.rows, filter), nil
}

// QueryLastBalance implements Querier.
func (j *Journal) QueryLastBalance(ctx context.Context, filter Filter) (decimal.Decimal, bool, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, false, err
	}
	balance, ok := LastBalance(j.rows, filter)
	return balance, ok, nil
}

// QueryHoldings implements Querier.
func (j *Journal) QueryHoldings(ctx context.Context, filter Filter) ([]*HoldingRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GroupHoldings(j.rows, filter, j.latestPrices), nil
}

// LatestPrices maps each price series to its most recent price.
// Ties on the same date are resolved in favor of the later observation.
func LatestPrices(prices []*Price) map[PriceKey]decimal.Decimal {
	latestDates := make(map[PriceKey]xtime.Date, len(prices))
	latestPrices := make(map[PriceKey]decimal.Decimal, len(prices))
	for _, price := range prices {
		key := PriceKey{Currency: price.Currency, QuoteCurrency: price.QuoteCurrency}
		if latestDate, ok := latestDates[key]; ok && price.Date.Before(latestDate) {
			continue
		}
		latestDates[key] = price.Date
		latestPrices[key] = price.Amount
	}
	return latestPrices
}

// Weight returns the amount a position contributes to its transaction balance:
// units at cost if held at cost, units at price if priced, else the units.
func Weight(position Position, price decimal.Decimal) decimal.Decimal {
	switch {
	case position.HasCost():
		return position.Units.Mul(position.CostNumber)
	case !price.IsZero():
		return position.Units.Mul(price)
	default:
		return position.Units
	}
}

// NewRow builds a Row, deriving DateDiff and Weight from the position.
func NewRow(
	id string,
	date xtime.Date,
	narration string,
	account string,
	position Position,
	price decimal.Decimal,
	priceCurrency string,
) *Row {
	var dateDiff int
	if !position.CostDate.IsZero() {
		dateDiff = date.DaysSince(position.CostDate)
	}
	return &Row{
		ID:            id,
		Date:          date,
		Narration:     narration,
		Account:       account,
		Position:      position,
		DateDiff:      dateDiff,
		Weight:        Weight(position, price),
		Price:         price,
		PriceCurrency: priceCurrency,
	}
}

// *** PRIVATE ***

func newRow(transaction ExternalTransaction, date xtime.Date, posting ExternalPosting) (*Row, error) {
	if posting.Account == "" {
		return nil, errors.New("posting account is required")
	}
	if posting.Currency == "" {
		return nil, fmt.Errorf("posting to %s: currency is required", posting.Account)
	}
	units, err := decimalfmt.Parse(posting.Units)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", posting.Account, err)
	}
	position := Position{
		Units:    units,
		Currency: posting.Currency,
	}
	if posting.Cost != "" {
		if posting.CostCurrency == "" {
			return nil, fmt.Errorf("posting to %s: cost_currency is required with cost", posting.Account)
		}
		costNumber, err := decimalfmt.Parse(posting.Cost)
		if err != nil {
			return nil, fmt.Errorf("posting to %s: %w", posting.Account, err)
		}
		costDate := date
		if posting.CostDate != "" {
			costDate, err = xtime.ParseDate(posting.CostDate)
			if err != nil {
				return nil, fmt.Errorf("posting to %s: invalid cost_date %q: %w", posting.Account, posting.CostDate, err)
			}
		}
		position.CostNumber = costNumber
		position.CostCurrency = posting.CostCurrency
		position.CostDate = costDate
	} else if posting.CostCurrency != "" || posting.CostDate != "" {
		return nil, fmt.Errorf("posting to %s: cost_currency and cost_date require cost", posting.Account)
	}
	if posting.PriceCurrency != "" && posting.Price == "" {
		return nil, fmt.Errorf("posting to %s: price_currency requires price", posting.Account)
	}
	price, err := decimalfmt.Parse(posting.Price)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", posting.Account, err)
	}
	return NewRow(transaction.ID, date, transaction.Narration, posting.Account, position, price, posting.PriceCurrency), nil
}

func newExternalPosting(row *Row) ExternalPosting {
	externalPosting := ExternalPosting{
		Account:  row.Account,
		Units:    row.Position.Units.String(),
		Currency: row.Position.Currency,
	}
	if row.Position.HasCost() {
		externalPosting.Cost = row.Position.CostNumber.String()
		externalPosting.CostCurrency = row.Position.CostCurrency
		externalPosting.CostDate = row.Position.CostDate.String()
	}
	if !row.Price.IsZero() {
		externalPosting.Price = row.Price.String()
		externalPosting.PriceCurrency = row.PriceCurrency
	}
	return externalPosting
}

func newPrice(externalPrice ExternalPrice) (*Price, error) {
	date, err := xtime.ParseDate(externalPrice.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", externalPrice.Date, err)
	}
	if externalPrice.Currency == "" || externalPrice.QuoteCurrency == "" {
		return nil, errors.New("currency and quote_currency are required")
	}
	amount, err := decimalfmt.Parse(externalPrice.Amount)
	if err != nil {
		return nil, err
	}
	return &Price{
		Date:          date,
		Currency:      externalPrice.Currency,
		Amount:        amount,
		QuoteCurrency: externalPrice.QuoteCurrency,
	}, nil
}
