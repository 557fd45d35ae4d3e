// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvledger

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestReadJournalFile(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	rows := journal.Rows()
	require.Len(t, rows, 9)
	// Rows are in date order regardless of file order.
	require.Equal(t, "buy-sber", rows[0].ID)
	require.Equal(t, "2021-03-01#2", rows[2].ID)
	require.Equal(t, "sell-sber", rows[4].ID)
	// Cost date defaults to the transaction date.
	require.Equal(t, xtime.Date{Year: 2020, Month: 1, Day: 10}, rows[0].Position.CostDate)
	require.Len(t, journal.Prices(), 2)
}

func TestQueryPostingsDisposals(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	rows, err := journal.QueryPostings(context.Background(), Filter{
		Year:                   2023,
		AccountPattern:         regexp.MustCompile("Assets"),
		ExcludeAccountPatterns: []*regexp.Regexp{regexp.MustCompile("Cash")},
		Weight:                 WeightNegative,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "sell-sber", row.ID)
	require.Equal(t, "Assets:RU:Sber:SBER", row.Account)
	require.Equal(t, 1132, row.DateDiff)
	require.True(t, decimal.NewFromInt(-1000).Equal(row.Weight), row.Weight.String())
	require.True(t, decimal.NewFromInt(150).Equal(row.Price))
	require.Equal(t, "RUB", row.PriceCurrency)
}

func TestQueryPostingsCash(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	rows, err := journal.QueryPostings(context.Background(), Filter{
		Year:           2023,
		AccountPattern: regexp.MustCompile("Cash"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "sell-sber", rows[0].ID)
	require.True(t, decimal.NewFromInt(1500).Equal(rows[0].Position.Units))
	require.Equal(t, 0, rows[0].DateDiff)
}

func TestQueryLastBalance(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	fees, ok, err := journal.QueryLastBalance(context.Background(), Filter{
		Year:           2023,
		AccountPattern: regexp.MustCompile("BrokerFees"),
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(15).Equal(fees))
	_, ok, err = journal.QueryLastBalance(context.Background(), Filter{
		Year:           2022,
		AccountPattern: regexp.MustCompile("BrokerFees"),
	})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestQueryHoldings(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	holdings, err := journal.QueryHoldings(context.Background(), Filter{
		AccountPattern: regexp.MustCompile("Assets"),
	})
	require.NoError(t, err)
	require.Len(t, holdings, 3)

	cash := holdings[0]
	require.Equal(t, "Assets:RU:Sber:Cash", cash.Account)
	require.True(t, cash.AcquisitionDate.IsZero())
	require.True(t, decimal.NewFromInt(-1515).Equal(cash.Units), cash.Units.String())

	gazp := holdings[1]
	require.Equal(t, "Assets:RU:Sber:GAZP", gazp.Account)
	require.Equal(t, xtime.Date{Year: 2021, Month: 3, Day: 1}, gazp.AcquisitionDate)
	require.True(t, decimal.NewFromInt(2000).Equal(gazp.CostBasis))
	require.True(t, decimal.NewFromInt(2500).Equal(gazp.MarketValue))

	sber := holdings[2]
	require.Equal(t, "Assets:RU:Sber:SBER", sber.Account)
	require.True(t, sber.IsEmpty())
}

func TestQueryHoldingsIgnoresOtherQuoteCurrencies(t *testing.T) {
	t.Parallel()
	journal, err := NewJournal(ExternalJournal{
		Transactions: []ExternalTransaction{
			{
				Date: "2021-03-01",
				Postings: []ExternalPosting{
					{Account: "Assets:RU:Sber:GAZP", Units: "10", Currency: "GAZP", Cost: "200", CostCurrency: "RUB"},
					{Account: "Assets:RU:Sber:Cash", Units: "-2000", Currency: "RUB"},
				},
			},
			{
				Date: "2021-06-01",
				Postings: []ExternalPosting{
					{Account: "Assets:US:IB:AAPL", Units: "2", Currency: "AAPL", Cost: "100", CostCurrency: "USD"},
					{Account: "Assets:US:IB:Cash", Units: "-200", Currency: "USD"},
				},
			},
		},
		Prices: []ExternalPrice{
			{Date: "2023-12-28", Currency: "GAZP", Amount: "250", QuoteCurrency: "RUB"},
			{Date: "2023-12-29", Currency: "GAZP", Amount: "3", QuoteCurrency: "USD"},
			{Date: "2023-12-29", Currency: "AAPL", Amount: "15000", QuoteCurrency: "RUB"},
		},
	})
	require.NoError(t, err)
	holdings, err := journal.QueryHoldings(context.Background(), Filter{
		AccountPattern:         regexp.MustCompile("Assets"),
		ExcludeAccountPatterns: []*regexp.Regexp{regexp.MustCompile("Cash")},
	})
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	gazp := holdings[0]
	require.Equal(t, "Assets:RU:Sber:GAZP", gazp.Account)
	require.True(t, decimal.NewFromInt(2500).Equal(gazp.MarketValue), gazp.MarketValue.String())
	// No USD quote for AAPL, so the lot is valued at cost.
	aapl := holdings[1]
	require.Equal(t, "Assets:US:IB:AAPL", aapl.Account)
	require.True(t, decimal.NewFromInt(200).Equal(aapl.MarketValue), aapl.MarketValue.String())
}

func TestLatestPrices(t *testing.T) {
	t.Parallel()
	prices := []*Price{
		{Date: xtime.Date{Year: 2023, Month: 12, Day: 29}, Currency: "GAZP", Amount: decimal.NewFromInt(250), QuoteCurrency: "RUB"},
		{Date: xtime.Date{Year: 2023, Month: 12, Day: 28}, Currency: "GAZP", Amount: decimal.NewFromInt(240), QuoteCurrency: "RUB"},
		{Date: xtime.Date{Year: 2023, Month: 12, Day: 27}, Currency: "GAZP", Amount: decimal.NewFromInt(3), QuoteCurrency: "USD"},
	}
	latestPrices := LatestPrices(prices)
	require.Len(t, latestPrices, 2)
	require.True(t, decimal.NewFromInt(250).Equal(latestPrices[PriceKey{Currency: "GAZP", QuoteCurrency: "RUB"}]))
	require.True(t, decimal.NewFromInt(3).Equal(latestPrices[PriceKey{Currency: "GAZP", QuoteCurrency: "USD"}]))
}

func TestNewJournalErrors(t *testing.T) {
	t.Parallel()
	validPostings := []ExternalPosting{
		{Account: "Assets:Cash", Units: "1", Currency: "RUB"},
		{Account: "Equity:Opening", Units: "-1", Currency: "RUB"},
	}
	for _, test := range []struct {
		desc    string
		journal ExternalJournal
	}{
		{
			desc: "invalid date",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-13-01", Postings: validPostings},
			}},
		},
		{
			desc: "duplicate id",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{ID: "a", Date: "2023-01-01", Postings: validPostings},
				{ID: "a", Date: "2023-01-02", Postings: validPostings},
			}},
		},
		{
			desc: "no postings",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-01-01"},
			}},
		},
		{
			desc: "cost without cost currency",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-01-01", Postings: []ExternalPosting{
					{Account: "Assets:SBER", Units: "1", Currency: "SBER", Cost: "100"},
				}},
			}},
		},
		{
			desc: "cost date without cost",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-01-01", Postings: []ExternalPosting{
					{Account: "Assets:SBER", Units: "1", Currency: "SBER", CostDate: "2022-01-01"},
				}},
			}},
		},
		{
			desc: "invalid units",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-01-01", Postings: []ExternalPosting{
					{Account: "Assets:Cash", Units: "1,5", Currency: "RUB"},
				}},
			}},
		},
		{
			desc: "price currency without price",
			journal: ExternalJournal{Transactions: []ExternalTransaction{
				{Date: "2023-01-01", Postings: []ExternalPosting{
					{Account: "Assets:Cash", Units: "1", Currency: "USD", PriceCurrency: "RUB"},
				}},
			}},
		},
		{
			desc: "price without quote currency",
			journal: ExternalJournal{
				Transactions: []ExternalTransaction{{Date: "2023-01-01", Postings: validPostings}},
				Prices:       []ExternalPrice{{Date: "2023-01-01", Currency: "SBER", Amount: "1"}},
			},
		},
	} {
		_, err := NewJournal(test.journal)
		require.Error(t, err, test.desc)
	}
}

func TestWeight(t *testing.T) {
	t.Parallel()
	atCost := Position{
		Units:        decimal.NewFromInt(-4),
		Currency:     "SBER",
		CostNumber:   decimal.NewFromInt(100),
		CostCurrency: "RUB",
	}
	require.True(t, decimal.NewFromInt(-400).Equal(Weight(atCost, decimal.NewFromInt(150))))
	priced := Position{Units: decimal.NewFromInt(100), Currency: "USD"}
	require.True(t, decimal.NewFromInt(9000).Equal(Weight(priced, decimal.NewFromInt(90))))
	plain := Position{Units: decimal.NewFromInt(-15), Currency: "RUB"}
	require.True(t, decimal.NewFromInt(-15).Equal(Weight(plain, decimal.Zero)))
}

func TestFilterMatch(t *testing.T) {
	t.Parallel()
	row := &Row{
		Date:    xtime.Date{Year: 2023, Month: 5, Day: 1},
		Account: "Assets:RU:BCS:FX:USD",
		Weight:  decimal.NewFromInt(-1),
	}
	require.True(t, Filter{}.Match(row))
	require.True(t, Filter{Year: 2023, Weight: WeightNegative}.Match(row))
	require.False(t, Filter{Year: 2022}.Match(row))
	require.False(t, Filter{
		AccountPattern:         regexp.MustCompile("Assets"),
		ExcludeAccountPatterns: []*regexp.Regexp{regexp.MustCompile("Assets:RU:BCS:FX")},
	}.Match(row))
	row.Weight = decimal.Zero
	require.False(t, Filter{Weight: WeightNegative}.Match(row))
}

func TestWriteJournalFileRoundTrip(t *testing.T) {
	t.Parallel()
	journal, err := ReadJournalFile("testdata/journal.yaml")
	require.NoError(t, err)
	externalJournal := journal.ExternalJournal()
	require.Len(t, externalJournal.Transactions, 4)
	require.Equal(t, "2021-03-01#2", externalJournal.Transactions[1].ID)
	require.Equal(t, "2020-01-10", externalJournal.Transactions[0].Postings[0].CostDate)
	require.Empty(t, externalJournal.Transactions[0].Postings[1].Cost)
	sell := externalJournal.Transactions[2]
	require.Equal(t, "sell-sber", sell.ID)
	require.Equal(t, "150", sell.Postings[0].Price)
	require.Equal(t, "RUB", sell.Postings[0].PriceCurrency)

	filePath := filepath.Join(t.TempDir(), "journal.yaml")
	require.NoError(t, WriteJournalFile(filePath, journal))
	reread, err := ReadJournalFile(filePath)
	require.NoError(t, err)
	decimalComparer := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(journal.Rows(), reread.Rows(), decimalComparer); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(journal.Prices(), reread.Prices(), decimalComparer); diff != "" {
		t.Errorf("prices mismatch (-want +got):\n%s", diff)
	}
}
