// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvtaxreport

import (
	"context"
	"math/rand/v2"
	"regexp"
	"testing"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestClassifyOrdinaryGain(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{newDisposalRow("T1", -10, 100, 400)},
		[]*ldvledger.Row{newCashRow("T1", 1500)},
	)
	require.True(t, classification.HasData())
	require.Empty(t, classification.LongTerm)
	require.Len(t, classification.Ordinary, 1)
	disposal := classification.Ordinary[0]
	requireDecimal(t, "1500", disposal.AllocatedPrice)
	requireDecimal(t, "1000", disposal.Cost)
	requireDecimal(t, "500", disposal.Base)
	require.False(t, disposal.LongTerm)
	requireDecimal(t, "500", classification.Totals.Sum)
	requireDecimal(t, "0", classification.Totals.SumLDV)
	requireDecimal(t, "500", classification.Totals.SumTotal)
	requireDecimal(t, "1500", classification.Totals.TotalSale)
	requireDecimal(t, "1000", classification.Totals.TotalCost)
	require.Equal(t, "RUB", classification.Currency)
}

func TestClassifyLongHeldLossStaysOrdinary(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{newDisposalRow("T1", -10, 100, 1100)},
		[]*ldvledger.Row{newCashRow("T1", 800)},
	)
	require.Empty(t, classification.LongTerm)
	require.Len(t, classification.Ordinary, 1)
	requireDecimal(t, "-200", classification.Ordinary[0].Base)
	requireDecimal(t, "-200", classification.Totals.Sum)
	requireDecimal(t, "0", classification.Totals.SumLDV)
}

func TestClassifyLongTermThreshold(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{
			newDisposalRow("T1", -1, 100, LDVDays-1),
			newDisposalRow("T2", -1, 100, LDVDays),
			newDisposalRow("T3", -1, 100, LDVDays),
		},
		[]*ldvledger.Row{
			newCashRow("T1", 150),
			newCashRow("T2", 150),
			// Break-even: zero gain is not net-positive.
			newCashRow("T3", 100),
		},
	)
	require.Len(t, classification.Ordinary, 2)
	require.Equal(t, "T1", classification.Ordinary[0].ID)
	require.Equal(t, "T3", classification.Ordinary[1].ID)
	require.Len(t, classification.LongTerm, 1)
	require.Equal(t, "T2", classification.LongTerm[0].ID)
	require.True(t, classification.LongTerm[0].LongTerm)
	requireDecimal(t, "50", classification.Totals.Sum)
	requireDecimal(t, "50", classification.Totals.SumLDV)
	requireDecimal(t, "100", classification.Totals.SumTotal)
}

func TestClassifyPartialFills(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{
			newDisposalRow("T2", -4, 100, 10),
			newDisposalRow("T2", -6, 100, 10),
		},
		[]*ldvledger.Row{newCashRow("T2", 2000)},
	)
	require.Len(t, classification.Ordinary, 2)
	requireDecimal(t, "800", classification.Ordinary[0].AllocatedPrice)
	requireDecimal(t, "1200", classification.Ordinary[1].AllocatedPrice)
	requireDecimal(t, "400", classification.Ordinary[0].Cost)
	requireDecimal(t, "600", classification.Ordinary[1].Cost)
	requireDecimal(t, "2000", classification.Totals.TotalSale)
	requireDecimal(t, "1000", classification.Totals.SumTotal)
}

func TestClassifyPriceAllocationConservation(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{
			newDisposalRow("T3", -1, 10, 10),
			newDisposalRow("T3", -1, 10, 10),
			newDisposalRow("T3", -1, 10, 10),
		},
		[]*ldvledger.Row{newCashRow("T3", 100)},
	)
	require.Len(t, classification.Ordinary, 3)
	for _, disposal := range classification.Ordinary {
		requireDecimal(t, "33.33", disposal.AllocatedPrice)
	}
	// The unrounded shares add back up to the cash amount.
	diff := classification.Totals.TotalSale.Sub(decimal.NewFromInt(100)).Abs()
	require.True(t, diff.LessThan(decimal.RequireFromString("0.000001")), classification.Totals.TotalSale.String())
	require.Equal(t, "100.00", formatTotalsOf(classification).TotalSale)
}

func TestClassifySkipsUnmatched(t *testing.T) {
	t.Parallel()
	unmatched := newDisposalRow("T9", -5, 100, 10)
	classification := Classify(
		[]*ldvledger.Row{
			newDisposalRow("T1", -10, 100, 400),
			unmatched,
		},
		[]*ldvledger.Row{
			newCashRow("T1", 1500),
			newCashRow("T8", 999),
		},
	)
	require.Len(t, classification.Ordinary, 1)
	require.Equal(t, []*ldvledger.Row{unmatched}, classification.Skipped)
	requireDecimal(t, "500", classification.Totals.Sum)
	requireDecimal(t, "1500", classification.Totals.TotalSale)
}

func TestClassifyNoData(t *testing.T) {
	t.Parallel()
	classification := Classify(nil, []*ldvledger.Row{newCashRow("T1", 1500)})
	require.False(t, classification.HasData())
	require.Nil(t, classification.Totals)
	classification = Classify([]*ldvledger.Row{newDisposalRow("T1", -1, 1, 1)}, nil)
	require.False(t, classification.HasData())
	require.Len(t, classification.Skipped, 1)
	require.Nil(t, formatTotalsOf(classification))
}

func TestClassifyExclusivity(t *testing.T) {
	t.Parallel()
	random := rand.New(rand.NewPCG(1, 2))
	var disposals, cashRows []*ldvledger.Row
	for i := range 50 {
		id := "T" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		disposals = append(disposals, newDisposalRow(id, float64(-(1 + random.Int64N(20))), float64(1+random.Int64N(500)), random.IntN(2000)))
		cashRows = append(cashRows, newCashRow(id, random.Int64N(10000)))
	}
	classification := Classify(disposals, cashRows)
	require.Equal(t, len(disposals), len(classification.Ordinary)+len(classification.LongTerm))
	seen := make(map[*ldvledger.Row]struct{})
	for _, disposal := range append(classification.Ordinary, classification.LongTerm...) {
		_, ok := seen[disposal.Row]
		require.False(t, ok, "disposal %s classified twice", disposal.ID)
		seen[disposal.Row] = struct{}{}
		require.Equal(t, disposal.DateDiff >= LDVDays && disposal.Base.IsPositive(), disposal.LongTerm)
	}
	totals := classification.Totals
	require.True(t, totals.SumTotal.Equal(totals.Sum.Add(totals.SumLDV)))
}

func TestAggregateLots(t *testing.T) {
	t.Parallel()
	rows := []*ldvledger.Row{
		newDisposalRow("A", -4, 1, 1),
		newDisposalRow("B", -1, 1, 1),
		newDisposalRow("A", -6, 1, 1),
		newDisposalRow("C", -2, 1, 1),
		newDisposalRow("A", -0.5, 1, 1),
	}
	want := AggregateLots(rows)
	requireDecimal(t, "-10.5", want["A"])
	requireDecimal(t, "-1", want["B"])
	requireDecimal(t, "-2", want["C"])
	random := rand.New(rand.NewPCG(3, 4))
	for range 10 {
		shuffled := append([]*ldvledger.Row(nil), rows...)
		random.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := AggregateLots(shuffled)
		require.Len(t, got, len(want))
		for id, total := range want {
			requireDecimal(t, total.String(), got[id])
		}
	}
}

func TestMatchCashLegFirstMatchWins(t *testing.T) {
	t.Parallel()
	first := newCashRow("T1", 100)
	second := newCashRow("T1", 200)
	cashRows := []*ldvledger.Row{newCashRow("T0", 1), first, second}
	disposal := newDisposalRow("T1", -1, 1, 1)

	cashRow, ok := MatchCashLeg(disposal, cashRows)
	require.True(t, ok)
	require.Same(t, first, cashRow)
	cashRow, ok = NewCashLegIndex(cashRows).Match(disposal)
	require.True(t, ok)
	require.Same(t, first, cashRow)

	_, ok = MatchCashLeg(newDisposalRow("T2", -1, 1, 1), cashRows)
	require.False(t, ok)
	_, ok = NewCashLegIndex(cashRows).Match(newDisposalRow("T2", -1, 1, 1))
	require.False(t, ok)
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	journal, err := ldvledger.ReadJournalFile("../ldvledger/testdata/journal.yaml")
	require.NoError(t, err)
	params := Params{
		Year:              2023,
		AssetsPattern:     regexp.MustCompile("Assets"),
		CashPattern:       regexp.MustCompile("Cash"),
		BrokerFeesPattern: regexp.MustCompile("BrokerFees"),
		ExcludePatterns:   []*regexp.Regexp{regexp.MustCompile("Assets:RU:BCS:FX")},
	}
	report, err := BuildReport(context.Background(), journal, params)
	require.NoError(t, err)
	require.True(t, report.HasData())
	require.Empty(t, report.Ordinary)
	require.Len(t, report.LongTerm, 1)
	require.Equal(t, "sell-sber", report.LongTerm[0].ID)
	require.Empty(t, report.Skipped)
	require.Equal(t, &FormattedTotals{
		Currency:  "RUB",
		Sum:       "0.00",
		SumLDV:    "500.00",
		SumTotal:  "500.00",
		TotalSale: "1 500.00",
		TotalCost: "1 000.00",
		BrokerFee: "15.00",
	}, report.FormatTotals())

	params.Year = 2022
	report, err = BuildReport(context.Background(), journal, params)
	require.NoError(t, err)
	require.False(t, report.HasData())
	require.Nil(t, report.FormatTotals())
	require.True(t, report.BrokerFee.IsZero())
}

func TestDisposalToRow(t *testing.T) {
	t.Parallel()
	classification := Classify(
		[]*ldvledger.Row{newDisposalRow("T1", -10, 123.456, 400)},
		[]*ldvledger.Row{newCashRow("T1", 2500)},
	)
	disposal := classification.Ordinary[0]
	row := DisposalToRow(disposal)
	require.Len(t, row, len(DisposalHeaders()))
	require.Equal(t, []string{"2500.00", "1234.56", "1265.44", "false"}, row[7:])
	tableRow := DisposalToTableRow(disposal)
	require.Equal(t, []string{"2 500.00", "1 234.56", "1 265.44", "false"}, tableRow[7:])
}

// formatTotalsOf formats a bare classification the way a report would, with a zero broker fee.
func formatTotalsOf(classification *Classification) *FormattedTotals {
	return (&Report{Classification: classification}).FormatTotals()
}

func newDisposalRow(id string, units float64, costNumber float64, dateDiff int) *ldvledger.Row {
	date := xtime.Date{Year: 2023, Month: 6, Day: 1}
	position := ldvledger.Position{
		Units:        decimal.NewFromFloat(units),
		Currency:     "SBER",
		CostNumber:   decimal.NewFromFloat(costNumber),
		CostCurrency: "RUB",
		CostDate:     date.AddDays(-dateDiff),
	}
	row := ldvledger.NewRow(id, date, "Sell", "Assets:RU:Sber:SBER", position, decimal.Zero, "")
	return row
}

func newCashRow(id string, amount int64) *ldvledger.Row {
	position := ldvledger.Position{
		Units:    decimal.NewFromInt(amount),
		Currency: "RUB",
	}
	return ldvledger.NewRow(id, xtime.Date{Year: 2023, Month: 6, Day: 1}, "Sell", "Assets:RU:Sber:Cash", position, decimal.Zero, "")
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
