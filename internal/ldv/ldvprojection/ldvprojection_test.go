// Copyright 2026 Peter Edge
//
// All rights reserved.

package ldvprojection

import (
	"testing"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	t.Parallel()
	today := xtime.Date{Year: 2026, Month: 10, Day: 16}
	matured := newLot("Assets:RU:Sber:SBER", "10", xtime.Date{Year: 2020, Month: 1, Day: 10})
	future := newLot("Assets:RU:Sber:GAZP", "5", xtime.Date{Year: 2023, Month: 12, Day: 1})
	nextYear := newLot("Assets:RU:Sber:LKOH", "1", xtime.Date{Year: 2024, Month: 3, Day: 1})
	cash := newLot("Assets:RU:Sber:Cash", "1000", xtime.Date{})
	emptied := newLot("Assets:RU:Sber:YNDX", "0", xtime.Date{Year: 2021, Month: 1, Day: 1})

	projection, err := Project([]*ldvledger.HoldingRow{matured, future, nextYear, cash, emptied}, today, DefaultYears)
	require.NoError(t, err)
	require.Equal(t, xtime.Date{Year: 2027, Month: 1, Day: 1}, projection.Horizon)
	require.Len(t, projection.Matured, 1)
	require.Same(t, matured, projection.Matured[0].HoldingRow)
	require.Equal(t, xtime.Date{Year: 2023, Month: 1, Day: 9}, projection.Matured[0].LDVDate)
	require.Len(t, projection.Future, 1)
	require.Same(t, future, projection.Future[0].HoldingRow)
	require.Equal(t, xtime.Date{Year: 2026, Month: 11, Day: 30}, projection.Future[0].LDVDate)

	projection, err = Project([]*ldvledger.HoldingRow{matured, future, nextYear}, today, 2)
	require.NoError(t, err)
	require.Equal(t, xtime.Date{Year: 2028, Month: 1, Day: 1}, projection.Horizon)
	require.Len(t, projection.Matured, 1)
	require.Len(t, projection.Future, 2)
	require.Same(t, nextYear, projection.Future[1].HoldingRow)
	require.Equal(t, xtime.Date{Year: 2027, Month: 3, Day: 1}, projection.Future[1].LDVDate)
}

func TestProjectBoundaries(t *testing.T) {
	t.Parallel()
	today := xtime.Date{Year: 2026, Month: 10, Day: 16}
	horizon := Horizon(today, 1)
	// Reaches LDV exactly today: not yet matured.
	onToday := newLot("Assets:A", "1", today.AddDays(-1095))
	// Reaches LDV the day before today.
	beforeToday := newLot("Assets:B", "1", today.AddDays(-1096))
	// Reaches LDV exactly on the horizon: excluded.
	onHorizon := newLot("Assets:C", "1", horizon.AddDays(-1095))
	// Reaches LDV the day before the horizon.
	beforeHorizon := newLot("Assets:D", "1", horizon.AddDays(-1096))

	projection, err := Project([]*ldvledger.HoldingRow{onToday, beforeToday, onHorizon, beforeHorizon}, today, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Assets:B"}, accounts(projection.Matured))
	require.Equal(t, []string{"Assets:A", "Assets:D"}, accounts(projection.Future))
}

func TestProjectDisjoint(t *testing.T) {
	t.Parallel()
	today := xtime.Date{Year: 2026, Month: 1, Day: 1}
	var lots []*ldvledger.HoldingRow
	start := xtime.Date{Year: 2020, Month: 1, Day: 1}
	for i := 0; i < 3000; i += 7 {
		lots = append(lots, newLot("Assets:X", "1", start.AddDays(i)))
	}
	projection, err := Project(lots, today, 3)
	require.NoError(t, err)
	seen := make(map[*ldvledger.HoldingRow]struct{})
	for _, lot := range append(append([]*ProjectedLot(nil), projection.Matured...), projection.Future...) {
		_, ok := seen[lot.HoldingRow]
		require.False(t, ok)
		seen[lot.HoldingRow] = struct{}{}
	}
	for _, lot := range projection.Matured {
		require.True(t, lot.LDVDate.Before(today))
	}
	for _, lot := range projection.Future {
		require.True(t, lot.LDVDate.EqualOrAfter(today))
		require.True(t, lot.LDVDate.Before(projection.Horizon))
	}
}

func TestProjectInvalid(t *testing.T) {
	t.Parallel()
	_, err := Project(nil, xtime.Date{Year: 2026, Month: 1, Day: 1}, 0)
	require.Error(t, err)
	_, err = Project(nil, xtime.Date{}, 1)
	require.Error(t, err)
}

func TestProjectedLotToTableRow(t *testing.T) {
	t.Parallel()
	lot := &ProjectedLot{
		HoldingRow: &ldvledger.HoldingRow{
			Account:         "Assets:RU:Sber:GAZP",
			Units:           decimal.NewFromInt(10),
			Currency:        "GAZP",
			AcquisitionDate: xtime.Date{Year: 2021, Month: 3, Day: 1},
			CostCurrency:    "RUB",
			CostNumber:      decimal.NewFromInt(200),
			CostBasis:       decimal.NewFromInt(2000),
			MarketValue:     decimal.NewFromInt(2500),
		},
		LDVDate: xtime.Date{Year: 2024, Month: 2, Day: 29},
	}
	require.Equal(
		t,
		[]string{"Assets:RU:Sber:GAZP", "10", "GAZP", "2021-03-01", "2 500.00", "2 000.00", "RUB", "2024-02-29"},
		ProjectedLotToTableRow(lot),
	)
	require.Len(t, ProjectedLotToRow(lot), len(ProjectedLotHeaders()))
}

func newLot(account string, units string, acquisitionDate xtime.Date) *ldvledger.HoldingRow {
	return &ldvledger.HoldingRow{
		Account:         account,
		Units:           decimal.RequireFromString(units),
		Currency:        "X",
		AcquisitionDate: acquisitionDate,
	}
}

func accounts(lots []*ProjectedLot) []string {
	result := make([]string, 0, len(lots))
	for _, lot := range lots {
		result = append(result, lot.Account)
	}
	return result
}
