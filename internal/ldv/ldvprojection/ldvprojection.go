// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvprojection projects when currently held lots cross the
// long-duration holding (LDV) threshold.
package ldvprojection

import (
	"errors"
	"fmt"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/ldv/ldvtaxreport"
	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
)

// DefaultYears is the default projection window in years.
const DefaultYears = 1

// ProjectedLot is a holding lot with the date it reaches LDV.
type ProjectedLot struct {
	*ldvledger.HoldingRow
	// LDVDate is the acquisition date plus the LDV holding period.
	LDVDate xtime.Date `json:"ldv_date"`
}

// Projection partitions holding lots by when they reach LDV.
//
// A lot appears in at most one of Matured and Future.
type Projection struct {
	// Matured are the lots that reached LDV before today.
	Matured []*ProjectedLot
	// Future are the lots that reach LDV on or after today and before Horizon.
	Future []*ProjectedLot
	// Horizon is the exclusive upper bound of Future.
	Horizon xtime.Date
}

// LDVDate returns the date a lot acquired on acquisitionDate reaches LDV.
func LDVDate(acquisitionDate xtime.Date) xtime.Date {
	return acquisitionDate.AddDays(ldvtaxreport.LDVDays)
}

// Horizon returns January 1 of the year that is years after today's year.
func Horizon(today xtime.Date, years int) xtime.Date {
	return xtime.FirstDayOfYear(today.Year + years)
}

// Project partitions lots into matured and future buckets.
//
// Lots without an acquisition date (e.g., cash) and emptied lots are skipped.
// Lots reaching LDV on or after the horizon are in neither bucket.
func Project(lots []*ldvledger.HoldingRow, today xtime.Date, years int) (*Projection, error) {
	if years < 1 {
		return nil, fmt.Errorf("years must be at least 1, got %d", years)
	}
	if today.IsZero() {
		return nil, errors.New("today is required")
	}
	projection := &Projection{
		Horizon: Horizon(today, years),
	}
	for _, lot := range lots {
		if lot.AcquisitionDate.IsZero() || lot.IsEmpty() {
			continue
		}
		projectedLot := &ProjectedLot{
			HoldingRow: lot,
			LDVDate:    LDVDate(lot.AcquisitionDate),
		}
		switch {
		case projectedLot.LDVDate.Before(today):
			projection.Matured = append(projection.Matured, projectedLot)
		case projectedLot.LDVDate.Before(projection.Horizon):
			projection.Future = append(projection.Future, projectedLot)
		}
	}
	return projection, nil
}

// ProjectedLotHeaders returns the column headers for table/CSV output.
func ProjectedLotHeaders() []string {
	return []string{"ACCOUNT", "UNITS", "CURRENCY", "ACQUIRED", "MARKET VALUE", "BASIS", "COST CURRENCY", "LDV DATE"}
}

// ProjectedLotToRow converts a ProjectedLot to a string slice for CSV output.
func ProjectedLotToRow(lot *ProjectedLot) []string {
	return []string{
		lot.Account,
		lot.Units.String(),
		lot.Currency,
		lot.AcquisitionDate.String(),
		decimalfmt.FormatPlain(lot.MarketValue),
		decimalfmt.FormatPlain(lot.CostBasis),
		lot.CostCurrency,
		lot.LDVDate.String(),
	}
}

// ProjectedLotToTableRow converts a ProjectedLot to a string slice for table
// output, with thousands grouping on monetary columns.
func ProjectedLotToTableRow(lot *ProjectedLot) []string {
	row := ProjectedLotToRow(lot)
	row[4] = decimalfmt.Format(lot.MarketValue)
	row[5] = decimalfmt.Format(lot.CostBasis)
	return row
}
