// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ldvsqlite provides a ledger store persisted in a SQLite database.
//
// The store holds the same postings and prices as a YAML journal. Year
// selection and ordering run in SQL; account pattern matching, weight
// selection, and holdings grouping reuse the ldvledger rules so the store
// answers every query exactly as the in-memory journal would.
package ldvsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bufdev/ldvctl/internal/ldv/ldvledger"
	"github.com/bufdev/ldvctl/internal/pkg/decimalfmt"
	"github.com/bufdev/ldvctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion is stored in user_version and checked on open.
	schemaVersion = 2
	// busyTimeout is how long a statement waits on a locked database.
	busyTimeout = 5 * time.Second
)

const createTablesStatement = `
CREATE TABLE IF NOT EXISTS postings (
	seq INTEGER PRIMARY KEY,
	txn_id TEXT NOT NULL,
	date TEXT NOT NULL,
	year INTEGER NOT NULL,
	narration TEXT NOT NULL,
	account TEXT NOT NULL,
	units TEXT NOT NULL,
	currency TEXT NOT NULL,
	cost_number TEXT NOT NULL,
	cost_currency TEXT NOT NULL,
	cost_date TEXT NOT NULL,
	price TEXT NOT NULL,
	price_currency TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS postings_year ON postings(year);
CREATE TABLE IF NOT EXISTS prices (
	seq INTEGER PRIMARY KEY,
	date TEXT NOT NULL,
	currency TEXT NOT NULL,
	amount TEXT NOT NULL,
	quote_currency TEXT NOT NULL
);
`

// migrateStatements upgrades a database from the version given by the map key to the next version.
var migrateStatements = map[int]string{
	1: "ALTER TABLE postings ADD COLUMN price_currency TEXT NOT NULL DEFAULT ''",
}

// uriPathReplacer escapes the characters that end or escape the path of a SQLite URI filename.
var uriPathReplacer = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// ErrNotFound is returned by OpenExisting when the database file does not exist.
var ErrNotFound = errors.New("ledger database not found")

// Store is a ledger persisted in SQLite.
type Store struct {
	logger *slog.Logger
	db     *sql.DB
}

var _ ldvledger.Querier = &Store{}

// Open opens or creates the SQLite ledger database at filePath.
//
// Only writers should call Open. Readers use OpenExisting so a mistyped path
// is an error rather than a new empty ledger.
func Open(ctx context.Context, logger *slog.Logger, filePath string) (*Store, error) {
	return open(ctx, logger, filePath)
}

// OpenExisting opens the SQLite ledger database at filePath.
//
// Returns an error wrapping ErrNotFound if the file does not exist. The file is never created.
func OpenExisting(ctx context.Context, logger *slog.Logger, filePath string) (*Store, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s, run \"ldvctl ledger import\" first", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("ledger database %s is a directory", filePath)
	}
	// mode=rw fails instead of creating the file if it disappears after the stat.
	return open(ctx, logger, "file:"+uriPathReplacer.Replace(filePath)+"?mode=rw")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import replaces the contents of the store with the journal's postings and prices.
func (s *Store) Import(ctx context.Context, journal *ldvledger.Journal) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			if rollbackErr := tx.Rollback(); !errors.Is(rollbackErr, sql.ErrTxDone) {
				retErr = errors.Join(retErr, rollbackErr)
			}
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM postings"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM prices"); err != nil {
		return err
	}
	for i, row := range journal.Rows() {
		costDate := ""
		if !row.Position.CostDate.IsZero() {
			costDate = row.Position.CostDate.String()
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO postings (seq, txn_id, date, year, narration, account, units, currency, cost_number, cost_currency, cost_date, price, price_currency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i,
			row.ID,
			row.Date.String(),
			row.Date.Year,
			row.Narration,
			row.Account,
			row.Position.Units.String(),
			row.Position.Currency,
			row.Position.CostNumber.String(),
			row.Position.CostCurrency,
			costDate,
			row.Price.String(),
			row.PriceCurrency,
		); err != nil {
			return fmt.Errorf("inserting posting %s/%s: %w", row.ID, row.Account, err)
		}
	}
	for i, price := range journal.Prices() {
		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO prices (seq, date, currency, amount, quote_currency) VALUES (?, ?, ?, ?, ?)",
			i,
			price.Date.String(),
			price.Currency,
			price.Amount.String(),
			price.QuoteCurrency,
		); err != nil {
			return fmt.Errorf("inserting price for %s: %w", price.Currency, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("ledger imported", "postings", len(journal.Rows()), "prices", len(journal.Prices()))
	return nil
}

// QueryPostings implements ldvledger.Querier.
func (s *Store) QueryPostings(ctx context.Context, filter ldvledger.Filter) ([]*ldvledger.Row, error) {
	rows, err := s.selectRows(ctx, filter.Year)
	if err != nil {
		return nil, err
	}
	return ldvledger.FilterRows(rows, filter), nil
}

// QueryLastBalance implements ldvledger.Querier.
func (s *Store) QueryLastBalance(ctx context.Context, filter ldvledger.Filter) (decimal.Decimal, bool, error) {
	rows, err := s.selectRows(ctx, filter.Year)
	if err != nil {
		return decimal.Zero, false, err
	}
	balance, ok := ldvledger.LastBalance(rows, filter)
	return balance, ok, nil
}

// QueryHoldings implements ldvledger.Querier.
func (s *Store) QueryHoldings(ctx context.Context, filter ldvledger.Filter) ([]*ldvledger.HoldingRow, error) {
	rows, err := s.selectRows(ctx, 0)
	if err != nil {
		return nil, err
	}
	prices, err := s.selectPrices(ctx)
	if err != nil {
		return nil, err
	}
	return ldvledger.GroupHoldings(rows, filter, ldvledger.LatestPrices(prices)), nil
}

// Journal loads the whole store into an in-memory journal.
func (s *Store) Journal(ctx context.Context) (*ldvledger.Journal, error) {
	rows, err := s.selectRows(ctx, 0)
	if err != nil {
		return nil, err
	}
	prices, err := s.selectPrices(ctx)
	if err != nil {
		return nil, err
	}
	return ldvledger.NewJournalFromRows(rows, prices), nil
}

// *** PRIVATE ***

func open(ctx context.Context, logger *slog.Logger, dataSourceName string) (_ *Store, retErr error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database %s: %w", dataSourceName, err)
	}
	defer func() {
		if retErr != nil {
			retErr = errors.Join(retErr, db.Close())
		}
	}()
	// A single connection keeps the schema check and writes on one SQLite handle.
	db.SetMaxOpenConns(1)
	// Wait for a concurrent import to release its lock instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("configuring ledger database %s: %w", dataSourceName, err)
	}
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("reading ledger database version: %w", err)
	}
	switch {
	case version == 0:
		if _, err := db.ExecContext(ctx, createTablesStatement); err != nil {
			return nil, fmt.Errorf("creating ledger tables: %w", err)
		}
		logger.Debug("ledger database initialized", "path", dataSourceName, "version", schemaVersion)
	case version < schemaVersion:
		for ; version < schemaVersion; version++ {
			if _, err := db.ExecContext(ctx, migrateStatements[version]); err != nil {
				return nil, fmt.Errorf("migrating ledger database from version %d: %w", version, err)
			}
		}
		logger.Debug("ledger database migrated", "path", dataSourceName, "version", schemaVersion)
	case version == schemaVersion:
		return &Store{logger: logger, db: db}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger database version %d at %s, must be at most %d", version, dataSourceName, schemaVersion)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return nil, fmt.Errorf("writing ledger database version: %w", err)
	}
	return &Store{
		logger: logger,
		db:     db,
	}, nil
}

// selectRows loads posting rows in ledger order, restricted to year unless year is zero.
func (s *Store) selectRows(ctx context.Context, year int) (_ []*ldvledger.Row, retErr error) {
	sqlRows, err := s.db.QueryContext(
		ctx,
		`SELECT txn_id, date, narration, account, units, currency, cost_number, cost_currency, cost_date, price, price_currency
		FROM postings WHERE (? = 0 OR year = ?) ORDER BY seq`,
		year,
		year,
	)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer func() {
		retErr = errors.Join(retErr, sqlRows.Close())
	}()
	var rows []*ldvledger.Row
	for sqlRows.Next() {
		var id, dateString, narration, account, units, currency, costNumber, costCurrency, costDateString, price, priceCurrency string
		if err := sqlRows.Scan(&id, &dateString, &narration, &account, &units, &currency, &costNumber, &costCurrency, &costDateString, &price, &priceCurrency); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		row, err := newRow(id, dateString, narration, account, units, currency, costNumber, costCurrency, costDateString, price, priceCurrency)
		if err != nil {
			return nil, fmt.Errorf("posting %s/%s: %w", id, account, err)
		}
		rows = append(rows, row)
	}
	return rows, sqlRows.Err()
}

func (s *Store) selectPrices(ctx context.Context) (_ []*ldvledger.Price, retErr error) {
	sqlRows, err := s.db.QueryContext(ctx, "SELECT date, currency, amount, quote_currency FROM prices ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying prices: %w", err)
	}
	defer func() {
		retErr = errors.Join(retErr, sqlRows.Close())
	}()
	var prices []*ldvledger.Price
	for sqlRows.Next() {
		var dateString, currency, amountString, quoteCurrency string
		if err := sqlRows.Scan(&dateString, &currency, &amountString, &quoteCurrency); err != nil {
			return nil, err
		}
		date, err := xtime.ParseDate(dateString)
		if err != nil {
			return nil, err
		}
		amount, err := decimalfmt.Parse(amountString)
		if err != nil {
			return nil, err
		}
		prices = append(prices, &ldvledger.Price{
			Date:          date,
			Currency:      currency,
			Amount:        amount,
			QuoteCurrency: quoteCurrency,
		})
	}
	return prices, sqlRows.Err()
}

func newRow(
	id string,
	dateString string,
	narration string,
	account string,
	unitsString string,
	currency string,
	costNumberString string,
	costCurrency string,
	costDateString string,
	priceString string,
	priceCurrency string,
) (*ldvledger.Row, error) {
	date, err := xtime.ParseDate(dateString)
	if err != nil {
		return nil, err
	}
	units, err := decimalfmt.Parse(unitsString)
	if err != nil {
		return nil, err
	}
	costNumber, err := decimalfmt.Parse(costNumberString)
	if err != nil {
		return nil, err
	}
	var costDate xtime.Date
	if costDateString != "" {
		costDate, err = xtime.ParseDate(costDateString)
		if err != nil {
			return nil, err
		}
	}
	price, err := decimalfmt.Parse(priceString)
	if err != nil {
		return nil, err
	}
	position := ldvledger.Position{
		Units:        units,
		Currency:     currency,
		CostNumber:   costNumber,
		CostCurrency: costCurrency,
		CostDate:     costDate,
	}
	return ldvledger.NewRow(id, date, narration, account, position, price, priceCurrency), nil
}
