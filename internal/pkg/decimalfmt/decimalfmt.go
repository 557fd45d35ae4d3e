// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package decimalfmt provides parsing, rounding, and display helpers for
// decimal quantities and monetary amounts.
//
// All rounding uses banker's rounding (round half to even) to two places.
// This is the single rounding rule applied to every monetary figure.
package decimalfmt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Places is the number of decimal places monetary figures are rounded to.
const Places = 2

// groupSeparator separates groups of three digits in formatted output.
const groupSeparator = " "

// groupPrinter groups integers in threes with a comma, which Format replaces with groupSeparator.
var groupPrinter = message.NewPrinter(language.English)

// Parse parses a decimal string (e.g., "-123.456789").
// An empty string parses as zero.
func Parse(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value %q: %w", value, err)
	}
	return d, nil
}

// Round rounds d to Places using round half to even.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// Format rounds d and formats it with a space between thousands groups and
// exactly two decimals, e.g. "-1 234 567.80".
func Format(d decimal.Decimal) string {
	s := d.StringFixedBank(Places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	integer, fraction, _ := strings.Cut(s, ".")
	return sign + groupThousands(integer) + "." + fraction
}

// FormatPlain rounds d and formats it with exactly two decimals and no grouping.
func FormatPlain(d decimal.Decimal) string {
	return d.StringFixedBank(Places)
}

// CurrencyLabel returns the display symbol for an ISO currency code, or the
// code itself when no symbol is known.
func CurrencyLabel(currencyCode string) string {
	if currencyCode == "" {
		return ""
	}
	// money.New resolves unknown codes to a bare currency, so this never returns nil.
	currency := money.New(0, currencyCode).Currency()
	if currency.Grapheme == "" {
		return currencyCode
	}
	return currency.Grapheme
}

// *** PRIVATE ***

// groupThousands inserts groupSeparator every three digits from the right.
//
// Digit strings that do not fit an int64 are returned ungrouped.
func groupThousands(digits string) string {
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return strings.ReplaceAll(groupPrinter.Sprintf("%d", value), ",", groupSeparator)
}
