// Package money holds the decimal helpers used for settlement amounts.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mode selects how Truncate discards extra fraction digits.
type Mode int

const (
	// ModeRound rounds half up (toward positive infinity at .5).
	ModeRound Mode = iota
	// ModeFloor always rounds toward negative infinity.
	ModeFloor
)

// MoneyDecimals is the scale persisted for every monetary field.
const MoneyDecimals int32 = 2

const euroSuffix = " €"

var (
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
	printer = message.NewPrinter(language.German)
)

// Truncate reduces d to the given number of fraction digits using mode.
func Truncate(d decimal.Decimal, decimals int32, mode Mode) decimal.Decimal {
	shifted := d.Shift(decimals)
	switch mode {
	case ModeFloor:
		shifted = shifted.Floor()
	default:
		shifted = shifted.Add(half).Floor()
	}
	return shifted.Shift(-decimals)
}

// Round2 is Truncate(d, 2, ModeRound).
func Round2(d decimal.Decimal) decimal.Decimal {
	return Truncate(d, MoneyDecimals, ModeRound)
}

// TruncateString parses value and renders it with exactly decimals fraction digits.
// An empty string means the input was not numeric.
func TruncateString(value string, decimals int32, mode Mode) string {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return ""
	}
	return Truncate(d, decimals, mode).StringFixed(decimals)
}

// Parse converts user input into a decimal, trimming whitespace.
func Parse(value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatLocalized renders d with German grouping and decimal separators, e.g. 1.234,56.
func FormatLocalized(d decimal.Decimal, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	value, _ := Truncate(d, decimals, ModeRound).Float64()
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), value)
}

// FormatEuro renders an end-user facing amount such as "1.234,56 €".
func FormatEuro(d decimal.Decimal) string {
	return FormatLocalized(d, MoneyDecimals) + euroSuffix
}

// TaxSplit is the net/tax breakdown of a gross amount that already includes tax.
type TaxSplit struct {
	Net decimal.Decimal
	Tax decimal.Decimal
}

// InclusiveTaxSplit extracts the tax contained in gross at ratePercent.
// Net is derived from the rounded tax so Net+Tax always equals the rounded gross.
func InclusiveTaxSplit(gross, ratePercent decimal.Decimal) TaxSplit {
	divisor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	if divisor.IsZero() {
		rounded := Round2(gross)
		return TaxSplit{Net: rounded, Tax: decimal.Zero}
	}
	tax := Round2(gross.Sub(gross.Div(divisor)))
	net := Round2(gross).Sub(tax)
	return TaxSplit{Net: net, Tax: tax}
}

// PercentOf returns amount * percent / 100 without rounding.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}
