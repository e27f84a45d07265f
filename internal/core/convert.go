package core

// convert.go provides the coercion utilities every sheet schema goes through.
//
// These functions handle the messy reality of spreadsheet cells:
//   - Currency symbols (₹, $, €, £) and thousands separators in numbers
//   - Accounting negatives written as "(123.45)"
//   - Excel formula prefixes (="value")
//   - Numbers that arrive as float64 from JSON or as text from a sheet
//
// Numeric coercion never fails: unparseable input yields the supplied fallback.

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// currencyStripper removes currency symbols, codes and grouping separators.
var currencyStripper = strings.NewReplacer(
	"₹", "", // Rupee
	"Rs.", "",
	"Rs", "",
	"INR", "",
	"$", "",
	"€", "", // Euro
	"£", "", // Pound
	",", "",
	"%", "",
	" ", "",
	" ", "",
)

// MoneyPlaces is the number of decimal places amounts are rounded to.
const MoneyPlaces = 2

// ParseNumber converts a cell value to a decimal.
// Returns false for empty or non-numeric input.
func ParseNumber(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return val, true
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt32(val), true
	case json.Number:
		return parseNumericString(val.String())
	case bool:
		return decimal.Zero, false
	case string:
		return parseNumericString(val)
	}
	return parseNumericString(fmt.Sprint(v))
}

func parseNumericString(s string) (decimal.Decimal, bool) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = currencyStripper.Replace(s)
	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceNumber returns v as a float64, or fallback when v is not numeric.
func CoerceNumber(v any, fallback float64) float64 {
	d, ok := ParseNumber(v)
	if !ok {
		return fallback
	}
	return d.InexactFloat64()
}

// CoerceMoney is CoerceNumber rounded to MoneyPlaces.
func CoerceMoney(v any, fallback float64) float64 {
	d, ok := ParseNumber(v)
	if !ok {
		return fallback
	}
	return d.Round(MoneyPlaces).InexactFloat64()
}

// CoerceString returns the cleaned text of v, or def when the result is empty.
func CoerceString(v any, def string) string {
	s := StringValue(v)
	if s == "" {
		return def
	}
	return s
}

// StringValue renders a cell value as trimmed text.
// Whole floats render without a fractional part so phone numbers and
// pincodes read back from numeric cells keep their digits.
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return CleanCell(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case decimal.Decimal:
		return val.String()
	case fmt.Stringer:
		return CleanCell(val.String())
	}
	return CleanCell(fmt.Sprint(v))
}

// RecomputeTotal returns subtotal + tax - discount rounded to MoneyPlaces.
func RecomputeTotal(subtotal, tax, discount float64) float64 {
	return decimal.NewFromFloat(subtotal).
		Add(decimal.NewFromFloat(tax)).
		Sub(decimal.NewFromFloat(discount)).
		Round(MoneyPlaces).
		InexactFloat64()
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// IsEmptyValue reports whether a cell carries no usable content.
func IsEmptyValue(v any) bool {
	return StringValue(v) == ""
}
