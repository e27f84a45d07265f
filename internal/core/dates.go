package core

// dates.go interprets date cells of unknown origin.
//
// Spreadsheet tools disagree on how a timestamp survives a round trip:
//   - absolute strings ("2024-03-21T17:30:00.000Z")
//   - locale strings ("21/3/2024, 5:30:00 pm")
//   - raw day serials (44197, with fractional days for the time of day)
//
// InterpretDate never fails. Anything it cannot read becomes the fallback.

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SerialEpoch is day zero for spreadsheet day serials.
var SerialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DateLocation is the zone locale-formatted dates are written and read in.
// Overridden from config at startup.
var DateLocation = time.Local

// LocaleDateLayout is the layout exported date cells use.
const LocaleDateLayout = "2/1/2006, 3:04:05 pm"

// CanonicalLayout is the absolute timestamp layout returned by CanonicalDate.
const CanonicalLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	serialRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

	// D/M/YYYY with an optional H:MM[:SS] [am|pm] suffix.
	localeDateRegex = regexp.MustCompile(
		`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})(?:,?\s+(\d{1,2}):(\d{2})(?::(\d{2}))?\s*([aApP]\.?[mM]\.?)?)?$`)

	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02 15:04:05Z07:00",
		time.RFC1123Z,
		time.RFC1123,
		"Mon Jan 02 2006 15:04:05 GMT-0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
	}
	dateOnlyLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"2006-01",
		"2006",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"Jan 2, 2006 15:04:05",
		"January 2, 2006 15:04:05",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}
)

// InterpretDate converts v into an absolute time.
// A zero fallback means "now".
func InterpretDate(v any, fallback time.Time) time.Time {
	if t, ok := interpretDate(v); ok {
		return t
	}
	if fallback.IsZero() {
		return time.Now()
	}
	return fallback
}

// CanonicalDate is InterpretDate formatted as an absolute UTC timestamp string.
func CanonicalDate(v any, fallback time.Time) string {
	return InterpretDate(v, fallback).UTC().Format(CanonicalLayout)
}

// FormatLocaleDate renders t the way exported sheets carry dates.
func FormatLocaleDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(DateLocation).Format(LocaleDateLayout)
}

func interpretDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, !val.IsZero()
	case float64:
		return fromSerial(val)
	case float32:
		return fromSerial(float64(val))
	case int:
		return fromSerial(float64(val))
	case int64:
		return fromSerial(float64(val))
	case int32:
		return fromSerial(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromSerial(f)
	case decimal.Decimal:
		return fromSerial(val.InexactFloat64())
	case string:
		return parseDateString(val)
	}
	return time.Time{}, false
}

// fromSerial converts a day count relative to SerialEpoch.
// The fractional part is the time of day.
func fromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	ms := math.Round(serial * 24 * 60 * 60 * 1000)
	return SerialEpoch.Add(time.Duration(ms) * time.Millisecond), true
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseAbsolute(s); ok {
		return t, true
	}

	// Cell readers hand numeric cells over as text. A four digit year has
	// already matched an absolute layout above.
	if serialRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromSerial(f)
	}
	return parseLocale(s)
}

func parseAbsolute(s string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Bare dates are UTC midnight, matching ISO date-only semantics.
	for _, layout := range dateOnlyLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, DateLocation); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseLocale(s string) (time.Time, bool) {
	m := localeDateRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	var hour, minute, second int
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			second, _ = strconv.Atoi(m[6])
		}
	}

	if meridiem := strings.ToLower(strings.ReplaceAll(m[7], ".", "")); meridiem != "" {
		switch {
		case meridiem == "pm" && hour < 12:
			hour += 12
		case meridiem == "am" && hour == 12:
			hour = 0
		}
	}

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, DateLocation)
	// Reject 31/2/2024 rather than rolling it into March.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
