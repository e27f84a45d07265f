package core

import (
	"testing"
	"time"
)

// useUTCDates pins DateLocation for the duration of a test.
func useUTCDates(t *testing.T) {
	t.Helper()
	prev := DateLocation
	DateLocation = time.UTC
	t.Cleanup(func() { DateLocation = prev })
}

func TestInterpretDate(t *testing.T) {
	useUTCDates(t)
	fallback := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		// Day serials
		{name: "serial int", input: 44197, want: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "serial float", input: 44197.0, want: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "serial with half day", input: 44197.5, want: time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)},
		{name: "serial as text", input: "44197", want: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},

		// Absolute strings
		{name: "iso with millis", input: "2024-03-21T17:30:00.000Z", want: time.Date(2024, 3, 21, 17, 30, 0, 0, time.UTC)},
		{name: "iso with offset", input: "2024-03-21T23:00:00+05:30", want: time.Date(2024, 3, 21, 17, 30, 0, 0, time.UTC)},
		{name: "date only is utc midnight", input: "2024-03-21", want: time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)},
		{name: "year only is not a serial", input: "2024", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "year and month", input: "2024-03", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "five digit text is a serial", input: "45372.75", want: time.Date(2024, 3, 21, 18, 0, 0, 0, time.UTC)},

		// Locale strings
		{name: "locale pm", input: "21/03/2024, 5:30:00 pm", want: time.Date(2024, 3, 21, 17, 30, 0, 0, time.UTC)},
		{name: "locale uppercase PM", input: "21/3/2024, 5:30:00 PM", want: time.Date(2024, 3, 21, 17, 30, 0, 0, time.UTC)},
		{name: "locale 12 pm stays noon", input: "1/2/2024, 12:05:00 pm", want: time.Date(2024, 2, 1, 12, 5, 0, 0, time.UTC)},
		{name: "locale 12 am is midnight", input: "12/1/2024, 12:15:00 am", want: time.Date(2024, 1, 12, 0, 15, 0, 0, time.UTC)},
		{name: "locale without seconds", input: "5-6-2023 09:45", want: time.Date(2023, 6, 5, 9, 45, 0, 0, time.UTC)},
		{name: "locale date only", input: "21/3/2024", want: time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)},
		{name: "locale 24h hour with pm", input: "21/03/2024, 13:30:00 pm", want: time.Date(2024, 3, 21, 13, 30, 0, 0, time.UTC)},
		{name: "locale 24h hour with am", input: "21/03/2024, 13:30:00 am", want: time.Date(2024, 3, 21, 13, 30, 0, 0, time.UTC)},

		// Fallbacks
		{name: "impossible day falls back", input: "31/02/2024", want: fallback},
		{name: "month 13 falls back", input: "1/13/2024", want: fallback},
		{name: "garbage falls back", input: "not a date", want: fallback},
		{name: "empty falls back", input: "", want: fallback},
		{name: "nil falls back", input: nil, want: fallback},
		{name: "zero time falls back", input: time.Time{}, want: fallback},
		{name: "bool falls back", input: true, want: fallback},

		// Already a time
		{name: "time value", input: time.Date(2022, 5, 4, 3, 2, 1, 0, time.UTC), want: time.Date(2022, 5, 4, 3, 2, 1, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpretDate(tt.input, fallback)
			if !got.Equal(tt.want) {
				t.Errorf("InterpretDate(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInterpretDate_ZeroFallbackIsNow(t *testing.T) {
	before := time.Now()
	got := InterpretDate("garbage", time.Time{})
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("InterpretDate with zero fallback = %v, want between %v and %v", got, before, after)
	}
}

func TestInterpretDate_UsesDateLocation(t *testing.T) {
	prev := DateLocation
	t.Cleanup(func() { DateLocation = prev })
	DateLocation = time.FixedZone("IST", 5*3600+1800)

	got := InterpretDate("21/03/2024, 5:30:00 pm", time.Time{})
	want := time.Date(2024, 3, 21, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("InterpretDate in IST = %v, want %v", got.UTC(), want)
	}
}

func TestFormatLocaleDate_RoundTrip(t *testing.T) {
	useUTCDates(t)

	original := time.Date(2024, 11, 3, 21, 7, 9, 0, time.UTC)
	formatted := FormatLocaleDate(original)

	if formatted != "3/11/2024, 9:07:09 pm" {
		t.Errorf("FormatLocaleDate() = %q", formatted)
	}
	if got := InterpretDate(formatted, time.Time{}); !got.Equal(original) {
		t.Errorf("round trip = %v, want %v", got, original)
	}
	if FormatLocaleDate(time.Time{}) != "" {
		t.Error("zero time should format as empty string")
	}
}

func TestCanonicalDate(t *testing.T) {
	got := CanonicalDate(44197, time.Time{})
	if got != "2021-01-01T00:00:00.000Z" {
		t.Errorf("CanonicalDate(44197) = %q", got)
	}
}
