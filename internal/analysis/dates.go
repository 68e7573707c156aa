package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of the 1900 date system as spreadsheets count it (the 1900 leap
// year bug is absorbed by starting on Dec 30).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// DateOptions bounds which numbers are read as day serials. A bare year such as 2023 falls
// outside the default range and is left to the text parser.
type DateOptions struct {
	SerialMin float64
	SerialMax float64
}

// DefaultDateOptions accepts serials from 1954 (20000) to 2119 (80000).
func DefaultDateOptions() DateOptions {
	return DateOptions{SerialMin: 20000, SerialMax: 80000}
}

// Spanish month names; "setiembre" is the Uruguayan spelling.
var spanishMonths = strings.NewReplacer(
	"setiembre", "september", "septiembre", "september", "noviembre", "november",
	"diciembre", "december", "febrero", "february", "octubre", "october",
	"agosto", "august", "enero", "january", "marzo", "march", "abril", "april",
	"junio", "june", "julio", "july", "mayo", "may",
)

var spanishAbbrevRe = regexp.MustCompile(`\b(ene|abr|ago|dic|sept|set)\b`)

var spanishAbbrev = map[string]string{
	"ene": "jan", "abr": "apr", "ago": "aug", "dic": "dec", "sept": "sep", "set": "sep",
}

// abbrevDotRe matches a dotted month abbreviation followed by another separator, as in "ene.-23".
var abbrevDotRe = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\.([\s/-])`)

var dateLayouts = []string{
	"Jan-06", "Jan-2006", "Jan 06", "Jan 2006", "Jan/06", "Jan/2006", "Jan.06", "Jan.2006",
	"January 2006", "January-2006", "January 06", "January-06", "January/2006",
	"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006/01/02", "2006-01", "2006/01",
	"02/01/2006", "2/1/2006", "02-01-2006", "01/2006", "1/2006", "01-2006",
	time.RFC3339,
}

var provisionalRe = regexp.MustCompile(`\s*\((p|e|\*)\)\s*$`)

// SerialToTime converts a day serial to a timestamp.
func SerialToTime(days float64) time.Time {
	whole := math.Floor(days)
	frac := days - whole
	t := serialEpoch.AddDate(0, 0, int(whole))
	return t.Add(time.Duration(frac * float64(24*time.Hour)))
}

// ParseSerialDate reads a cell as a day serial.
func ParseSerialDate(c Cell, opt DateOptions) (time.Time, bool) {
	var f float64
	switch c.Kind {
	case CellNumber:
		f = c.Num
	case CellString:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return time.Time{}, false
		}
		f = v
	default:
		return time.Time{}, false
	}
	if math.IsNaN(f) || f < opt.SerialMin || f > opt.SerialMax {
		return time.Time{}, false
	}
	return SerialToTime(f), true
}

// TranslateMonths rewrites Spanish month names and abbreviations to English.
func TranslateMonths(s string) string {
	s = spanishMonths.Replace(strings.ToLower(strings.TrimSpace(s)))
	return spanishAbbrevRe.ReplaceAllStringFunc(s, func(m string) string { return spanishAbbrev[m] })
}

// ParseTextDate reads a cell as text after translating Spanish month names.
func ParseTextDate(c Cell) (time.Time, bool) {
	if c.Kind != CellString {
		return time.Time{}, false
	}
	s := TranslateMonths(strings.ReplaceAll(c.Text, "*", ""))
	s = strings.TrimSpace(provisionalRe.ReplaceAllString(s, ""))
	s = abbrevDotRe.ReplaceAllString(s, "$1$2")
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate tries the serial reading first and falls back to the text reading.
func ParseDate(c Cell, opt DateOptions) (time.Time, bool) {
	if t, ok := ParseSerialDate(c, opt); ok {
		return t, true
	}
	return ParseTextDate(c)
}

// MonthStart floors t to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeMonths maps a column to month buckets; ok[i] is false where no date was read.
func NormalizeMonths(col []Cell, opt DateOptions) (months []time.Time, ok []bool) {
	months = make([]time.Time, len(col))
	ok = make([]bool, len(col))
	for i, c := range col {
		if t, good := ParseDate(c, opt); good {
			months[i] = MonthStart(t)
			ok[i] = true
		}
	}
	return months, ok
}
