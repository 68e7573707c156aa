package analysis

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Value is a nullable numeric value.
type Value struct {
	Float float64
	Valid bool
}

// Some wraps a present value.
func Some(f float64) Value { return Value{Float: f, Valid: true} }

// String renders the value for CSV output; null renders empty.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64)
}

var localeStrip = strings.NewReplacer("—", "", "−", "", "–", "", "-", "", "\u00a0", "", " ", "", ".", "")

// NormalizeNumbers converts a column to numbers. A direct parse is tried first; when it
// leaves more nulls than the column had empty cells, the text cells are parsed again in the
// Spanish locale: dashes stripped, '.' thousands separators removed and ',' read as the
// decimal separator. Cells that were already numeric are never re-read, so an already
// numeric column comes back unchanged.
func NormalizeNumbers(col []Cell) []Value {
	out := make([]Value, len(col))
	if len(col) == 0 {
		return out
	}
	origNull, convNull := 0, 0
	for i, c := range col {
		if c.IsEmpty() {
			origNull++
		}
		v, ok := parseDirect(c)
		if ok {
			out[i] = Some(v)
		} else {
			convNull++
		}
	}
	if convNull <= origNull {
		return out
	}
	for i, c := range col {
		if c.Kind != CellString {
			continue
		}
		if v, ok := ParseLocaleNumber(c.Text); ok {
			out[i] = Some(v)
		} else {
			out[i] = Value{}
		}
	}
	return out
}

func parseDirect(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber, CellBool:
		return c.Num, true
	case CellString:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// ParseLocaleNumber parses a Spanish-formatted number such as "1.234,56". A leading minus
// is kept as the sign; any other dash is a placeholder and is stripped, so "-" and "—" parse
// as no value.
func ParseLocaleNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	neg := false
	if r, size := utf8.DecodeRuneInString(raw); (r == '-' || r == '−') && size < len(raw) {
		neg, raw = true, raw[size:]
	}
	raw = localeStrip.Replace(raw)
	raw = strings.ReplaceAll(raw, ",", ".")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}
