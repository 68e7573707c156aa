package analysis

import (
	"math"
	"testing"
)

func TestNormalizeNumbersLocale(t *testing.T) {
	col := []Cell{Text("1.234,56"), Text("952"), Text("-"), {}, Text("  2.000 ")}
	got := NormalizeNumbers(col)
	want := []Value{Some(1234.56), Some(952), {}, {}, Some(2000)}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizeNumbersNumericIsNoOp(t *testing.T) {
	col := []Cell{Number(1.5), Number(-3), {}, Text("12.75"), Number(1e6)}
	got := NormalizeNumbers(col)
	want := []Value{Some(1.5), Some(-3), {}, Some(12.75), Some(1e6)}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestNormalizeNumbersKeepsNumberCellsOnRetry(t *testing.T) {
	// the text cell forces the locale retry; the number cell must survive it unchanged
	got := NormalizeNumbers([]Cell{Number(1234.5), Text("1.000,25")})
	if got[0] != Some(1234.5) || got[1] != Some(1000.25) {
		t.Fatalf("got %+v", got)
	}
}

func TestParseLocaleNumber(t *testing.T) {
	cases := map[string]float64{
		"1.234,56":     1234.56,
		"952":          952,
		"12.345.678":   12345678,
		"0,5":          0.5,
		"1\u00a0234,5": 1234.5,
	}
	for in, want := range cases {
		got, ok := ParseLocaleNumber(in)
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseLocaleNumber(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "—", "-", "--", "s/d", "n.d."} {
		if _, ok := ParseLocaleNumber(in); ok {
			t.Fatalf("ParseLocaleNumber(%q) should fail", in)
		}
	}
}

func TestParseLocaleNumber_KeepsLeadingSign(t *testing.T) {
	cases := map[string]float64{
		"-5":       -5,
		"-1.234,5": -1234.5,
		" −0,25 ":  -0.25,
		"- 2.000":  -2000,
	}
	for in, want := range cases {
		got, ok := ParseLocaleNumber(in)
		if !ok || math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseLocaleNumber(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
}

func TestValueString(t *testing.T) {
	if s := (Value{}).String(); s != "" {
		t.Fatalf("null renders %q", s)
	}
	if s := Some(1234.5).String(); s != "1234.5" {
		t.Fatalf("value renders %q", s)
	}
}
