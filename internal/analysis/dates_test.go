package analysis

import (
	"testing"
	"time"
)

func month(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }

func TestSerialAndTextAgree(t *testing.T) {
	opt := DefaultDateOptions()
	// 45139 is 2023-08-01
	serial, ok := ParseDate(Number(45139), opt)
	if !ok {
		t.Fatalf("serial not parsed")
	}
	text, ok := ParseDate(Text("ago-23"), opt)
	if !ok {
		t.Fatalf("text not parsed")
	}
	if !MonthStart(serial).Equal(MonthStart(text)) || !MonthStart(serial).Equal(month(2023, time.August)) {
		t.Fatalf("serial %v vs text %v", serial, text)
	}
	nov, _ := ParseDate(Text("nov-23"), opt)
	novSerial, _ := ParseDate(Number(45231), opt)
	if !MonthStart(nov).Equal(MonthStart(novSerial)) {
		t.Fatalf("nov-23 %v vs 45231 %v", nov, novSerial)
	}
}

func TestParseDateForms(t *testing.T) {
	opt := DefaultDateOptions()
	cases := []struct {
		in   Cell
		want time.Time
	}{
		{Text("ene-23"), month(2023, time.January)},
		{Text("Dic-2022"), month(2022, time.December)},
		{Text("setiembre 2021"), month(2021, time.September)},
		{Text("Set-21"), month(2021, time.September)},
		{Text("abril 2020 (p)"), month(2020, time.April)},
		{Text("mar-24*"), month(2024, time.March)},
		{Text("ene.-23"), month(2023, time.January)},
		{Text("set.-23"), month(2023, time.September)},
		{Text("Feb. 2024"), month(2024, time.February)},
		{Text("dic./22"), month(2022, time.December)},
		{Text("2023-05-17"), month(2023, time.May)},
		{Text("17/05/2023"), month(2023, time.May)},
		{Text("45139"), month(2023, time.August)},
		{Number(44927.75), month(2023, time.January)},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in, opt)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", tc.in.String())
		}
		if !MonthStart(got).Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", tc.in.String(), got, tc.want)
		}
	}
}

func TestParseDateRejects(t *testing.T) {
	opt := DefaultDateOptions()
	for _, c := range []Cell{Text("Total"), Number(2023), {}, Bool(true), Text("sin dato")} {
		if got, ok := ParseDate(c, opt); ok {
			t.Fatalf("ParseDate(%q) = %v, want failure", c.String(), got)
		}
	}
}

func TestNormalizeMonths(t *testing.T) {
	months, ok := NormalizeMonths([]Cell{Number(44941), Text("Total"), Text("feb-23")}, DefaultDateOptions())
	if !ok[0] || ok[1] || !ok[2] {
		t.Fatalf("ok = %v", ok)
	}
	if !months[0].Equal(month(2023, time.January)) || !months[2].Equal(month(2023, time.February)) {
		t.Fatalf("months = %v", months)
	}
}

func TestTranslateMonths(t *testing.T) {
	cases := map[string]string{
		"Enero 2023":      "january 2023",
		"ago-23":          "aug-23",
		"septiembre-2020": "september-2020",
		"Setiembre":       "september",
		"sept-20":         "sep-20",
	}
	for in, want := range cases {
		if got := TranslateMonths(in); got != want {
			t.Fatalf("TranslateMonths(%q) = %q, want %q", in, got, want)
		}
	}
}
