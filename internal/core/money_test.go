package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestPercentageOf(t *testing.T) {
	cases := []struct {
		name        string
		part, whole int64
		want        int
	}{
		{"zero whole", 100, 0, 0},
		{"zero part", 0, 500, 0},
		{"half", 250, 500, 50},
		{"rounds half up", 125, 1000, 13},
		{"rounds down", 124, 1000, 12},
		{"exact", 500, 500, 100},
		{"overspent clamps", 310, 300, 100},
		{"spec overview", 510, 800, 64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PercentageOf(Money{Cents: tc.part}, Money{Cents: tc.whole})
			if got != tc.want {
				t.Fatalf("PercentageOf(%d, %d) = %d, want %d", tc.part, tc.whole, got, tc.want)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-50, "-0.50"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Decimal(); got != tc.want {
			t.Fatalf("Decimal(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 70}
	if got := a.Add(b).Cents; got != 220 {
		t.Fatalf("Add = %d, want 220", got)
	}
	if got := b.Sub(a).Cents; got != -80 {
		t.Fatalf("Sub = %d, want -80", got)
	}
	if !a.GreaterOrEqual(b) || b.GreaterOrEqual(a) {
		t.Fatalf("GreaterOrEqual comparison wrong")
	}
}
