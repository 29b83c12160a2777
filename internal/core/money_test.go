package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0.00", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Format() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.Format(), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestAmountPercent(t *testing.T) {
	if got := MustAmount("50").Percent(MustAmount("200")); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := MustAmount("50").Percent(Amount{}); got != 0 {
		t.Fatalf("expected 0 for zero total, got %v", got)
	}
}

func TestAmountJSON(t *testing.T) {
	b, err := MustAmount("12.34").MarshalJSON()
	if err != nil || string(b) != "12.34" {
		t.Fatalf("expected 12.34, got %s (err=%v)", b, err)
	}
	var a Amount
	if err := a.UnmarshalJSON([]byte(`"oops"`)); err == nil {
		t.Fatalf("expected error for non numeric string")
	}
}
