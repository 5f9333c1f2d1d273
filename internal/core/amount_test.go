package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"5000", "5000"},
		{"12,5", "12.5"},
		{"", "0"},
		{"   ", "0"},
		{"not-a-number", "0"},
		{"NaN", "0"},
	}
	for _, tc := range cases {
		if got := CoerceAmount(tc.in); got.String() != tc.out {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}
