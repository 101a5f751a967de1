package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 1, 100, 5},
		{0, 1, 100, 1},
		{-3, 1, 100, 1},
		{1000, 1, 100, 100},
		{100, 1, 100, 100},
	}
	for _, tc := range cases {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Fatalf("Clamp(%d, %d, %d) = %d; want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestPageOffset(t *testing.T) {
	cases := []struct{ page, size, want int }{
		{1, 20, 0},
		{2, 20, 20},
		{3, 7, 14},
		{0, 20, 0},
		{-1, 20, 0},
		{4, 0, 0},
	}
	for _, tc := range cases {
		if got := PageOffset(tc.page, tc.size); got != tc.want {
			t.Fatalf("PageOffset(%d, %d) = %d; want %d", tc.page, tc.size, got, tc.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 2, 3},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d; want %d", tc.total, tc.size, got, tc.want)
		}
	}
}
