package util

import (
	"slices"
	"testing"
)

func TestParseOrders(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"1", []int{1}, false},
		{"1,3-5", []int{1, 3, 4, 5}, false},
		{" 5, 1 ,3 ", []int{1, 3, 5}, false},
		{"2,2,1-2", []int{1, 2}, false},
		{"0", []int{0}, false},
		{"1,,2", []int{1, 2}, false},
		{"", nil, true},
		{" , ", nil, true},
		{"a", nil, true},
		{"5-3", nil, true},
		{"1-", nil, true},
		{"-1", nil, true},
	}
	for _, tc := range tests {
		got, err := ParseOrders(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseOrders(%q) err = %v; wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !slices.Equal(got, tc.want) {
			t.Errorf("ParseOrders(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatOrders(t *testing.T) {
	tests := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{1}, "1"},
		{[]int{5, 3, 4, 1}, "1,3-5"},
		{[]int{1, 2, 2, 7}, "1-2,7"},
	}
	for _, tc := range tests {
		if got := FormatOrders(tc.in); got != tc.want {
			t.Errorf("FormatOrders(%v) = %q; want %q", tc.in, got, tc.want)
		}
		if len(tc.in) == 0 {
			continue
		}
		back, err := ParseOrders(FormatOrders(tc.in))
		if err != nil {
			t.Fatalf("ParseOrders(FormatOrders(%v)): %v", tc.in, err)
		}
		want := slices.Clone(tc.in)
		slices.Sort(want)
		if !slices.Equal(back, slices.Compact(want)) {
			t.Errorf("round trip of %v gave %v", tc.in, back)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"a\r\nb\rc", "a\nb\nc"},
		{"line  \t\nnext ", "line\nnext"},
		{"\n\nbody\n\n", "body"},
		{"  indented", "  indented"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Errorf("NormalizeText(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("\n   \n  first \nsecond"); got != "first" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine(" \r\n "); got != "" {
		t.Errorf("FirstLine of blank = %q", got)
	}
}
