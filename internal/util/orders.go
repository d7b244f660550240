package util

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParseOrders parses an order list as typed on the command line.
// - Accepts comma separated values and inclusive ranges: "1,3-5" -> [1 3 4 5]
// - Whitespace around items is ignored
// - Duplicates collapse; the result is ascending
// Returns an error for empty input, negative numbers or reversed ranges.
func ParseOrders(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no orders given")
	}

	var orders []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := parseOrder(part)
			if err != nil {
				return nil, err
			}
			orders = append(orders, n)
			continue
		}

		from, err := parseOrder(lo)
		if err != nil {
			return nil, err
		}
		to, err := parseOrder(hi)
		if err != nil {
			return nil, err
		}
		if to < from {
			return nil, fmt.Errorf("range %q is reversed", part)
		}
		for n := from; n <= to; n++ {
			orders = append(orders, n)
		}
	}

	if len(orders) == 0 {
		return nil, fmt.Errorf("no orders given")
	}
	slices.Sort(orders)
	return slices.Compact(orders), nil
}

func parseOrder(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid order %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid order %q", s)
	}
	return n, nil
}

// FormatOrders is the inverse of ParseOrders for display: [1 3 4 5] -> "1,3-5".
func FormatOrders(orders []int) string {
	sorted := slices.Clone(orders)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var b strings.Builder
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(sorted[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(sorted[j]))
		}
		i = j + 1
	}
	return b.String()
}
