package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMarketCap parses a screener-style market capitalisation string such
// as "1.52B", "820.4M" or "2.1T" into dollars. Plain numbers parse as-is.
// Empty strings and "-" return 0 without error (unknown cap).
func ParseMarketCap(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return 0, nil
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'T':
		mult = 1e12
		s = s[:len(s)-1]
	case 'B':
		mult = 1e9
		s = s[:len(s)-1]
	case 'M':
		mult = 1e6
		s = s[:len(s)-1]
	case 'K':
		mult = 1e3
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing market cap %q: %w", raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("parsing market cap %q: negative value", raw)
	}
	return v * mult, nil
}
