package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeID turns an identifier cell into its canonical string form.
// Integral floats such as "21.0" collapse to "21" so that ids written by
// different tools still join.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return s
}

// ParseCount parses a non-negative count that may be written as a float.
// Fractions are truncated.
func ParseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int(f), nil
}

// FormatFloat32 renders v with the shortest representation that round-trips
// through float32.
func FormatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
