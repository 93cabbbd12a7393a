// Package sampler narrows a user population to a fixed dataset size.
package sampler

import (
	"fmt"
	"strings"
)

// DatasetSize names one of the supported sample sizes. The zero value is invalid.
type DatasetSize int

const (
	Small DatasetSize = iota + 1
	Medium
	Large
)

// SupportedSizes lists every valid DatasetSize, smallest first.
func SupportedSizes() []DatasetSize {
	return []DatasetSize{Small, Medium, Large}
}

// UserCount returns how many users a sample of this size contains.
func (s DatasetSize) UserCount() (int, error) {
	switch s {
	case Small:
		return 1000, nil
	case Medium:
		return 5000, nil
	case Large:
		return 10000, nil
	default:
		return 0, fmt.Errorf("unsupported dataset size %d", int(s))
	}
}

func (s DatasetSize) String() string {
	switch s {
	case Small:
		return "SMALL"
	case Medium:
		return "MEDIUM"
	case Large:
		return "LARGE"
	default:
		return fmt.Sprintf("DatasetSize(%d)", int(s))
	}
}

// ParseDatasetSize accepts SMALL, MEDIUM or LARGE in any case.
func ParseDatasetSize(s string) (DatasetSize, error) {
	for _, size := range SupportedSizes() {
		if strings.EqualFold(strings.TrimSpace(s), size.String()) {
			return size, nil
		}
	}
	return 0, fmt.Errorf("unsupported dataset size %q (want one of SMALL, MEDIUM, LARGE)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s DatasetSize) MarshalText() ([]byte, error) {
	if _, err := s.UserCount(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DatasetSize) UnmarshalText(text []byte) error {
	size, err := ParseDatasetSize(string(text))
	if err != nil {
		return err
	}
	*s = size
	return nil
}
