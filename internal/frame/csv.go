package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// DefaultNullValues are the tokens the MyAnimeList dump uses for missing data.
var DefaultNullValues = []string{"Unknown", ""}

// ReadOptions controls CSV parsing.
type ReadOptions struct {
	// NullValues are cell contents that become Null.
	NullValues []string
}

// DefaultReadOptions returns options using DefaultNullValues.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{NullValues: DefaultNullValues}
}

// ReadCSV parses a CSV stream whose first record is the header.
func ReadCSV(r io.Reader, opts ReadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	f, err := New(header...)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]Cell, len(rec))
		for i, v := range rec {
			if slices.Contains(opts.NullValues, v) {
				continue
			}
			row[i] = Value(v)
		}
		f.rows = append(f.rows, row)
	}
	return f, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, opts ReadOptions) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	f, err := ReadCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// WriteCSV writes the header and all rows. Nulls are written as empty fields.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(f.columns))
	for _, r := range f.rows {
		for j, c := range r {
			rec[j] = c.String
			if c.IsNull() {
				rec[j] = ""
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes f to path, truncating any existing file.
func WriteCSVFile(path string, f *Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(file, f); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
