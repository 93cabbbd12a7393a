package frame

import (
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// LoadCSV parses a CSV stream with gota. Every column stays a string series
// and opts.NullValues become NaN, which FromDataFrame turns into nulls. gota
// also treats the literal text NaN as missing.
//
// The whole input is held in memory twice while loading, so LoadCSV suits the
// anime tables. Use ReadCSV for large exports such as the ratings list.
func LoadCSV(r io.Reader, opts ReadOptions) (*Frame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(opts.NullValues),
	)
	return FromDataFrame(df)
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path string, opts ReadOptions) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	f, err := LoadCSV(file, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// FromDataFrame copies df into a Frame. NaN elements become nulls and all
// other elements keep their string form.
func FromDataFrame(df dataframe.DataFrame) (*Frame, error) {
	if df.Err != nil {
		return nil, df.Err
	}

	names := df.Names()
	f, err := New(names...)
	if err != nil {
		return nil, err
	}

	cols := make([]series.Series, len(names))
	for j, name := range names {
		cols[j] = df.Col(name)
	}

	f.rows = make([][]Cell, df.Nrow())
	for i := range f.rows {
		row := make([]Cell, len(cols))
		for j, s := range cols {
			if e := s.Elem(i); !e.IsNA() {
				row[j] = Value(e.String())
			}
		}
		f.rows[i] = row
	}
	return f, nil
}
