// Package frame provides a small in-memory table used by the feature builders.
//
// A Frame holds named columns of string cells. Each cell carries a validity
// flag so that missing values survive joins and filters. Frames are treated as
// immutable once built: every transformation returns a new Frame.
package frame

import (
	"fmt"
	"slices"
	"strings"
)

// Cell is a single nullable value.
type Cell struct {
	String string
	Valid  bool
}

// Null is the missing value.
var Null = Cell{}

// Value returns a non-null cell holding s.
func Value(s string) Cell {
	return Cell{String: s, Valid: true}
}

// IsNull reports whether the cell is missing.
func (c Cell) IsNull() bool {
	return !c.Valid
}

// Frame is a column-named table of nullable string cells.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// New creates an empty frame with the given columns.
// Duplicate column names are rejected.
func New(columns ...string) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return &Frame{
		columns: slices.Clone(columns),
		index:   index,
	}, nil
}

// MustNew is New for static column lists. It panics on duplicates.
func MustNew(columns ...string) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Has reports whether the frame has the column.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Require checks that every column is present.
// The returned *SchemaError lists all missing columns, not only the first.
func (f *Frame) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !f.Has(c) && !slices.Contains(missing, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Append adds a row. The number of cells must match the column count.
// Append is only meant for building a frame before handing it out.
func (f *Frame) Append(cells ...Cell) error {
	if len(cells) != len(f.columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(cells), len(f.columns))
	}
	f.rows = append(f.rows, slices.Clone(cells))
	return nil
}

// AppendValues adds a row of non-null values.
func (f *Frame) AppendValues(values ...string) error {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Value(v)
	}
	return f.Append(cells...)
}

// Get returns the cell at row i in column col.
// Unknown columns and out-of-range rows yield Null.
func (f *Frame) Get(i int, col string) Cell {
	j, ok := f.index[col]
	if !ok || i < 0 || i >= len(f.rows) {
		return Null
	}
	return f.rows[i][j]
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []Cell {
	return slices.Clone(f.rows[i])
}

// Column returns a copy of all cells of col.
func (f *Frame) Column(col string) ([]Cell, error) {
	if err := f.Require(col); err != nil {
		return nil, err
	}
	j := f.index[col]
	out := make([]Cell, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out, nil
}

// WithColumn returns a frame where col holds cells. An existing column is
// replaced in place; a new column is appended at the end.
func (f *Frame) WithColumn(col string, cells []Cell) (*Frame, error) {
	if len(cells) != len(f.rows) {
		return nil, fmt.Errorf("column %q has %d cells, frame has %d rows", col, len(cells), len(f.rows))
	}

	columns := f.Columns()
	j, exists := f.index[col]
	if !exists {
		columns = append(columns, col)
		j = len(columns) - 1
	}

	out := MustNew(columns...)
	out.rows = make([][]Cell, len(f.rows))
	for i, r := range f.rows {
		row := make([]Cell, len(columns))
		copy(row, r)
		row[j] = cells[i]
		out.rows[i] = row
	}
	return out, nil
}

// Select returns a frame with only the given columns, in the given order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	if err := f.Require(cols...); err != nil {
		return nil, err
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(cols))
	for k, c := range cols {
		idx[k] = f.index[c]
	}
	out.rows = make([][]Cell, len(f.rows))
	for i, r := range f.rows {
		row := make([]Cell, len(cols))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop returns a frame without the given columns. Unknown names are ignored.
func (f *Frame) Drop(cols ...string) *Frame {
	keep := make([]string, 0, len(f.columns))
	for _, c := range f.columns {
		if !slices.Contains(cols, c) {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// DropMatching drops every column whose name contains substr.
func (f *Frame) DropMatching(substr string) *Frame {
	var drop []string
	for _, c := range f.columns {
		if strings.Contains(c, substr) {
			drop = append(drop, c)
		}
	}
	return f.Drop(drop...)
}

// Rename returns a frame with column from renamed to to.
// Renaming a missing column is a no-op.
func (f *Frame) Rename(from, to string) (*Frame, error) {
	j, ok := f.index[from]
	if !ok {
		return f, nil
	}
	if from == to {
		return f, nil
	}
	if f.Has(to) {
		return nil, fmt.Errorf("rename %q: column %q already exists", from, to)
	}
	columns := f.Columns()
	columns[j] = to
	out := MustNew(columns...)
	out.rows = f.rows
	return out, nil
}

// Filter returns the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out := MustNew(f.columns...)
	for i, r := range f.rows {
		if keep(i) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// DropNulls removes rows that have a null in any of cols.
func (f *Frame) DropNulls(cols ...string) (*Frame, error) {
	if err := f.Require(cols...); err != nil {
		return nil, err
	}
	idx := make([]int, len(cols))
	for k, c := range cols {
		idx[k] = f.index[c]
	}
	return f.Filter(func(i int) bool {
		for _, j := range idx {
			if f.rows[i][j].IsNull() {
				return false
			}
		}
		return true
	}), nil
}

// Distinct returns a single-column frame with the distinct non-null values of
// col, in order of first appearance.
func (f *Frame) Distinct(col string) (*Frame, error) {
	cells, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	out := MustNew(col)
	seen := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		if c.IsNull() {
			continue
		}
		if _, ok := seen[c.String]; ok {
			continue
		}
		seen[c.String] = struct{}{}
		out.rows = append(out.rows, []Cell{c})
	}
	return out, nil
}

// InnerJoin joins f with right on the column on, which must exist in both.
// Right-hand columns whose names clash with f get suffix appended. Each pair
// of matching rows produces one output row, in left order then right order.
// Null keys never match.
func (f *Frame) InnerJoin(right *Frame, on, suffix string) (*Frame, error) {
	if err := f.Require(on); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := right.Require(on); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	columns := f.Columns()
	var rightIdx []int
	for j, c := range right.columns {
		if c == on {
			continue
		}
		name := c
		if f.Has(c) {
			name = c + suffix
		}
		columns = append(columns, name)
		rightIdx = append(rightIdx, j)
	}
	out, err := New(columns...)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	rk := right.index[on]
	matches := make(map[string][]int, len(right.rows))
	for i, r := range right.rows {
		if r[rk].IsNull() {
			continue
		}
		matches[r[rk].String] = append(matches[r[rk].String], i)
	}

	lk := f.index[on]
	for _, l := range f.rows {
		if l[lk].IsNull() {
			continue
		}
		for _, ri := range matches[l[lk].String] {
			row := make([]Cell, 0, len(columns))
			row = append(row, l...)
			for _, j := range rightIdx {
				row = append(row, right.rows[ri][j])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}
