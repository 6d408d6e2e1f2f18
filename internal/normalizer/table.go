package normalizer

import (
	"fmt"
	"slices"
)

// Table is an ordered record set of string cells keyed by column name.
// A nil cell is a null.
type Table struct {
	columns []string
	rows    [][]*string
}

// NewTable returns an empty table with the given header.
func NewTable(columns []string) *Table {
	return &Table{columns: slices.Clone(columns)}
}

// Columns returns a copy of the header.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether col is in the header.
func (t *Table) Has(col string) bool { return slices.Contains(t.columns, col) }

// Append adds a row aligned with the header.
func (t *Table) Append(row []*string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, header has %d", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Value returns the cell at (row, col), nil when the column is absent.
func (t *Table) Value(row int, col string) *string {
	i := slices.Index(t.columns, col)
	if i < 0 || row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row][i]
}

// Rename changes the first column named from to to.
func (t *Table) Rename(from, to string) bool {
	i := slices.Index(t.columns, from)
	if i < 0 {
		return false
	}
	t.columns[i] = to
	return true
}
