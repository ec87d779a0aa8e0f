package export

import "fmt"

// Dataset is a rectangular table: every row holds one cell per column.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// NewDataset starts an empty table with the given column titles.
func NewDataset(columns ...string) *Dataset {
	return &Dataset{Columns: columns}
}

// Append adds one row. Missing trailing cells are left blank; surplus cells
// are rejected so a miscounted builder fails loudly.
func (d *Dataset) Append(cells ...string) error {
	if len(cells) > len(d.Columns) {
		return fmt.Errorf("row has %d cells for %d columns", len(cells), len(d.Columns))
	}
	row := make([]string, len(d.Columns))
	copy(row, cells)
	d.Rows = append(d.Rows, row)
	return nil
}

// Len reports the number of data rows.
func (d Dataset) Len() int { return len(d.Rows) }

func (d Dataset) validate(kind string) error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s export needs at least one column", kind)
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Columns) {
			return fmt.Errorf("%s export row %d is wider than the header", kind, i)
		}
	}
	return nil
}

// cell returns the value at column col, blank when the row is short.
func (d Dataset) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}
