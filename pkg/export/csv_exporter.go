package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

const CSVContentType = "text/csv; charset=utf-8"

// Excel only detects UTF-8 when the byte order mark is present.
var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render buffers the table produced by Write.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams data to w as RFC 4180 CSV behind a byte order mark. Fields
// containing commas, quotes or line breaks are quoted.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if err := data.validate("csv"); err != nil {
		return err
	}
	if _, err := w.Write(byteOrderMark); err != nil {
		return fmt.Errorf("csv bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(data.Columns); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	record := make([]string, len(data.Columns))
	for n, row := range data.Rows {
		for col := range record {
			record[col] = data.cell(row, col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv row %d: %w", n, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
