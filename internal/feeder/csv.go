package feeder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// NewCSVFeeder reads one column of a CSV file. The first row is the header;
// column selects a header name, or the first column when empty.
func NewCSVFeeder(path, column string) (*SliceFeeder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least one header row and one data row")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idx := 0
	if column != "" {
		idx = -1
		for i, name := range header {
			if strings.TrimSpace(name) == column {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("CSV column %q not found in header %v", column, header)
		}
	}

	values := make([]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d has %d fields, expected at least %d", i+2, len(row), idx+1)
		}
		values = append(values, strings.TrimSpace(row[idx]))
	}

	return NewSliceFeeder(values), nil
}
