package excel

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ReadSheet returns the rows of one sheet, header included.
func ReadSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	return rows, nil
}

// ReadSummary loads the key/value Summary sheet of an exported workbook.
func ReadSummary(path string) (map[string]float64, error) {
	rows, err := ReadSheet(path, SummarySheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", SummarySheet)
	}
	out := make(map[string]float64, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("summary row %d has %d cells", i+2, len(row))
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("summary %s: %w", row[0], err)
		}
		out[row[0]] = v
	}
	return out, nil
}
