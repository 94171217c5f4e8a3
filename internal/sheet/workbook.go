package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelWorkbook reads sheets from an XLSX file.
type ExcelWorkbook struct {
	file *excelize.File
}

// OpenWorkbook opens an XLSX file for reading.
func OpenWorkbook(path string) (*ExcelWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &ExcelWorkbook{file: f}, nil
}

// Rows implements Workbook.
func (w *ExcelWorkbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// Close releases the underlying file.
func (w *ExcelWorkbook) Close() error {
	return w.file.Close()
}

var _ Workbook = (*ExcelWorkbook)(nil)
