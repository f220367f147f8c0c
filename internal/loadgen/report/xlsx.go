package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	requestsSheet  = "Requests"
	failureBgColor = "#FFC7CE"
)

var xlsxHeaders = []string{"#", "User", "Iteration", "Response Code", "Response Time (ms)"}

// WriteXLSX writes the per-request results to an Excel workbook at path.
// Rows of unsuccessful requests are highlighted.
func WriteXLSX(path string, d Data) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", requestsSheet); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}

	failureStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{failureBgColor},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(requestsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range d.Results {
		row := i + 2
		values := []interface{}{i + 1, r.User, r.Iteration, r.Code, r.ElapsedMillis()}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(requestsSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}

		if !r.Success() {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(requestsSheet, first, last, failureStyle); err != nil {
				return fmt.Errorf("failed to style row %d: %w", row, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save XLSX report: %w", err)
	}
	return nil
}
