package securities

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// ExportCSV writes the portfolio's holdings as CSV
func ExportCSV(w io.Writer, portfolio *Portfolio) error {
	if err := gocsv.Marshal(portfolio.Securities, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExportXLSX writes the portfolio as a single-sheet workbook with a
// totals row.
func ExportXLSX(w io.Writer, portfolio *Portfolio) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Securities"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ISIN", "Name", "Quantity", "Value", "Currency"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, sec := range portfolio.Securities {
		values := []any{
			sec.ISIN,
			sec.Name,
			sec.Quantity.InexactFloat64(),
			sec.Value.InexactFloat64(),
			sec.Currency,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	totalRow := len(portfolio.Securities) + 2
	labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	valueCell, _ := excelize.CoordinatesToCellName(4, totalRow)
	currencyCell, _ := excelize.CoordinatesToCellName(5, totalRow)
	if err := f.SetCellValue(sheet, labelCell, "Total"); err != nil {
		return fmt.Errorf("failed to write total label: %w", err)
	}
	if err := f.SetCellValue(sheet, valueCell, portfolio.TotalValue.InexactFloat64()); err != nil {
		return fmt.Errorf("failed to write total value: %w", err)
	}
	if err := f.SetCellValue(sheet, currencyCell, portfolio.Currency); err != nil {
		return fmt.Errorf("failed to write total currency: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
