package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/attendanceconsole/internal/reports"
)

func WriteXLSX(w io.Writer, view reports.View) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := view.State.Month.Name
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	for i, record := range table(view) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]any, len(record))
		for j, value := range record {
			row[j] = value
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("set row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
