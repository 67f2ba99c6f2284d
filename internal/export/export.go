// Package export writes a filtered record set to an .xlsx spreadsheet.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"classattend/internal/model"
	"classattend/internal/store"
)

const sheet = "Attendance"

var header = []string{"Student ID", "Name", "Course", "Room", "Timestamp"}

// BuildWorkbook renders records into a workbook, one row per record after a
// header row.
func BuildWorkbook(records []model.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, rec := range records {
		values := []any{
			rec.StudentID,
			rec.StudentName,
			rec.CourseCode,
			rec.Room,
			rec.Timestamp.Format(store.TimeLayout),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// WriteRecords builds the workbook and saves it at path. Write failures
// surface the underlying cause.
func WriteRecords(path string, records []model.Record) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write spreadsheet %s: %w", path, err)
	}
	return nil
}
