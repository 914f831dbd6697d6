package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/example/store-attendance/internal/application"
)

const sheetName = "勤怠データ"

// hoursNumFmt is the built-in "0.00" number format.
const hoursNumFmt = 2

// WriteXLSX writes a single-sheet workbook with the same columns as WriteCSV.
// Hour columns are stored as numbers formatted to two decimals.
func WriteXLSX(w io.Writer, records []application.AttendanceRecord, opts Options) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err = f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	cols := columns(opts)
	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col.title
	}
	if err = f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	hoursStyle, err := f.NewStyle(&excelize.Style{NumFmt: hoursNumFmt})
	if err != nil {
		return fmt.Errorf("export: create style: %w", err)
	}

	for r, record := range records {
		row := make([]any, len(cols))
		for i, col := range cols {
			value := col.value(record, opts)
			if col.hours {
				parsed, perr := decimal.NewFromString(value)
				if perr != nil {
					return fmt.Errorf("export: hours %q: %w", value, perr)
				}
				row[i] = parsed.InexactFloat64()
				continue
			}
			row[i] = value
		}
		cell, cerr := excelize.CoordinatesToCellName(1, r+2)
		if cerr != nil {
			return cerr
		}
		if err = f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", r+2, err)
		}
	}

	if len(records) > 0 {
		for i, col := range cols {
			if !col.hours {
				continue
			}
			top, _ := excelize.CoordinatesToCellName(i+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(i+1, len(records)+1)
			if err = f.SetCellStyle(sheetName, top, bottom, hoursStyle); err != nil {
				return fmt.Errorf("export: style hours: %w", err)
			}
		}
	}

	if _, err = f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// Write renders records in the requested format.
func Write(w io.Writer, format Format, records []application.AttendanceRecord, opts Options) error {
	if format == FormatXLSX {
		return WriteXLSX(w, records, opts)
	}
	return WriteCSV(w, records, opts)
}
