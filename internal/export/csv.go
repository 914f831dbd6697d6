package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/example/store-attendance/internal/application"
)

const utf8BOM = "\ufeff"

// WriteCSV writes a BOM-prefixed CSV with one header row and one row per record.
// Free-text columns are always quoted so spreadsheet tools never split names or notes.
func WriteCSV(w io.Writer, records []application.AttendanceRecord, opts Options) error {
	bw := bufio.NewWriter(w)
	cols := columns(opts)

	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.title
	}
	if err := writeLine(bw, header); err != nil {
		return err
	}

	fields := make([]string, len(cols))
	for _, record := range records {
		for i, col := range cols {
			value := col.value(record, opts)
			if col.text || strings.ContainsAny(value, ",\"\r\n") {
				value = quote(value)
			}
			fields[i] = value
		}
		if err := writeLine(bw, fields); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, fields []string) error {
	if _, err := w.WriteString(strings.Join(fields, ",")); err != nil {
		return err
	}
	_, err := w.WriteString("\n")
	return err
}

func quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
