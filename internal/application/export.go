package application

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// ExportCSV renders rows as comma-separated text with a header line.
// See WriteCSV for the quoting rules.
func ExportCSV(columns []string, rows []model.Row) string {
	var b strings.Builder
	_ = WriteCSV(&b, columns, rows)
	return b.String()
}

// WriteCSV writes a header line of columns followed by one line per row, in
// column order. A field containing a comma, double quote, CR or LF is wrapped
// in double quotes with inner quotes doubled. NULL values are empty fields.
// When columns is empty the sorted keys of the first row are used.
func WriteCSV(w io.Writer, columns []string, rows []model.Row) error {
	if len(columns) == 0 && len(rows) > 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}
	if len(columns) == 0 {
		return nil
	}

	if err := writeCSVLine(w, columns); err != nil {
		return err
	}

	fields := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			fields[i] = FormatValue(row[col])
		}
		if err := writeCSVLine(w, fields); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVLine(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCSVField(f))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCSVField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FormatValue renders a result cell as text. nil becomes the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
