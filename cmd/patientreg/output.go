package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/patientreg/internal/application"
	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// patientColumns is the column order used when patients are shown as a table.
var patientColumns = []string{"id", "name", "age", "gender", "contact", "registered_at"}

// OutputFormatter renders command results in the selected format. Results go
// to Writer; notices go to ErrWriter so piped output stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}

// resultSetDoc is the json/yaml shape of a result set.
type resultSetDoc struct {
	Columns      []string    `json:"columns" yaml:"columns"`
	Rows         []model.Row `json:"rows" yaml:"rows"`
	RowsAffected int64       `json:"rows_affected" yaml:"rows_affected"`
}

// Patient renders a single patient.
func (f *OutputFormatter) Patient(p model.Patient) error {
	switch f.Format {
	case "json", "yaml":
		return f.encode(p)
	default:
		return f.ResultSet(patientsResultSet([]model.Patient{p}))
	}
}

// Patients renders a patient list.
func (f *OutputFormatter) Patients(ps []model.Patient) error {
	if ps == nil {
		ps = []model.Patient{}
	}
	switch f.Format {
	case "json", "yaml":
		return f.encode(ps)
	default:
		return f.ResultSet(patientsResultSet(ps))
	}
}

// ResultSet renders a console result.
func (f *OutputFormatter) ResultSet(rs model.ResultSet) error {
	switch f.Format {
	case "json", "yaml":
		doc := resultSetDoc{Columns: rs.Columns, Rows: rs.Rows, RowsAffected: rs.RowsAffected}
		if doc.Columns == nil {
			doc.Columns = []string{}
		}
		if doc.Rows == nil {
			doc.Rows = []model.Row{}
		}
		return f.encode(doc)
	case "csv":
		if len(rs.Columns) == 0 {
			return nil
		}
		return application.WriteCSV(f.Writer, rs.Columns, rs.Rows)
	default:
		return f.table(rs)
	}
}

// Notice writes a green confirmation line, the terminal rendition of a toast.
func (f *OutputFormatter) Notice(format string, args ...any) {
	_, _ = color.New(color.FgGreen, color.Bold).Fprint(f.ErrWriter, "✓ ")
	_, _ = fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

func (f *OutputFormatter) encode(v any) error {
	if f.Format == "yaml" {
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *OutputFormatter) table(rs model.ResultSet) error {
	if len(rs.Columns) == 0 {
		_, err := fmt.Fprintf(f.Writer, "%d row(s) affected\n", rs.RowsAffected)
		return err
	}

	w := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	header := make([]string, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = strings.ToUpper(col)
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	cells := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, col := range rs.Columns {
			cells[i] = application.FormatValue(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(f.Writer, "(%d row(s))\n", len(rs.Rows))
	return err
}

func patientsResultSet(ps []model.Patient) model.ResultSet {
	rows := make([]model.Row, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, model.Row{
			"id":            p.ID,
			"name":          p.Name,
			"age":           p.Age,
			"gender":        string(p.Gender),
			"contact":       p.Contact,
			"registered_at": p.RegisteredAt.UTC().Format(time.RFC3339),
		})
	}
	return model.ResultSet{Columns: patientColumns, Rows: rows}
}
