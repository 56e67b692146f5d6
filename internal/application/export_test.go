package application

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestExportCSV_Golden(t *testing.T) {
	columns := []string{"id", "name", "age", "gender", "contact", "registered_at"}
	rows := []model.Row{
		{
			"id": int64(1), "name": "Jane Doe", "age": int64(34), "gender": "Female",
			"contact": "555-1234", "registered_at": "2026-03-01T09:00:01.000000Z",
		},
		{
			"id": int64(2), "name": "Doe, John", "age": int64(40), "gender": "Male",
			"contact": nil, "registered_at": "2026-03-01T09:00:02.000000Z",
		},
		{
			"id": int64(3), "name": `Robert "Bobby" Tables`, "age": int64(12), "gender": "Other",
			"contact": "line1\nline2", "registered_at": "2026-03-01T09:00:03.000000Z",
		},
	}

	newGoldie(t).Assert(t, "export_patients", []byte(ExportCSV(columns, rows)))
}

func TestExportCSV_ValueFormatting(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := []model.Row{{
		"f": 1.5, "b": true, "bytes": []byte("raw"), "i": 7, "t": at, "cr": "a\rb",
	}}

	got := ExportCSV([]string{"f", "b", "bytes", "i", "t", "cr"}, rows)
	assert.Equal(t, "f,b,bytes,i,t,cr\n1.5,true,raw,7,2026-03-01T09:00:00Z,\"a\rb\"\n", got)
}

func TestExportCSV_ColumnsDerivedFromFirstRow(t *testing.T) {
	got := ExportCSV(nil, []model.Row{{"b": "2", "a": "1"}})
	assert.Equal(t, "a,b\n1,2\n", got)
}

func TestExportCSV_HeaderOnlyAndEmpty(t *testing.T) {
	assert.Equal(t, "id,name\n", ExportCSV([]string{"id", "name"}, nil))
	assert.Equal(t, "", ExportCSV(nil, nil))
}

func TestWriteCSV_Writer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"x"}, []model.Row{{"x": "a,b"}}))
	assert.Equal(t, "x\n\"a,b\"\n", buf.String())
}
