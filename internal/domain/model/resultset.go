package model

// Row maps a column name to its value as returned by the engine.
type Row map[string]any

// ResultSet is the tabular result of an ad-hoc statement. Rows keep the
// engine's order. For statements that return no rows, Columns and Rows are
// empty and RowsAffected reports the number of changed rows.
type ResultSet struct {
	Columns      []string `json:"columns"`
	Rows         []Row    `json:"rows"`
	RowsAffected int64    `json:"rows_affected"`
}
