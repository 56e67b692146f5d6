package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
	"github.com/ericfisherdev/patientreg/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PatientStore = (*PatientRepo)(nil)

// timeLayout is the fixed UTC layout registered_at is written in. Lexical
// order of stored values matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// PatientRepo is the SQLite implementation of the PatientStore port interface.
type PatientRepo struct {
	db  *DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time // latest registered_at issued by this repo
}

// NewPatientRepo creates a new PatientRepo backed by the given DB.
func NewPatientRepo(db *DB) *PatientRepo {
	return NewPatientRepoWithClock(db, time.Now)
}

// NewPatientRepoWithClock creates a PatientRepo that stamps registered_at
// from now instead of the wall clock.
func NewPatientRepoWithClock(db *DB, now func() time.Time) *PatientRepo {
	return &PatientRepo{db: db, now: now}
}

// Insert validates in and writes it as a new row. The store assigns the id;
// registered_at never goes backwards across calls on the same repo.
func (r *PatientRepo) Insert(ctx context.Context, in model.PatientInput) (model.Patient, error) {
	in, err := in.Normalize()
	if err != nil {
		return model.Patient{}, err
	}

	const query = `INSERT INTO patients (name, age, gender, contact, registered_at) VALUES (?, ?, ?, ?, ?)`

	r.mu.Lock()
	defer r.mu.Unlock()

	registeredAt := r.nextTimestamp()
	result, err := r.db.Writer.ExecContext(ctx, query,
		in.Name, in.Age, in.Gender, nullString(in.Contact), registeredAt.Format(timeLayout))
	if err != nil {
		return model.Patient{}, &model.StorageError{Op: "insert patient", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Patient{}, &model.StorageError{Op: "read inserted id", Err: err}
	}
	r.last = registeredAt

	return model.Patient{
		ID:           id,
		Name:         in.Name,
		Age:          in.Age,
		Gender:       model.Gender(in.Gender),
		Contact:      in.Contact,
		RegisteredAt: registeredAt,
	}, nil
}

// nextTimestamp returns the clock reading truncated to the stored precision,
// clamped to the last issued value. Caller must hold r.mu.
func (r *PatientRepo) nextTimestamp() time.Time {
	t := r.now().UTC().Truncate(time.Microsecond)
	if t.Before(r.last) {
		return r.last
	}
	return t
}

// Execute runs an arbitrary statement. Row-returning statements are read from
// the reader pool; everything else goes through the writer and reports the
// affected row count. Engine failures are returned as *model.QueryError.
func (r *PatientRepo) Execute(ctx context.Context, statement string) (model.ResultSet, error) {
	if model.LeadingKeyword(statement) == "" {
		return model.ResultSet{}, &model.QueryError{Statement: statement, Err: errors.New("empty statement")}
	}

	if !model.ReturnsRows(statement) {
		affected, err := r.execWrite(ctx, statement)
		if err != nil {
			return model.ResultSet{}, err
		}
		return model.ResultSet{Columns: []string{}, Rows: []model.Row{}, RowsAffected: affected}, nil
	}

	rows, err := r.db.Reader.QueryContext(ctx, statement)
	if err != nil {
		return model.ResultSet{}, &model.QueryError{Statement: statement, Err: err}
	}
	defer rows.Close()

	rs, err := scanResultSet(rows)
	if err != nil {
		return model.ResultSet{}, &model.QueryError{Statement: statement, Err: err}
	}
	return rs, nil
}

// execWrite runs statement on the writer connection and returns the number of
// rows it changed, measured with total_changes() around the statement on the
// same connection. sql.Result.RowsAffected reports the previous statement's
// count after DDL, so it is not used here.
func (r *PatientRepo) execWrite(ctx context.Context, statement string) (int64, error) {
	conn, err := r.db.Writer.Conn(ctx)
	if err != nil {
		return 0, &model.StorageError{Op: "acquire writer connection", Err: err}
	}
	defer conn.Close()

	before, err := totalChanges(ctx, conn)
	if err != nil {
		return 0, &model.StorageError{Op: "read change counter", Err: err}
	}

	if _, err := conn.ExecContext(ctx, statement); err != nil {
		return 0, &model.QueryError{Statement: statement, Err: err}
	}

	after, err := totalChanges(ctx, conn)
	if err != nil {
		return 0, &model.StorageError{Op: "read change counter", Err: err}
	}
	return after - before, nil
}

func totalChanges(ctx context.Context, conn *sql.Conn) (int64, error) {
	var n int64
	err := conn.QueryRowContext(ctx, `SELECT total_changes()`).Scan(&n)
	return n, err
}

func scanResultSet(rows *sql.Rows) (model.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return model.ResultSet{}, fmt.Errorf("read columns: %w", err)
	}

	rs := model.ResultSet{Columns: columns, Rows: []model.Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return model.ResultSet{}, fmt.Errorf("scan row: %w", err)
		}

		row := make(model.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}

	return rs, nil
}

// ListAll returns every patient in store order (ascending id).
func (r *PatientRepo) ListAll(ctx context.Context) ([]model.Patient, error) {
	const query = `SELECT id, name, age, gender, contact, registered_at FROM patients ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, &model.StorageError{Op: "list patients", Err: err}
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, &model.StorageError{Op: "scan patient", Err: err}
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "iterate patients", Err: err}
	}

	return patients, nil
}

// Get returns the patient with the given id. Returns nil, nil if no such row exists.
func (r *PatientRepo) Get(ctx context.Context, id int64) (*model.Patient, error) {
	const query = `SELECT id, name, age, gender, contact, registered_at FROM patients WHERE id = ?`

	p, err := scanPatient(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: fmt.Sprintf("get patient %d", id), Err: err}
	}
	return p, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (*model.Patient, error) {
	var p model.Patient
	var gender string
	var contact sql.NullString
	var registeredAt string

	if err := s.Scan(&p.ID, &p.Name, &p.Age, &gender, &contact, &registeredAt); err != nil {
		return nil, err
	}

	p.Gender = model.Gender(gender)
	p.Contact = contact.String

	var err error
	p.RegisteredAt, err = parseTime(registeredAt)
	if err != nil {
		return nil, fmt.Errorf("parse registered_at for patient %d: %w", p.ID, err)
	}

	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseTime tries the store's own layout first, then the formats SQLite's
// datetime functions produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
