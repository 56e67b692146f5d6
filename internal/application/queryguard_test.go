package application

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

func TestQueryGuard_LeadingMode(t *testing.T) {
	guard := NewQueryGuard(DefaultQueryPolicy())

	tests := []struct {
		name        string
		stmt        string
		wantKeyword string
	}{
		{name: "select allowed", stmt: "SELECT * FROM patients"},
		{name: "insert allowed", stmt: "INSERT INTO patients (name, age, gender) VALUES ('a', 1, 'Male')"},
		{name: "update in string literal allowed", stmt: "SELECT * FROM patients WHERE name = 'update'"},
		{name: "delete blocked", stmt: "DELETE FROM patients;", wantKeyword: "delete"},
		{name: "drop blocked", stmt: "drop table patients", wantKeyword: "drop"},
		{name: "update blocked with whitespace", stmt: "\n\t  UpDaTe patients SET age = 3", wantKeyword: "update"},
		{name: "truncate blocked", stmt: "TRUNCATE patients", wantKeyword: "truncate"},
		{name: "leading comment stripped", stmt: "/* hi */ delete from patients", wantKeyword: "delete"},
		{name: "batch after select not caught", stmt: "SELECT 1; DROP TABLE patients"},
		{name: "cte select allowed", stmt: "WITH adults AS (SELECT * FROM patients WHERE age >= 18) SELECT name FROM adults"},
		{name: "cte delete blocked", stmt: "WITH x AS (SELECT 1) DELETE FROM patients", wantKeyword: "delete"},
		{name: "cte update blocked", stmt: "with ids(id) as (select id from patients) UPDATE patients SET age = 0", wantKeyword: "update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(tt.stmt)
			if tt.wantKeyword == "" {
				assert.NoError(t, err)
				return
			}
			var berr *model.BlockedOperationError
			require.True(t, errors.As(err, &berr), "expected BlockedOperationError, got %v", err)
			assert.Equal(t, tt.wantKeyword, berr.Keyword)
		})
	}
}

func TestQueryGuard_AnywhereMode(t *testing.T) {
	guard := NewQueryGuard(QueryPolicy{
		Denied: []string{"drop", "delete", "update", "truncate"},
		Mode:   GuardAnywhere,
	})

	assert.NoError(t, guard.Check("SELECT * FROM patients"))
	assert.NoError(t, guard.Check("SELECT updated_at FROM audit"), "whole words only")

	var berr *model.BlockedOperationError
	require.True(t, errors.As(guard.Check("SELECT 1; DROP TABLE patients"), &berr))
	assert.Equal(t, "drop", berr.Keyword)

	// Over-blocks a benign literal; the guard is advisory.
	require.True(t, errors.As(guard.Check("SELECT * FROM patients WHERE name = 'Update'"), &berr))
}

func TestQueryGuard_CustomPolicy(t *testing.T) {
	guard := NewQueryGuard(QueryPolicy{Denied: []string{" INSERT ", ""}})

	var berr *model.BlockedOperationError
	require.True(t, errors.As(guard.Check("insert into patients default values"), &berr))
	assert.Equal(t, "insert", berr.Keyword)
	assert.NoError(t, guard.Check("DELETE FROM patients"))

	empty := NewQueryGuard(QueryPolicy{Mode: GuardAnywhere})
	assert.NoError(t, empty.Check("DROP TABLE patients"))
}

func TestParseGuardMode(t *testing.T) {
	mode, err := ParseGuardMode(" Leading ")
	require.NoError(t, err)
	assert.Equal(t, GuardLeading, mode)

	mode, err = ParseGuardMode("anywhere")
	require.NoError(t, err)
	assert.Equal(t, GuardAnywhere, mode)

	_, err = ParseGuardMode("strict")
	assert.Error(t, err)
}
