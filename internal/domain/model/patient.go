package model

import (
	"strings"
	"time"
)

// Patient is a registered patient record as persisted by the store.
// ID is assigned by the store and increases with insertion order.
type Patient struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Age          int       `json:"age" yaml:"age"`
	Gender       Gender    `json:"gender" yaml:"gender"`
	Contact      string    `json:"contact,omitempty" yaml:"contact,omitempty"`
	RegisteredAt time.Time `json:"registered_at" yaml:"registered_at"`
}

// PatientInput carries the user-supplied fields of a new patient.
type PatientInput struct {
	Name    string
	Age     int
	Gender  string
	Contact string
}

// Normalize validates the input and returns a copy with trimmed text fields
// and a canonical gender.
func (in PatientInput) Normalize() (PatientInput, error) {
	out := PatientInput{
		Name:    strings.TrimSpace(in.Name),
		Age:     in.Age,
		Contact: strings.TrimSpace(in.Contact),
	}

	if out.Name == "" {
		return PatientInput{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if out.Age < 0 {
		return PatientInput{}, &ValidationError{Field: "age", Reason: "must be a non-negative integer"}
	}

	g, ok := ParseGender(in.Gender)
	if !ok {
		return PatientInput{}, &ValidationError{Field: "gender", Reason: "must be one of Male, Female, Other"}
	}
	out.Gender = string(g)

	return out, nil
}

// ClonePatients returns a copy of ps that shares no backing array with it.
// A nil slice is returned as an empty, non-nil slice.
func ClonePatients(ps []Patient) []Patient {
	out := make([]Patient, len(ps))
	copy(out, ps)
	return out
}
