package application

import (
	"strconv"
	"strings"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// ParseAge converts form text into an age. Anything other than a base-10
// non-negative integer is a validation error.
func ParseAge(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &model.ValidationError{Field: "age", Reason: "is required"}
	}
	age, err := strconv.Atoi(s)
	if err != nil || age < 0 {
		return 0, &model.ValidationError{Field: "age", Reason: "must be a non-negative integer"}
	}
	return age, nil
}
