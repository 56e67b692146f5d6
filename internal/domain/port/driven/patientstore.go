package driven

import (
	"context"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// PatientStore defines the driven port for the persistent, queryable patient table.
// Insert is always a parameterized insert; Execute runs an arbitrary statement
// and never panics on malformed input.
type PatientStore interface {
	Insert(ctx context.Context, in model.PatientInput) (model.Patient, error)
	Execute(ctx context.Context, statement string) (model.ResultSet, error)
	ListAll(ctx context.Context) ([]model.Patient, error)
	Get(ctx context.Context, id int64) (*model.Patient, error)
}
