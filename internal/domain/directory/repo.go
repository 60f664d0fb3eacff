package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the lookup surface other domains depend on. Missing rows come
// back as apperror.ErrNotFound.
type Repository interface {
	FindPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	// LockPatient takes a row lock on the patient for the rest of the
	// ambient transaction. It serializes admissions and bill consolidation
	// for one patient.
	LockPatient(ctx context.Context, id uuid.UUID) error
	FindVisit(ctx context.Context, id uuid.UUID) (*Visit, error)
	MarkVisitAdmitted(ctx context.Context, id uuid.UUID) error
	FindService(ctx context.Context, id uuid.UUID) (*Service, error)
}
