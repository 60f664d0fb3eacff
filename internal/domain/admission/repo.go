package admission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	// LockByID reads the admission with a row lock held until the ambient
	// transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	// ActiveForPatient returns the patient's most recent Admitted admission,
	// or nil when there is none.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	// LatestForPatient returns the most recent Discharged admission, falling
	// back to the most recent of any status, or nil when there is none.
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	// Close persists the status, discharge date and discharge metadata.
	Close(ctx context.Context, a *Admission) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error)
	Stats(ctx context.Context, dayStart time.Time) (*Stats, error)
}
