package charge

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the charge and fills in the stored total, paid flag and
	// creation time.
	Create(ctx context.Context, c *Charge) error
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error)
	// UnpaidForPatient returns every unpaid charge of the patient, oldest
	// first, locked for the rest of the ambient transaction.
	UnpaidForPatient(ctx context.Context, patientID uuid.UUID) ([]*Charge, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*Charge, error)
	// MarkPaid flips every unpaid charge that belongs to the admission or
	// whose id is listed, and returns how many changed.
	MarkPaid(ctx context.Context, admissionID uuid.UUID, ids []uuid.UUID) (int64, error)
	Revenue(ctx context.Context) (*Revenue, error)
}
