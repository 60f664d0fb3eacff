package bill

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the bill and fills in the stored balance and timestamps.
	Create(ctx context.Context, b *Bill) error
	AddItems(ctx context.Context, billID uuid.UUID, chargeIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// LockByID reads the bill with a row lock held until the ambient
	// transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	HasOutstanding(ctx context.Context, patientID uuid.UUID) (bool, error)
	// RecordPayment persists amount paid, method, claim number, status and
	// payment date, and refreshes the stored balance.
	RecordPayment(ctx context.Context, b *Bill) error
	ItemChargeIDs(ctx context.Context, billID uuid.UUID) ([]uuid.UUID, error)
	List(ctx context.Context, f Filter, today time.Time, limit, offset int) ([]*Bill, int, error)
	StatusCounts(ctx context.Context, today time.Time) (*StatusCounts, error)
}
