package ward

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ListWards(ctx context.Context) ([]*Ward, error)
	GetBed(ctx context.Context, id uuid.UUID) (*Bed, error)
	ListBeds(ctx context.Context, f BedFilter, limit, offset int) ([]*Bed, int, error)
	// TransitionStatus moves the bed from one status to another only if it
	// is currently in the expected one. It returns nil, nil when the bed was
	// not in that status (or does not exist).
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (*Bed, error)
	WardOccupancy(ctx context.Context, wardID uuid.UUID) (*Occupancy, error)
}
