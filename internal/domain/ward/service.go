package ward

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

type Service struct {
	repo Repository
	pub  events.Publisher
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, pub: events.Nop{}}
}

// SetPublisher attaches the publisher used for maintenance events. Reserve
// and Release do not publish; they run inside the caller's transaction and
// the caller emits once it commits.
func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

// Reserve marks an Available bed Occupied.
func (s *Service) Reserve(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	bed, err := s.repo.TransitionStatus(ctx, bedID, BedAvailable, BedOccupied)
	if err != nil {
		return nil, err
	}
	if bed != nil {
		return bed, nil
	}
	current, err := s.repo.GetBed(ctx, bedID)
	if err != nil {
		return nil, err
	}
	return nil, apperror.New(apperror.KindBedUnavailable, "bed %s is %s", current.BedNumber, current.Status)
}

// Release marks an Occupied bed Available. Releasing a bed that is not
// Occupied means the admission ledger and the registry disagree, so it is
// reported as an internal failure and the transaction rolls back.
func (s *Service) Release(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	bed, err := s.repo.TransitionStatus(ctx, bedID, BedOccupied, BedAvailable)
	if err != nil {
		return nil, err
	}
	if bed != nil {
		return bed, nil
	}
	current, err := s.repo.GetBed(ctx, bedID)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Error().
		Str("bed_id", bedID.String()).
		Str("status", current.Status).
		Msg("release of a bed that is not occupied")
	return nil, apperror.Storage("release bed "+current.BedNumber, fmt.Errorf("bed is %s", current.Status))
}

func (s *Service) IsGenderCompatible(ctx context.Context, bedID uuid.UUID, gender string) (bool, error) {
	bed, err := s.repo.GetBed(ctx, bedID)
	if err != nil {
		return false, err
	}
	return GenderCompatible(bed.GenderPolicy, gender), nil
}

// SetMaintenance toggles a bed between Available and Maintenance. Occupied
// beds are refused.
func (s *Service) SetMaintenance(ctx context.Context, bedID uuid.UUID, on bool) (*Bed, error) {
	from, to := BedMaintenance, BedAvailable
	if on {
		from, to = BedAvailable, BedMaintenance
	}
	bed, err := s.repo.TransitionStatus(ctx, bedID, from, to)
	if err != nil {
		return nil, err
	}
	if bed == nil {
		current, err := s.repo.GetBed(ctx, bedID)
		if err != nil {
			return nil, err
		}
		if current.Status == to {
			return current, nil
		}
		return nil, apperror.New(apperror.KindBedUnavailable, "bed %s is %s", current.BedNumber, current.Status)
	}

	zerolog.Ctx(ctx).Info().Str("bed_id", bed.ID.String()).Str("status", bed.Status).Msg("bed maintenance toggled")
	events.Emit(ctx, s.pub, BedEvents(events.BedMaintenance, bed)...)
	return bed, nil
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.repo.GetBed(ctx, id)
}

func (s *Service) ListBeds(ctx context.Context, f BedFilter, limit, offset int) ([]*Bed, int, error) {
	if f.Status != "" && !validBedStatuses[f.Status] {
		return nil, 0, apperror.Validation("invalid bed status: %s", f.Status)
	}
	return s.repo.ListBeds(ctx, f, limit, offset)
}

func (s *Service) ListWards(ctx context.Context) ([]*Ward, error) {
	return s.repo.ListWards(ctx)
}

func (s *Service) WardOccupancy(ctx context.Context, wardID uuid.UUID) (*Occupancy, error) {
	o, err := s.repo.WardOccupancy(ctx, wardID)
	if err != nil {
		return nil, err
	}
	o.OccupancyRate = OccupancyRate(o.Occupied, o.Total)
	return o, nil
}

// OccupancyRate is occupied/total as a percentage rounded to two places.
func OccupancyRate(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(occupied) * 100 / float64(total)
	return float64(int64(pct*100+0.5)) / 100
}
