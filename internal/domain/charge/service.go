package charge

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/admission"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/cache"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

// AdmissionResolver answers which admission a charge belongs to.
type AdmissionResolver interface {
	CurrentAdmission(ctx context.Context, patientID uuid.UUID) (*admission.Admission, error)
	GetAdmission(ctx context.Context, id uuid.UUID) (*admission.Admission, error)
}

type Service struct {
	repo       Repository
	dir        directory.Repository
	admissions AdmissionResolver
	pub        events.Publisher
	cache      cache.Cache
}

func NewService(repo Repository, dir directory.Repository, admissions AdmissionResolver) *Service {
	return &Service{
		repo:       repo,
		dir:        dir,
		admissions: admissions,
		pub:        events.Nop{},
		cache:      cache.Noop{},
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

// SetCache sets the cache whose billing statistics a new charge invalidates.
func (s *Service) SetCache(c cache.Cache) {
	s.cache = c
}

// AddCharge records a charge. Without an explicit admission the charge is
// attached to the patient's open admission, if any.
func (s *Service) AddCharge(ctx context.Context, req AddRequest) (*Detail, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	patient, err := s.dir.FindPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	c := &Charge{
		PatientID:   patient.ID,
		ServiceID:   req.ServiceID,
		Description: strings.TrimSpace(req.Description),
		Quantity:    1,
		AddedBy:     optional(req.AddedBy),
	}
	d := &Detail{PatientName: patient.FullName()}

	if req.ServiceID != nil {
		svc, err := s.dir.FindService(ctx, *req.ServiceID)
		if err != nil {
			return nil, err
		}
		if c.Description == "" {
			c.Description = svc.Name
		}
		if req.UnitPrice == nil {
			price := svc.Price
			req.UnitPrice = &price
		}
		d.ServiceName = &svc.Name
		d.ServiceType = &svc.ServiceType
	}

	if c.Description == "" {
		return nil, apperror.Validation("description is required")
	}
	if req.UnitPrice == nil {
		return nil, apperror.Validation("unit_price is required")
	}
	c.UnitPrice = req.UnitPrice.Round(2)
	if !c.UnitPrice.IsPositive() {
		return nil, apperror.Validation("unit_price must be greater than zero")
	}
	if c.UnitPrice.GreaterThan(maxUnitPrice) {
		return nil, apperror.Validation("unit_price must not exceed %s", maxUnitPrice.StringFixed(2))
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 || *req.Quantity > MaxQuantity {
			return nil, apperror.Validation("quantity must be between 1 and %d", MaxQuantity)
		}
		c.Quantity = *req.Quantity
	}
	if c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity))).GreaterThan(maxTotal) {
		return nil, apperror.Validation("charge total must not exceed %s", maxTotal.StringFixed(2))
	}

	adm, err := s.resolveAdmission(ctx, patient.ID, req.AdmissionID)
	if err != nil {
		return nil, err
	}
	if adm != nil {
		c.AdmissionID = &adm.ID
		d.AdmissionStatus = &adm.Status
		d.AdmissionDate = &adm.AdmissionDate
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	d.Charge = *c

	zerolog.Ctx(ctx).Info().
		Str("charge_id", c.ID.String()).
		Str("patient_id", c.PatientID.String()).
		Str("total", c.TotalAmount.StringFixed(2)).
		Msg("charge added")
	cache.Invalidate(ctx, s.cache, cache.BillingStatsKey(db.TenantFromContext(ctx)))
	events.Emit(ctx, s.pub, events.New(events.ChargeAdded, events.TopicBilling, c.ID.String(), c))
	return d, nil
}

func (s *Service) resolveAdmission(ctx context.Context, patientID uuid.UUID, admissionID *uuid.UUID) (*admission.Admission, error) {
	if admissionID == nil {
		return s.admissions.CurrentAdmission(ctx, patientID)
	}
	adm, err := s.admissions.GetAdmission(ctx, *admissionID)
	if err != nil {
		return nil, err
	}
	if adm.PatientID != patientID {
		return nil, apperror.New(apperror.KindNotFound, "admission not found for patient")
	}
	return adm, nil
}

func (s *Service) GetCharge(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// UnpaidForPatient is the bill consolidator's sweep of outstanding charges.
func (s *Service) UnpaidForPatient(ctx context.Context, patientID uuid.UUID) ([]*Charge, error) {
	return s.repo.UnpaidForPatient(ctx, patientID)
}

func (s *Service) ChargesByID(ctx context.Context, ids []uuid.UUID) ([]*Charge, error) {
	return s.repo.GetMany(ctx, ids)
}

// MarkSettled flips the charges a fully paid bill covers: those of its
// admission and those captured on it.
func (s *Service) MarkSettled(ctx context.Context, admissionID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return s.repo.MarkPaid(ctx, admissionID, ids)
}

func (s *Service) Revenue(ctx context.Context) (*Revenue, error) {
	return s.repo.Revenue(ctx)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
