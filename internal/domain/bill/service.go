package bill

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/admission"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/charge"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/cache"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

// ChargeLedger is the part of the charge journal billing reads and settles.
type ChargeLedger interface {
	UnpaidForPatient(ctx context.Context, patientID uuid.UUID) ([]*charge.Charge, error)
	ChargesByID(ctx context.Context, ids []uuid.UUID) ([]*charge.Charge, error)
	MarkSettled(ctx context.Context, admissionID uuid.UUID, ids []uuid.UUID) (int64, error)
	Revenue(ctx context.Context) (*charge.Revenue, error)
}

type AdmissionLookup interface {
	GetAdmission(ctx context.Context, id uuid.UUID) (*admission.Admission, error)
	LatestAdmission(ctx context.Context, patientID uuid.UUID) (*admission.Admission, error)
}

// NumberGenerator issues unique bill numbers.
type NumberGenerator interface {
	Next() string
}

type Service struct {
	repo       Repository
	charges    ChargeLedger
	admissions AdmissionLookup
	dir        directory.Repository
	tx         db.Transactor
	numbers    NumberGenerator
	dueDays    int
	pub        events.Publisher
	cache      cache.Cache
	statsTTL   time.Duration
	now        func() time.Time
}

func NewService(repo Repository, charges ChargeLedger, admissions AdmissionLookup, dir directory.Repository, tx db.Transactor, numbers NumberGenerator) *Service {
	return &Service{
		repo:       repo,
		charges:    charges,
		admissions: admissions,
		dir:        dir,
		tx:         tx,
		numbers:    numbers,
		dueDays:    30,
		pub:        events.Nop{},
		cache:      cache.Noop{},
		statsTTL:   30 * time.Second,
		now:        time.Now,
	}
}

func (s *Service) SetDueDays(days int) {
	s.dueDays = days
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.statsTTL = ttl
}

// GenerateFinalBill captures every unpaid charge of the patient, across all
// of their admissions, on a new bill tied to the given admission (or the
// latest one). Charges stay unpaid until the bill is settled.
func (s *Service) GenerateFinalBill(ctx context.Context, req GenerateRequest) (*Detail, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	patient, err := s.dir.FindPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	adm, err := s.resolveAdmission(ctx, patient.ID, req.AdmissionID)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.repo.HasOutstanding(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		return nil, apperror.New(apperror.KindConflictingBill, "patient already has an outstanding bill")
	}

	var (
		b        *Bill
		captured []*charge.Charge
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.dir.LockPatient(ctx, patient.ID); err != nil {
			return err
		}
		outstanding, err := s.repo.HasOutstanding(ctx, patient.ID)
		if err != nil {
			return err
		}
		if outstanding {
			return apperror.New(apperror.KindConflictingBill, "patient already has an outstanding bill")
		}
		if captured, err = s.charges.UnpaidForPatient(ctx, patient.ID); err != nil {
			return err
		}
		if len(captured) == 0 {
			return apperror.Validation("no unpaid charges to bill")
		}

		total := decimal.Zero
		ids := make([]uuid.UUID, len(captured))
		for i, c := range captured {
			total = total.Add(c.TotalAmount)
			ids[i] = c.ID
		}
		now := s.now()
		y, m, d := now.Date()
		b = &Bill{
			BillNumber:    s.numbers.Next(),
			PatientID:     patient.ID,
			AdmissionID:   adm.ID,
			TotalAmount:   total,
			AmountPaid:    decimal.Zero,
			PaymentStatus: StatusFor(total, decimal.Zero),
			DueDate:       time.Date(y, m, d+s.dueDays, 0, 0, 0, 0, time.UTC),
			PatientName:   patient.FullName(),
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}
		return s.repo.AddItems(ctx, b.ID, ids)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("bill_id", b.ID.String()).
		Str("bill_number", b.BillNumber).
		Str("patient_id", patient.ID.String()).
		Int("charges", len(captured)).
		Str("total", b.TotalAmount.StringFixed(2)).
		Msg("final bill generated")
	s.invalidateStats(ctx)
	events.Emit(ctx, s.pub, events.New(events.BillGenerated, events.TopicBilling, b.ID.String(), b))
	return &Detail{Bill: *b, Items: captured}, nil
}

func (s *Service) resolveAdmission(ctx context.Context, patientID uuid.UUID, admissionID *uuid.UUID) (*admission.Admission, error) {
	if admissionID != nil {
		adm, err := s.admissions.GetAdmission(ctx, *admissionID)
		if err != nil {
			return nil, err
		}
		if adm.PatientID != patientID {
			return nil, apperror.New(apperror.KindNotFound, "admission not found for patient")
		}
		return adm, nil
	}
	adm, err := s.admissions.LatestAdmission(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if adm == nil {
		return nil, apperror.New(apperror.KindNotFound, "no admission found for patient")
	}
	return adm, nil
}

// ApplyPayment records a payment. When the balance reaches zero the bill is
// stamped with a payment date and the charges it covers are marked paid, in
// the same transaction.
func (s *Service) ApplyPayment(ctx context.Context, id uuid.UUID, req PaymentRequest) (*Bill, error) {
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperror.Validation("amount must be at least 0.01")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return nil, apperror.Validation("payment_method is required")
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(b, amount); err != nil {
		return nil, err
	}

	var settled int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkPayable(locked, amount); err != nil {
			return err
		}
		b = locked
		b.AmountPaid = b.AmountPaid.Add(amount)
		b.Balance = b.TotalAmount.Sub(b.AmountPaid)
		b.PaymentStatus = StatusFor(b.TotalAmount, b.AmountPaid)
		b.PaymentMethod = &method
		if req.ClaimNumber != nil {
			b.ClaimNumber = req.ClaimNumber
		}
		if !b.Balance.IsPositive() {
			paidAt := s.now().UTC()
			b.PaymentDate = &paidAt
		}
		if err := s.repo.RecordPayment(ctx, b); err != nil {
			return err
		}
		if b.PaymentDate == nil {
			return nil
		}
		ids, err := s.repo.ItemChargeIDs(ctx, b.ID)
		if err != nil {
			return err
		}
		settled, err = s.charges.MarkSettled(ctx, b.AdmissionID, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	log.Info().
		Str("bill_id", b.ID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("balance", b.Balance.StringFixed(2)).
		Str("status", b.PaymentStatus).
		Msg("payment applied")
	s.invalidateStats(ctx)
	evts := []events.Event{events.New(events.PaymentApplied, events.TopicBilling, b.ID.String(), b)}
	if b.PaymentDate != nil {
		log.Info().Str("bill_id", b.ID.String()).Int64("charges_settled", settled).Msg("bill settled")
		evts = append(evts, events.New(events.BillSettled, events.TopicBilling, b.ID.String(), b))
	}
	events.Emit(ctx, s.pub, evts...)
	return b, nil
}

func checkPayable(b *Bill, amount decimal.Decimal) error {
	if !b.Balance.IsPositive() {
		return apperror.New(apperror.KindAlreadySettled, "bill %s is already settled", b.BillNumber)
	}
	if amount.GreaterThan(b.Balance) {
		return apperror.New(apperror.KindOverPayment, "payment %s exceeds balance %s", amount.StringFixed(2), b.Balance.StringFixed(2))
	}
	return nil
}

// GetBill returns the bill with the charges captured on it.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Detail, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.ItemChargeIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.charges.ChargesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*charge.Charge{}
	}
	return &Detail{Bill: *b, Items: items}, nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Bill, int, error) {
	if f.PaymentStatus != "" && !validStatuses[f.PaymentStatus] {
		return nil, 0, apperror.Validation("invalid payment_status: %s", f.PaymentStatus)
	}
	return s.repo.List(ctx, f, s.today(), limit, offset)
}

// Stats reports revenue from charges and bill counts by status.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	key := cache.BillingStatsKey(db.TenantFromContext(ctx))
	return cache.GetOrLoad(ctx, s.cache, key, s.statsTTL, func(ctx context.Context) (*Stats, error) {
		rev, err := s.charges.Revenue(ctx)
		if err != nil {
			return nil, err
		}
		counts, err := s.repo.StatusCounts(ctx, s.today())
		if err != nil {
			return nil, err
		}
		byType := rev.ByServiceType
		if byType == nil {
			byType = []charge.ServiceRevenue{}
		}
		return &Stats{
			TotalRevenue:         rev.TotalRevenue,
			PendingRevenue:       rev.PendingRevenue,
			Bills:                *counts,
			RevenueByServiceType: byType,
		}, nil
	})
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) invalidateStats(ctx context.Context) {
	cache.Invalidate(ctx, s.cache, cache.BillingStatsKey(db.TenantFromContext(ctx)))
}
