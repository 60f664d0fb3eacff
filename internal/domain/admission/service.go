package admission

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/ward"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/cache"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/db"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

// BedRegistry is the part of the bed registry the ledger drives.
type BedRegistry interface {
	GetBed(ctx context.Context, id uuid.UUID) (*ward.Bed, error)
	Reserve(ctx context.Context, bedID uuid.UUID) (*ward.Bed, error)
	Release(ctx context.Context, bedID uuid.UUID) (*ward.Bed, error)
	IsGenderCompatible(ctx context.Context, bedID uuid.UUID, gender string) (bool, error)
}

type Service struct {
	repo     Repository
	beds     BedRegistry
	dir      directory.Repository
	tx       db.Transactor
	pub      events.Publisher
	cache    cache.Cache
	statsTTL time.Duration
	now      func() time.Time
}

func NewService(repo Repository, beds BedRegistry, dir directory.Repository, tx db.Transactor) *Service {
	return &Service{
		repo:     repo,
		beds:     beds,
		dir:      dir,
		tx:       tx,
		pub:      events.Nop{},
		cache:    cache.Noop{},
		statsTTL: 30 * time.Second,
		now:      time.Now,
	}
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.pub = p
}

func (s *Service) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.statsTTL = ttl
}

// Admit places a patient in a bed. Preconditions are checked first; the
// patient lock, bed reservation, admission insert and visit update then
// commit together or not at all.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*Detail, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperror.Validation("patient_id is required")
	}
	if req.BedID == uuid.Nil {
		return nil, apperror.Validation("bed_id is required")
	}
	visitID, err := parseVisitID(req.VisitID)
	if err != nil {
		return nil, err
	}

	patient, err := s.dir.FindPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	bed, err := s.beds.GetBed(ctx, req.BedID)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ActiveForPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperror.New(apperror.KindAlreadyAdmitted, "patient is already admitted")
	}
	if bed.Status != ward.BedAvailable {
		return nil, apperror.New(apperror.KindBedUnavailable, "bed %s is %s", bed.BedNumber, bed.Status)
	}
	ok, err := s.beds.IsGenderCompatible(ctx, bed.ID, patient.Gender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.KindGenderMismatch, "%s patient cannot be placed in a %s ward", patient.Gender, bed.GenderPolicy)
	}
	var visit *directory.Visit
	if visitID != nil {
		if visit, err = s.dir.FindVisit(ctx, *visitID); err != nil {
			return nil, err
		}
	}

	a := &Admission{
		PatientID:     patient.ID,
		BedID:         bed.ID,
		VisitID:       visitID,
		AdmissionDate: s.now().UTC(),
		Status:        StatusAdmitted,
		Reason:        req.Reason,
		AdmissionType: req.AdmissionType,
		Notes:         req.Notes,
		AdmittedBy:    optional(req.AdmittedBy),
	}
	var reserved *ward.Bed
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.dir.LockPatient(ctx, patient.ID); err != nil {
			return err
		}
		active, err := s.repo.ActiveForPatient(ctx, patient.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperror.New(apperror.KindAlreadyAdmitted, "patient is already admitted")
		}
		if reserved, err = s.beds.Reserve(ctx, bed.ID); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		if visit != nil {
			return s.dir.MarkVisitAdmitted(ctx, visit.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("admission_id", a.ID.String()).
		Str("patient_id", patient.ID.String()).
		Str("bed_id", bed.ID.String()).
		Msg("patient admitted")
	s.invalidateStats(ctx)
	evts := append(ward.BedEvents(events.BedReserved, reserved),
		events.New(events.AdmissionCreated, events.TopicBeds, a.ID.String(), a))
	events.Emit(ctx, s.pub, evts...)

	d := &Detail{
		Admission:   *a,
		BedNumber:   reserved.BedNumber,
		WardID:      reserved.WardID,
		WardName:    reserved.WardName,
		PatientName: patient.FullName(),
		PatientNo:   patient.PatientNo,
		Gender:      patient.Gender,
	}
	if visit != nil {
		d.VisitDate = &visit.VisitDate
	}
	return d, nil
}

// Discharge closes an Admitted admission and frees its bed.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, req DischargeRequest) (*Admission, error) {
	followUp, err := parseDate("follow_up_date", req.FollowUpDate)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusAdmitted {
		return nil, apperror.New(apperror.KindAlreadyDischarged, "admission is already %s", strings.ToLower(a.Status))
	}

	var released *ward.Bed
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusAdmitted {
			return apperror.New(apperror.KindAlreadyDischarged, "admission is already %s", strings.ToLower(locked.Status))
		}
		a = locked
		closedAt := s.closeTime(a)
		a.Status = StatusDischarged
		a.DischargeDate = &closedAt
		applyDischarge(a, req, followUp)
		if err := s.repo.Close(ctx, a); err != nil {
			return err
		}
		released, err = s.beds.Release(ctx, a.BedID)
		return err
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("admission_id", a.ID.String()).
		Str("bed_id", a.BedID.String()).
		Msg("patient discharged")
	s.invalidateStats(ctx)
	evts := append(ward.BedEvents(events.BedReleased, released),
		events.New(events.AdmissionClosed, events.TopicBeds, a.ID.String(), a))
	events.Emit(ctx, s.pub, evts...)
	return a, nil
}

// Transfer moves an admitted patient to another bed. The current admission
// is closed as Transferred and a new Admitted admission is opened on the new
// bed, linked back to the one it replaces.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, req TransferRequest) (*Detail, error) {
	if req.BedID == uuid.Nil {
		return nil, apperror.Validation("bed_id is required")
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusAdmitted {
		return nil, apperror.New(apperror.KindAlreadyDischarged, "admission is already %s", strings.ToLower(current.Status))
	}
	if current.BedID == req.BedID {
		return nil, apperror.Validation("patient is already in this bed")
	}
	patient, err := s.dir.FindPatient(ctx, current.PatientID)
	if err != nil {
		return nil, err
	}
	bed, err := s.beds.GetBed(ctx, req.BedID)
	if err != nil {
		return nil, err
	}
	if bed.Status != ward.BedAvailable {
		return nil, apperror.New(apperror.KindBedUnavailable, "bed %s is %s", bed.BedNumber, bed.Status)
	}
	ok, err := s.beds.IsGenderCompatible(ctx, bed.ID, patient.Gender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.KindGenderMismatch, "%s patient cannot be placed in a %s ward", patient.Gender, bed.GenderPolicy)
	}

	var (
		next               *Admission
		released, reserved *ward.Bed
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != StatusAdmitted {
			return apperror.New(apperror.KindAlreadyDischarged, "admission is already %s", strings.ToLower(locked.Status))
		}
		current = locked
		movedAt := s.closeTime(current)
		current.Status = StatusTransferred
		current.DischargeDate = &movedAt
		if err := s.repo.Close(ctx, current); err != nil {
			return err
		}
		if released, err = s.beds.Release(ctx, current.BedID); err != nil {
			return err
		}
		if reserved, err = s.beds.Reserve(ctx, bed.ID); err != nil {
			return err
		}
		reason := req.Reason
		if reason == nil {
			reason = current.Reason
		}
		next = &Admission{
			PatientID:         current.PatientID,
			BedID:             bed.ID,
			VisitID:           current.VisitID,
			TransferredFromID: &current.ID,
			AdmissionDate:     movedAt,
			Status:            StatusAdmitted,
			Reason:            reason,
			AdmissionType:     current.AdmissionType,
			Notes:             current.Notes,
			AdmittedBy:        optional(req.MovedBy),
		}
		return s.repo.Create(ctx, next)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("from_admission_id", current.ID.String()).
		Str("admission_id", next.ID.String()).
		Str("from_bed_id", current.BedID.String()).
		Str("bed_id", next.BedID.String()).
		Msg("patient transferred")
	s.invalidateStats(ctx)
	evts := append(ward.BedEvents(events.BedReleased, released), ward.BedEvents(events.BedReserved, reserved)...)
	evts = append(evts, events.New(events.AdmissionMoved, events.TopicBeds, next.ID.String(), next))
	events.Emit(ctx, s.pub, evts...)

	return &Detail{
		Admission:   *next,
		BedNumber:   reserved.BedNumber,
		WardID:      reserved.WardID,
		WardName:    reserved.WardName,
		PatientName: patient.FullName(),
		PatientNo:   patient.PatientNo,
		Gender:      patient.Gender,
	}, nil
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// CurrentAdmission returns the patient's open admission, or nil.
func (s *Service) CurrentAdmission(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return s.repo.ActiveForPatient(ctx, patientID)
}

// LatestAdmission returns the patient's most recent admission, preferring a
// Discharged one, or nil.
func (s *Service) LatestAdmission(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	return s.repo.LatestForPatient(ctx, patientID)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Detail, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apperror.Validation("invalid admission status: %s", f.Status)
	}
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	key := cache.AdmissionStatsKey(db.TenantFromContext(ctx))
	return cache.GetOrLoad(ctx, s.cache, key, s.statsTTL, func(ctx context.Context) (*Stats, error) {
		now := s.now()
		y, m, d := now.Date()
		st, err := s.repo.Stats(ctx, time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
		if err != nil {
			return nil, err
		}
		st.OccupancyRate = ward.OccupancyRate(st.OccupiedBeds, st.TotalBeds)
		st.AverageLengthOfStay = round2(st.AverageLengthOfStay)
		return st, nil
	})
}

func (s *Service) invalidateStats(ctx context.Context) {
	cache.Invalidate(ctx, s.cache, cache.AdmissionStatsKey(db.TenantFromContext(ctx)))
}

// closeTime is now, nudged past the admission date so discharge always
// follows admission even under clock skew.
func (s *Service) closeTime(a *Admission) time.Time {
	t := s.now().UTC()
	if !t.After(a.AdmissionDate) {
		t = a.AdmissionDate.Add(time.Microsecond)
	}
	return t
}

func applyDischarge(a *Admission, req DischargeRequest, followUp *time.Time) {
	if req.DischargeType != nil {
		a.DischargeType = req.DischargeType
	}
	if req.DischargeSummary != nil {
		a.DischargeSummary = req.DischargeSummary
	}
	if req.DischargeInstructions != nil {
		a.DischargeInstructions = req.DischargeInstructions
	}
	if followUp != nil {
		a.FollowUpDate = followUp
	}
	if req.Medications != nil {
		a.Medications = req.Medications
	}
	if req.FinalDiagnosis != nil {
		a.FinalDiagnosis = req.FinalDiagnosis
	}
}

func parseVisitID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation("invalid visit_id")
	}
	return &id, nil
}

func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperror.Validation("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
