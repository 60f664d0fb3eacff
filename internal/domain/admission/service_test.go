package admission

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory/directorytest"
	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/ward"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/events"
)

// -- in-memory admission repository --

type mockRepo struct {
	mu         sync.Mutex
	admissions map[uuid.UUID]*Admission
	failClose  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{admissions: make(map[uuid.UUID]*Admission)}
}

func (m *mockRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[uuid.UUID]Admission, len(m.admissions))
	for id, a := range m.admissions {
		saved[id] = *a
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.admissions = make(map[uuid.UUID]*Admission, len(saved))
		for id, a := range saved {
			cp := a
			m.admissions[id] = &cp
		}
	}
}

func (m *mockRepo) Create(_ context.Context, a *Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status == StatusAdmitted {
		for _, other := range m.admissions {
			if other.Status != StatusAdmitted {
				continue
			}
			if other.PatientID == a.PatientID {
				return apperror.New(apperror.KindAlreadyAdmitted, "patient already has an active admission")
			}
			if other.BedID == a.BedID {
				return apperror.New(apperror.KindBedUnavailable, "bed is already occupied")
			}
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.admissions[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok {
		return nil, apperror.NotFound("admission")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) LockByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Admission: *a}, nil
}

func (m *mockRepo) sorted(patientID uuid.UUID) []*Admission {
	var out []*Admission
	for _, a := range m.admissions {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmissionDate.After(out[j].AdmissionDate) })
	return out
}

func (m *mockRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.sorted(patientID) {
		if a.Status == StatusAdmitted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) LatestForPatient(_ context.Context, patientID uuid.UUID) (*Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(patientID)
	for _, a := range all {
		if a.Status == StatusDischarged {
			cp := *a
			return &cp, nil
		}
	}
	if len(all) > 0 {
		cp := *all[0]
		return &cp, nil
	}
	return nil, nil
}

func (m *mockRepo) Close(_ context.Context, a *Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClose != nil {
		return m.failClose
	}
	if _, ok := m.admissions[a.ID]; !ok {
		return apperror.NotFound("admission")
	}
	cp := *a
	m.admissions[a.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Detail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Detail
	for _, a := range m.admissions {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		out = append(out, &Detail{Admission: *a})
	}
	return out, len(out), nil
}

func (m *mockRepo) Stats(_ context.Context, dayStart time.Time) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &Stats{}
	var stay time.Duration
	var discharged int
	for _, a := range m.admissions {
		switch a.Status {
		case StatusAdmitted:
			st.CurrentAdmissions++
		case StatusDischarged:
			discharged++
			stay += a.DischargeDate.Sub(a.AdmissionDate)
			if !a.DischargeDate.Before(dayStart) {
				st.TodayDischarges++
			}
		}
		if !a.AdmissionDate.Before(dayStart) && a.TransferredFromID == nil {
			st.TodayAdmissions++
		}
	}
	if discharged > 0 {
		st.AverageLengthOfStay = stay.Hours() / 24 / float64(discharged)
	}
	st.TotalBeds = 4
	st.OccupiedBeds = st.CurrentAdmissions
	return st, nil
}

// -- in-memory bed registry --

type fakeBeds struct {
	mu   sync.Mutex
	beds map[uuid.UUID]*ward.Bed
}

func newFakeBeds() *fakeBeds {
	return &fakeBeds{beds: make(map[uuid.UUID]*ward.Bed)}
}

func (f *fakeBeds) add(number, policy string) *ward.Bed {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &ward.Bed{
		ID:           uuid.New(),
		BedNumber:    number,
		WardID:       uuid.New(),
		WardName:     policy + " Ward",
		GenderPolicy: policy,
		Status:       ward.BedAvailable,
		DailyRate:    decimal.NewFromInt(100),
	}
	f.beds[b.ID] = b
	return b
}

func (f *fakeBeds) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.beds[id].Status
}

func (f *fakeBeds) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := make(map[uuid.UUID]string, len(f.beds))
	for id, b := range f.beds {
		saved[id] = b.Status
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for id, st := range saved {
			f.beds[id].Status = st
		}
	}
}

func (f *fakeBeds) GetBed(_ context.Context, id uuid.UUID) (*ward.Bed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.beds[id]
	if !ok {
		return nil, apperror.NotFound("bed")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBeds) transition(id uuid.UUID, from, to string) (*ward.Bed, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.beds[id]
	if !ok || b.Status != from {
		return nil, false
	}
	b.Status = to
	cp := *b
	return &cp, true
}

func (f *fakeBeds) Reserve(_ context.Context, id uuid.UUID) (*ward.Bed, error) {
	if b, ok := f.transition(id, ward.BedAvailable, ward.BedOccupied); ok {
		return b, nil
	}
	return nil, apperror.New(apperror.KindBedUnavailable, "bed unavailable")
}

func (f *fakeBeds) Release(_ context.Context, id uuid.UUID) (*ward.Bed, error) {
	if b, ok := f.transition(id, ward.BedOccupied, ward.BedAvailable); ok {
		return b, nil
	}
	return nil, apperror.Storage("release bed", errors.New("bed is not occupied"))
}

func (f *fakeBeds) IsGenderCompatible(ctx context.Context, id uuid.UUID, gender string) (bool, error) {
	b, err := f.GetBed(ctx, id)
	if err != nil {
		return false, err
	}
	return ward.GenderCompatible(b.GenderPolicy, gender), nil
}

// -- unit of work that restores every registered fake on failure --

type fakeTx struct {
	mu        sync.Mutex
	snapshots []func() func()
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var restores []func()
	for _, snap := range t.snapshots {
		restores = append(restores, snap())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc  *Service
	repo *mockRepo
	beds *fakeBeds
	dir  *directorytest.Fake
	pub  *recorder
}

func newFixture() *fixture {
	repo := newMockRepo()
	beds := newFakeBeds()
	dir := directorytest.New()
	tx := &fakeTx{snapshots: []func() func(){repo.snapshot, beds.snapshot}}
	svc := NewService(repo, beds, dir, tx)
	pub := &recorder{}
	svc.SetPublisher(pub)
	return &fixture{svc: svc, repo: repo, beds: beds, dir: dir, pub: pub}
}

func strPtr(s string) *string { return &s }

// -- Admit --

func TestAdmit(t *testing.T) {
	f := newFixture()
	p1 := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	d, err := f.svc.Admit(context.Background(), AdmitRequest{
		PatientID:  p1.ID,
		BedID:      bed.ID,
		Reason:     strPtr("fever"),
		AdmittedBy: "nurse-1",
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if d.Status != StatusAdmitted {
		t.Errorf("expected Admitted, got %s", d.Status)
	}
	if d.DischargeDate != nil {
		t.Error("expected no discharge date on open admission")
	}
	if d.BedNumber != "B-01-01" || d.PatientName != "Ada Obi" {
		t.Errorf("unexpected detail %+v", d)
	}
	if d.AdmittedBy == nil || *d.AdmittedBy != "nurse-1" {
		t.Errorf("expected admitted_by nurse-1, got %v", d.AdmittedBy)
	}
	if got := f.beds.status(bed.ID); got != ward.BedOccupied {
		t.Errorf("expected bed Occupied, got %s", got)
	}
	if f.dir.Locks[p1.ID] != 1 {
		t.Errorf("expected patient row to be locked once, got %d", f.dir.Locks[p1.ID])
	}
	types := f.pub.types()
	if len(types) != 3 || types[2] != events.AdmissionCreated {
		t.Errorf("unexpected events %v", types)
	}
}

func TestAdmit_SecondPatientSameBed(t *testing.T) {
	f := newFixture()
	p1 := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	p2 := f.dir.AddPatient("Ben", "Eze", directory.GenderMale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p1.ID, BedID: bed.ID, Reason: strPtr("fever")}); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	_, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p2.ID, BedID: bed.ID})
	if !errors.Is(err, apperror.ErrBedUnavailable) {
		t.Errorf("expected BedUnavailable, got %v", err)
	}
	if cur, _ := f.svc.CurrentAdmission(context.Background(), p2.ID); cur != nil {
		t.Error("second patient must not be admitted")
	}
}

func TestAdmit_AlreadyAdmitted(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	b1 := f.beds.add("B-01-01", ward.PolicyMixed)
	b2 := f.beds.add("B-01-02", ward.PolicyMixed)

	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: b1.ID}); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	_, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: b2.ID})
	if !errors.Is(err, apperror.ErrAlreadyAdmitted) {
		t.Errorf("expected AlreadyAdmitted, got %v", err)
	}
	if got := f.beds.status(b2.ID); got != ward.BedAvailable {
		t.Errorf("second bed must stay Available, got %s", got)
	}
}

func TestAdmit_GenderMismatch(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("M-01", ward.PolicyMale)

	_, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID})
	if !errors.Is(err, apperror.ErrGenderMismatch) {
		t.Errorf("expected GenderMismatch, got %v", err)
	}
	if got := f.beds.status(bed.ID); got != ward.BedAvailable {
		t.Errorf("bed must stay Available, got %s", got)
	}
}

func TestAdmit_MaintenanceBed(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)
	f.beds.beds[bed.ID].Status = ward.BedMaintenance

	_, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID})
	if !errors.Is(err, apperror.ErrBedUnavailable) {
		t.Errorf("expected BedUnavailable, got %v", err)
	}
}

func TestAdmit_NotFound(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: uuid.New(), BedID: bed.ID}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown patient: expected NotFound, got %v", err)
	}
	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: uuid.New()}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown bed: expected NotFound, got %v", err)
	}
	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID, VisitID: uuid.NewString()}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown visit: expected NotFound, got %v", err)
	}
	if got := f.beds.status(bed.ID); got != ward.BedAvailable {
		t.Errorf("bed must stay Available, got %s", got)
	}
}

func TestAdmit_Validation(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	tests := []struct {
		name string
		req  AdmitRequest
	}{
		{"missing patient", AdmitRequest{BedID: bed.ID}},
		{"missing bed", AdmitRequest{PatientID: p.ID}},
		{"malformed visit", AdmitRequest{PatientID: p.ID, BedID: bed.ID, VisitID: "visit-42"}},
	}
	for _, tt := range tests {
		if _, err := f.svc.Admit(context.Background(), tt.req); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
		}
	}
}

func TestAdmit_WithVisit(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	v := f.dir.AddVisit(p.ID)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	d, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID, VisitID: v.ID.String()})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if d.VisitID == nil || *d.VisitID != v.ID {
		t.Errorf("expected visit %s on admission", v.ID)
	}
	got := f.dir.Visits[v.ID]
	if !got.AdmissionRecommended || got.Status != "admitted" {
		t.Errorf("expected visit marked admitted, got %+v", got)
	}
}

func TestAdmit_EmptyVisitMeansNone(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)

	d, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID, VisitID: "  "})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if d.VisitID != nil {
		t.Errorf("expected no visit, got %v", d.VisitID)
	}
}

func TestAdmit_ConcurrentSameBed(t *testing.T) {
	f := newFixture()
	bed := f.beds.add("B-01-01", ward.PolicyMixed)
	const n = 6
	patients := make([]*directory.Patient, n)
	for i := range patients {
		patients[i] = f.dir.AddPatient("P", string(rune('A'+i)), directory.GenderMale)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		failures []error
	)
	for _, p := range patients {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: id, BedID: bed.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				failures = append(failures, err)
			}
		}(p.ID)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one admission, got %d", wins)
	}
	for _, err := range failures {
		if !errors.Is(err, apperror.ErrBedUnavailable) {
			t.Errorf("expected BedUnavailable for losers, got %v", err)
		}
	}
	admitted := 0
	for _, a := range f.repo.admissions {
		if a.Status == StatusAdmitted {
			admitted++
		}
	}
	if admitted != 1 {
		t.Errorf("expected one Admitted row, got %d", admitted)
	}
}

// -- Discharge --

func admitOne(t *testing.T, f *fixture) (*directory.Patient, *ward.Bed, *Detail) {
	t.Helper()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	bed := f.beds.add("B-01-01", ward.PolicyMixed)
	d, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p.ID, BedID: bed.ID, Reason: strPtr("fever")})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	return p, bed, d
}

func TestDischarge(t *testing.T) {
	f := newFixture()
	_, bed, d := admitOne(t, f)

	a, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{
		DischargeType:    strPtr("Routine"),
		DischargeSummary: strPtr("recovered"),
		FollowUpDate:     strPtr("2026-11-01"),
	})
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if a.Status != StatusDischarged {
		t.Errorf("expected Discharged, got %s", a.Status)
	}
	if a.DischargeDate == nil || !a.DischargeDate.After(a.AdmissionDate) {
		t.Errorf("discharge date must follow admission date, got %v", a.DischargeDate)
	}
	if a.DischargeSummary == nil || *a.DischargeSummary != "recovered" {
		t.Errorf("expected summary to be recorded")
	}
	if a.FollowUpDate == nil || a.FollowUpDate.Format("2006-01-02") != "2026-11-01" {
		t.Errorf("unexpected follow-up date %v", a.FollowUpDate)
	}
	if a.Medications != nil {
		t.Errorf("absent fields must stay unset, got medications %q", *a.Medications)
	}
	if got := f.beds.status(bed.ID); got != ward.BedAvailable {
		t.Errorf("expected bed Available, got %s", got)
	}
}

func TestDischarge_AlreadyDischarged(t *testing.T) {
	f := newFixture()
	_, bed, d := admitOne(t, f)
	if _, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{}); err != nil {
		t.Fatalf("first discharge: %v", err)
	}
	before, _ := f.repo.GetByID(context.Background(), d.ID)

	_, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{DischargeSummary: strPtr("again")})
	if !errors.Is(err, apperror.ErrAlreadyDischarged) {
		t.Errorf("expected AlreadyDischarged, got %v", err)
	}
	if got := f.beds.status(bed.ID); got != ward.BedAvailable {
		t.Errorf("bed must remain Available, got %s", got)
	}
	after, _ := f.repo.GetByID(context.Background(), d.ID)
	if after.DischargeSummary != nil || !after.DischargeDate.Equal(*before.DischargeDate) {
		t.Error("re-discharge must not alter the admission")
	}
}

func TestDischarge_NotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Discharge(context.Background(), uuid.New(), DischargeRequest{}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestDischarge_BadFollowUpDate(t *testing.T) {
	f := newFixture()
	_, _, d := admitOne(t, f)
	_, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{FollowUpDate: strPtr("next week")})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestDischarge_RollsBackOnFailure(t *testing.T) {
	f := newFixture()
	_, bed, d := admitOne(t, f)
	f.repo.failClose = errors.New("connection reset")

	_, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := f.beds.status(bed.ID); got != ward.BedOccupied {
		t.Errorf("bed must stay Occupied, got %s", got)
	}
	a, _ := f.repo.GetByID(context.Background(), d.ID)
	if a.Status != StatusAdmitted {
		t.Errorf("admission must stay Admitted, got %s", a.Status)
	}
}

// -- Transfer --

func TestTransfer(t *testing.T) {
	f := newFixture()
	p, oldBed, d := admitOne(t, f)
	newBed := f.beds.add("B-02-01", ward.PolicyFemale)

	next, err := f.svc.Transfer(context.Background(), d.ID, TransferRequest{BedID: newBed.ID})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if next.BedID != newBed.ID || next.Status != StatusAdmitted {
		t.Errorf("unexpected new admission %+v", next.Admission)
	}
	if next.TransferredFromID == nil || *next.TransferredFromID != d.ID {
		t.Error("expected link to the previous admission")
	}
	if next.Reason == nil || *next.Reason != "fever" {
		t.Error("expected reason carried over")
	}
	old, _ := f.repo.GetByID(context.Background(), d.ID)
	if old.Status != StatusTransferred || old.DischargeDate == nil {
		t.Errorf("expected old admission Transferred with a close date, got %s", old.Status)
	}
	if f.beds.status(oldBed.ID) != ward.BedAvailable || f.beds.status(newBed.ID) != ward.BedOccupied {
		t.Error("expected old bed Available and new bed Occupied")
	}
	cur, _ := f.svc.CurrentAdmission(context.Background(), p.ID)
	if cur == nil || cur.ID != next.ID {
		t.Error("current admission must be the new one")
	}

	if _, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{}); !errors.Is(err, apperror.ErrAlreadyDischarged) {
		t.Errorf("discharging a transferred admission: expected AlreadyDischarged, got %v", err)
	}
}

func TestTransfer_Rejections(t *testing.T) {
	f := newFixture()
	_, oldBed, d := admitOne(t, f)
	male := f.beds.add("M-01", ward.PolicyMale)
	busy := f.beds.add("B-03-01", ward.PolicyMixed)
	f.beds.beds[busy.ID].Status = ward.BedOccupied

	if _, err := f.svc.Transfer(context.Background(), d.ID, TransferRequest{BedID: male.ID}); !errors.Is(err, apperror.ErrGenderMismatch) {
		t.Errorf("expected GenderMismatch, got %v", err)
	}
	if _, err := f.svc.Transfer(context.Background(), d.ID, TransferRequest{BedID: busy.ID}); !errors.Is(err, apperror.ErrBedUnavailable) {
		t.Errorf("expected BedUnavailable, got %v", err)
	}
	if _, err := f.svc.Transfer(context.Background(), d.ID, TransferRequest{BedID: oldBed.ID}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ValidationError for same bed, got %v", err)
	}
	if f.beds.status(oldBed.ID) != ward.BedOccupied {
		t.Error("rejected transfers must not touch the current bed")
	}
}

// -- Queries --

func TestLatestAdmission_PrefersDischarged(t *testing.T) {
	f := newFixture()
	p := f.dir.AddPatient("Ada", "Obi", directory.GenderFemale)
	old := &Admission{PatientID: p.ID, BedID: uuid.New(), Status: StatusDischarged, AdmissionDate: time.Now().Add(-72 * time.Hour)}
	f.repo.Create(context.Background(), old)
	open := &Admission{PatientID: p.ID, BedID: uuid.New(), Status: StatusAdmitted, AdmissionDate: time.Now()}
	f.repo.Create(context.Background(), open)

	got, err := f.svc.LatestAdmission(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("LatestAdmission: %v", err)
	}
	if got == nil || got.ID != old.ID {
		t.Errorf("expected discharged admission %s, got %v", old.ID, got)
	}

	none, err := f.svc.LatestAdmission(context.Background(), uuid.New())
	if err != nil || none != nil {
		t.Errorf("expected nil for a patient without admissions, got %v, %v", none, err)
	}
}

func TestList_InvalidStatus(t *testing.T) {
	f := newFixture()
	if _, _, err := f.svc.List(context.Background(), Filter{Status: "Gone"}, 20, 0); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	_, _, d := admitOne(t, f)
	p2 := f.dir.AddPatient("Ben", "Eze", directory.GenderMale)
	b2 := f.beds.add("B-01-02", ward.PolicyMixed)
	if _, err := f.svc.Admit(context.Background(), AdmitRequest{PatientID: p2.ID, BedID: b2.ID}); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := f.svc.Discharge(context.Background(), d.ID, DischargeRequest{}); err != nil {
		t.Fatalf("Discharge: %v", err)
	}

	st, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.CurrentAdmissions != 1 {
		t.Errorf("expected 1 current admission, got %d", st.CurrentAdmissions)
	}
	if st.TodayAdmissions != 2 || st.TodayDischarges != 1 {
		t.Errorf("expected 2 admissions and 1 discharge today, got %d/%d", st.TodayAdmissions, st.TodayDischarges)
	}
	if st.OccupancyRate != 25 {
		t.Errorf("expected 25%% occupancy, got %v", st.OccupancyRate)
	}
}

func TestParseVisitID(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		raw     string
		want    *uuid.UUID
		wantErr bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{id.String(), &id, false},
		{"abc", nil, true},
	}
	for _, tt := range tests {
		got, err := parseVisitID(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVisitID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("parseVisitID(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
