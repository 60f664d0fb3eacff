// Package directorytest provides an in-memory directory.Repository for tests
// of the packages that consume patient, visit and service lookups.
package directorytest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/directory"
	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/apperror"
)

type Fake struct {
	mu       sync.Mutex
	Patients map[uuid.UUID]*directory.Patient
	Visits   map[uuid.UUID]*directory.Visit
	Services map[uuid.UUID]*directory.Service
	// Locks counts LockPatient calls per patient.
	Locks map[uuid.UUID]int
}

func New() *Fake {
	return &Fake{
		Patients: make(map[uuid.UUID]*directory.Patient),
		Visits:   make(map[uuid.UUID]*directory.Visit),
		Services: make(map[uuid.UUID]*directory.Service),
		Locks:    make(map[uuid.UUID]int),
	}
}

func (f *Fake) AddPatient(first, last, gender string) *directory.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &directory.Patient{
		ID:        uuid.New(),
		PatientNo: "P-" + first,
		FirstName: first,
		LastName:  last,
		Gender:    gender,
	}
	f.Patients[p.ID] = p
	return p
}

func (f *Fake) AddVisit(patientID uuid.UUID) *directory.Visit {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := &directory.Visit{ID: uuid.New(), PatientID: patientID, Status: "open"}
	f.Visits[v.ID] = v
	return v
}

func (f *Fake) AddService(name, serviceType string, price decimal.Decimal) *directory.Service {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &directory.Service{ID: uuid.New(), Name: name, ServiceType: serviceType, Price: price, Active: true}
	f.Services[s.ID] = s
	return s
}

func (f *Fake) FindPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Patients[id]
	if !ok {
		return nil, apperror.NotFound("patient")
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) LockPatient(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Patients[id]; !ok {
		return apperror.NotFound("patient")
	}
	f.Locks[id]++
	return nil
}

func (f *Fake) FindVisit(_ context.Context, id uuid.UUID) (*directory.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Visits[id]
	if !ok {
		return nil, apperror.NotFound("visit")
	}
	cp := *v
	return &cp, nil
}

func (f *Fake) MarkVisitAdmitted(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Visits[id]
	if !ok {
		return apperror.NotFound("visit")
	}
	v.AdmissionRecommended = true
	v.Status = "admitted"
	return nil
}

func (f *Fake) FindService(_ context.Context, id uuid.UUID) (*directory.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Services[id]
	if !ok {
		return nil, apperror.NotFound("service")
	}
	cp := *s
	return &cp, nil
}

var _ directory.Repository = (*Fake)(nil)
