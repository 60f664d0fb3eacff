// Package directory reads the patient registry, visit log and service
// catalog. Those tables are owned by registration and pricing; the hospital
// core only looks records up and flips the admission marker on a visit.
package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// DefaultServiceType is reported for charges that carry no catalog service.
const DefaultServiceType = "General"

type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientNo string    `db:"patient_no" json:"patient_no"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Gender    string    `db:"gender" json:"gender"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Visit struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	PatientID            uuid.UUID `db:"patient_id" json:"patient_id"`
	VisitDate            time.Time `db:"visit_date" json:"visit_date"`
	Status               string    `db:"status" json:"status"`
	AdmissionRecommended bool      `db:"admission_recommended" json:"admission_recommended"`
}

type Service struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	ServiceType string          `db:"service_type" json:"service_type"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Active      bool            `db:"active" json:"active"`
}
