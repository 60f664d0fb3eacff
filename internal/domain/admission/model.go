// Package admission is the admission ledger: admitting patients to beds,
// discharging and transferring them, and answering "which admission is
// current" for the charge journal and the bill consolidator.
package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission statuses.
const (
	StatusAdmitted    = "Admitted"
	StatusDischarged  = "Discharged"
	StatusTransferred = "Transferred"
)

var validStatuses = map[string]bool{
	StatusAdmitted:    true,
	StatusDischarged:  true,
	StatusTransferred: true,
}

type Admission struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedID                 uuid.UUID  `db:"bed_id" json:"bed_id"`
	VisitID               *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	TransferredFromID     *uuid.UUID `db:"transferred_from_id" json:"transferred_from_id,omitempty"`
	AdmissionDate         time.Time  `db:"admission_date" json:"admission_date"`
	DischargeDate         *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	Status                string     `db:"status" json:"status"`
	Reason                *string    `db:"reason" json:"reason,omitempty"`
	AdmissionType         *string    `db:"admission_type" json:"admission_type,omitempty"`
	Notes                 *string    `db:"notes" json:"notes,omitempty"`
	AdmittedBy            *string    `db:"admitted_by" json:"admitted_by,omitempty"`
	DischargeType         *string    `db:"discharge_type" json:"discharge_type,omitempty"`
	DischargeSummary      *string    `db:"discharge_summary" json:"discharge_summary,omitempty"`
	DischargeInstructions *string    `db:"discharge_instructions" json:"discharge_instructions,omitempty"`
	FollowUpDate          *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Medications           *string    `db:"medications" json:"medications,omitempty"`
	FinalDiagnosis        *string    `db:"final_diagnosis" json:"final_diagnosis,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// Detail is an admission joined with its bed, ward, patient and visit.
type Detail struct {
	Admission
	BedNumber   string     `json:"bed_number"`
	WardID      uuid.UUID  `json:"ward_id"`
	WardName    string     `json:"ward_name"`
	PatientName string     `json:"patient_name"`
	PatientNo   string     `json:"patient_no"`
	Gender      string     `json:"gender"`
	VisitDate   *time.Time `json:"visit_date,omitempty"`
}

type AdmitRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	BedID     uuid.UUID `json:"bed_id"`
	// VisitID is optional; an empty string means no visit.
	VisitID       string  `json:"visit_id"`
	Reason        *string `json:"reason"`
	AdmissionType *string `json:"admission_type"`
	Notes         *string `json:"notes"`
	AdmittedBy    string  `json:"-"`
}

// DischargeRequest fields are all optional. Absent fields leave the stored
// value untouched.
type DischargeRequest struct {
	DischargeType         *string `json:"discharge_type"`
	DischargeSummary      *string `json:"discharge_summary"`
	DischargeInstructions *string `json:"discharge_instructions"`
	FollowUpDate          *string `json:"follow_up_date"` // YYYY-MM-DD
	Medications           *string `json:"medications"`
	FinalDiagnosis        *string `json:"final_diagnosis"`
}

type TransferRequest struct {
	BedID   uuid.UUID `json:"bed_id"`
	Reason  *string   `json:"reason"`
	MovedBy string    `json:"-"`
}

type Filter struct {
	Status    string
	PatientID *uuid.UUID
	WardID    *uuid.UUID
}

type Stats struct {
	CurrentAdmissions   int     `json:"current_admissions"`
	TodayAdmissions     int     `json:"today_admissions"`
	TodayDischarges     int     `json:"today_discharges"`
	TotalBeds           int     `json:"total_beds"`
	OccupiedBeds        int     `json:"occupied_beds"`
	OccupancyRate       float64 `json:"occupancy_rate"`
	AverageLengthOfStay float64 `json:"average_length_of_stay_days"`
}
