// Package charge is the charge journal: billable line items recorded
// against a patient and, when one is open, their current admission.
package charge

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Limits of the charge columns: quantity INTEGER, unit_price NUMERIC(12,2)
// and total_amount NUMERIC(14,2).
const MaxQuantity = 100000

var (
	maxUnitPrice = decimal.RequireFromString("9999999999.99")
	maxTotal     = decimal.RequireFromString("999999999999.99")
)

// Charge is immutable once written apart from the single flip of Paid.
// TotalAmount is always Quantity x UnitPrice and is computed by storage.
type Charge struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	PatientID   uuid.UUID       `db:"patient_id" json:"patient_id"`
	AdmissionID *uuid.UUID      `db:"admission_id" json:"admission_id,omitempty"`
	ServiceID   *uuid.UUID      `db:"service_id" json:"service_id,omitempty"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Paid        bool            `db:"paid" json:"paid"`
	AddedBy     *string         `db:"added_by" json:"added_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Detail struct {
	Charge
	PatientName     string     `json:"patient_name"`
	AdmissionStatus *string    `json:"admission_status,omitempty"`
	AdmissionDate   *time.Time `json:"admission_date,omitempty"`
	BedNumber       *string    `json:"bed_number,omitempty"`
	ServiceName     *string    `json:"service_name,omitempty"`
	ServiceType     *string    `json:"service_type,omitempty"`
}

type AddRequest struct {
	PatientID   uuid.UUID        `json:"patient_id"`
	AdmissionID *uuid.UUID       `json:"admission_id"`
	ServiceID   *uuid.UUID       `json:"service_id"`
	Description string           `json:"description"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	AddedBy     string           `json:"-"`
}

type Filter struct {
	PatientID   *uuid.UUID
	AdmissionID *uuid.UUID
	Paid        *bool
}

// Revenue sums charge totals. Paid totals are split by the service catalog
// type; charges without a service fall under directory.DefaultServiceType.
type Revenue struct {
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	PendingRevenue decimal.Decimal  `json:"pending_revenue"`
	ByServiceType  []ServiceRevenue `json:"revenue_by_service_type"`
}

type ServiceRevenue struct {
	ServiceType string          `json:"service_type"`
	Revenue     decimal.Decimal `json:"revenue"`
}
