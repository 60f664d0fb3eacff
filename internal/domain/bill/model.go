// Package bill consolidates a patient's unpaid charges into a final bill and
// applies payments against it.
package bill

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GreycodeDev/hospital-management-sub000/internal/domain/charge"
)

// Payment statuses. Overdue is derived at read time from the due date and is
// never stored by this service.
const (
	StatusPending = "Pending"
	StatusPartial = "Partial"
	StatusPaid    = "Paid"
	StatusOverdue = "Overdue"
)

var validStatuses = map[string]bool{
	StatusPending: true,
	StatusPartial: true,
	StatusPaid:    true,
	StatusOverdue: true,
}

type Bill struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	BillNumber    string          `db:"bill_number" json:"bill_number"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	AdmissionID   uuid.UUID       `db:"admission_id" json:"admission_id"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AmountPaid    decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	PaymentStatus string          `db:"payment_status" json:"payment_status"`
	PaymentMethod *string         `db:"payment_method" json:"payment_method,omitempty"`
	ClaimNumber   *string         `db:"claim_number" json:"claim_number,omitempty"`
	DueDate       time.Time       `db:"due_date" json:"due_date"`
	PaymentDate   *time.Time      `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	PatientName   string          `json:"patient_name,omitempty"`
}

// Detail is a bill with the charges captured when it was generated.
type Detail struct {
	Bill
	Items []*charge.Charge `json:"items"`
}

// StatusFor derives the payment status from the amounts alone.
func StatusFor(total, paid decimal.Decimal) string {
	balance := total.Sub(paid)
	switch {
	case !balance.IsPositive():
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

type GenerateRequest struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	AdmissionID *uuid.UUID `json:"admission_id"`
}

type PaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	ClaimNumber   *string         `json:"claim_number"`
}

type Filter struct {
	PatientID     *uuid.UUID
	PaymentStatus string
}

// StatusCounts tallies stored statuses; Overdue counts unsettled bills past
// their due date, which are also counted under Pending or Partial.
type StatusCounts struct {
	Pending        int             `json:"pending"`
	Partial        int             `json:"partial"`
	Paid           int             `json:"paid"`
	Overdue        int             `json:"overdue"`
	OverdueBalance decimal.Decimal `json:"overdue_balance"`
}

type Stats struct {
	TotalRevenue         decimal.Decimal         `json:"total_revenue"`
	PendingRevenue       decimal.Decimal         `json:"pending_revenue"`
	Bills                StatusCounts            `json:"bills"`
	RevenueByServiceType []charge.ServiceRevenue `json:"revenue_by_service_type"`
}
