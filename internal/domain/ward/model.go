// Package ward is the bed registry: wards, beds and the status transitions
// every bed goes through.
package ward

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bed statuses.
const (
	BedAvailable   = "Available"
	BedOccupied    = "Occupied"
	BedMaintenance = "Maintenance"
	BedReserved    = "Reserved"
)

// Ward gender policies.
const (
	PolicyMale   = "Male"
	PolicyFemale = "Female"
	PolicyMixed  = "Mixed"
)

var validBedStatuses = map[string]bool{
	BedAvailable:   true,
	BedOccupied:    true,
	BedMaintenance: true,
	BedReserved:    true,
}

type Ward struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	WardType     string    `db:"ward_type" json:"ward_type"`
	GenderPolicy string    `db:"gender_policy" json:"gender_policy"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Bed carries its ward's name and gender policy so callers can check
// placement without a second lookup.
type Bed struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	BedNumber    string          `db:"bed_number" json:"bed_number"`
	WardID       uuid.UUID       `db:"ward_id" json:"ward_id"`
	WardName     string          `db:"ward_name" json:"ward_name"`
	GenderPolicy string          `db:"gender_policy" json:"gender_policy"`
	Status       string          `db:"status" json:"status"`
	DailyRate    decimal.Decimal `db:"daily_rate" json:"daily_rate"`
	Category     string          `db:"category" json:"category"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type BedFilter struct {
	WardID *uuid.UUID
	Status string
}

type Occupancy struct {
	WardID        uuid.UUID `json:"ward_id"`
	WardName      string    `json:"ward_name"`
	Total         int       `json:"total"`
	Available     int       `json:"available"`
	Occupied      int       `json:"occupied"`
	Maintenance   int       `json:"maintenance"`
	Reserved      int       `json:"reserved"`
	OccupancyRate float64   `json:"occupancy_rate"`
}

// GenderCompatible reports whether a patient of the given gender may be
// placed in a ward with the given policy. Values compare exactly.
func GenderCompatible(policy, gender string) bool {
	return policy == PolicyMixed || policy == gender
}
