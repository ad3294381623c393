package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Device struct {
	ID           int64      `json:"id"`
	CustomerID   int64      `json:"customer_id"`
	Type         DeviceType `json:"type"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serial_number"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Parts   []DevicePart    `json:"parts,omitempty"`
	History []RepairHistory `json:"history,omitempty"`
}

type DevicePart struct {
	ID           int64           `json:"id"`
	DeviceID     int64           `json:"device_id"`
	Name         string          `json:"name"`
	PartNumber   string          `json:"part_number,omitempty"`
	SerialNumber *string         `json:"serial_number,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type MovementKind string

const (
	MovementIn         MovementKind = "IN"
	MovementOut        MovementKind = "OUT"
	MovementAdjustment MovementKind = "ADJUSTMENT"
)

func (k MovementKind) Valid() bool {
	return k == MovementIn || k == MovementOut || k == MovementAdjustment
}

// PartMovement is a stock ledger entry. For ADJUSTMENT, Quantity is the new
// absolute stock level; for IN and OUT it is the delta.
type PartMovement struct {
	ID            int64        `json:"id"`
	PartID        int64        `json:"part_id"`
	Kind          MovementKind `json:"kind"`
	Quantity      int          `json:"quantity"`
	Reason        string       `json:"reason,omitempty"`
	PerformedByID *int64       `json:"performed_by_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type RepairHistory struct {
	ID           int64           `json:"id"`
	DeviceID     int64           `json:"device_id"`
	TechnicianID *int64          `json:"technician_id,omitempty"`
	ServiceID    *int64          `json:"service_id,omitempty"`
	Description  string          `json:"description"`
	Cost         decimal.Decimal `json:"cost"`
	PerformedAt  time.Time       `json:"performed_at"`
}
