package inventory

import (
	"time"

	"repairhub/internal/domain"
)

type PartResponse struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"device_id"`
	Name         string    `json:"name"`
	PartNumber   string    `json:"part_number,omitempty"`
	SerialNumber *string   `json:"serial_number,omitempty"`
	Quantity     int       `json:"quantity"`
	UnitCost     float64   `json:"unit_cost"`
	LowStock     bool      `json:"low_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toPartResponse(p *domain.DevicePart) PartResponse {
	return PartResponse{
		ID:           p.ID,
		DeviceID:     p.DeviceID,
		Name:         p.Name,
		PartNumber:   p.PartNumber,
		SerialNumber: p.SerialNumber,
		Quantity:     p.Quantity,
		UnitCost:     p.UnitCost.InexactFloat64(),
		LowStock:     p.Quantity <= LowStockThreshold,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type RepairResponse struct {
	ID           int64     `json:"id"`
	DeviceID     int64     `json:"device_id"`
	TechnicianID *int64    `json:"technician_id,omitempty"`
	ServiceID    *int64    `json:"service_id,omitempty"`
	Description  string    `json:"description"`
	Cost         float64   `json:"cost"`
	PerformedAt  time.Time `json:"performed_at"`
}

func toRepairResponse(h *domain.RepairHistory) RepairResponse {
	return RepairResponse{
		ID:           h.ID,
		DeviceID:     h.DeviceID,
		TechnicianID: h.TechnicianID,
		ServiceID:    h.ServiceID,
		Description:  h.Description,
		Cost:         h.Cost.InexactFloat64(),
		PerformedAt:  h.PerformedAt,
	}
}

type DeviceResponse struct {
	ID           int64             `json:"id"`
	CustomerID   int64             `json:"customer_id"`
	Type         domain.DeviceType `json:"type"`
	Brand        string            `json:"brand"`
	Model        string            `json:"model"`
	SerialNumber string            `json:"serial_number"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Parts        []PartResponse    `json:"parts,omitempty"`
	History      []RepairResponse  `json:"history,omitempty"`
}

func toDeviceResponse(d *domain.Device) DeviceResponse {
	out := DeviceResponse{
		ID:           d.ID,
		CustomerID:   d.CustomerID,
		Type:         d.Type,
		Brand:        d.Brand,
		Model:        d.Model,
		SerialNumber: d.SerialNumber,
		Notes:        d.Notes,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for i := range d.Parts {
		out.Parts = append(out.Parts, toPartResponse(&d.Parts[i]))
	}
	for i := range d.History {
		out.History = append(out.History, toRepairResponse(&d.History[i]))
	}
	return out
}

type MovementResponse struct {
	ID            int64               `json:"id"`
	PartID        int64               `json:"part_id"`
	Kind          domain.MovementKind `json:"kind"`
	Quantity      int                 `json:"quantity"`
	Reason        string              `json:"reason,omitempty"`
	PerformedByID *int64              `json:"performed_by_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toMovementResponse(m *domain.PartMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		PartID:        m.PartID,
		Kind:          m.Kind,
		Quantity:      m.Quantity,
		Reason:        m.Reason,
		PerformedByID: m.PerformedByID,
		CreatedAt:     m.CreatedAt,
	}
}

type DeviceFilter struct {
	Search     string
	CustomerID *int64
	Type       *domain.DeviceType
}

type DeviceList struct {
	Devices []DeviceResponse `json:"devices"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

type RegisterDeviceRequest struct {
	CustomerID   int64             `json:"customer_id" validate:"required,gt=0"`
	Type         domain.DeviceType `json:"type" validate:"required,oneof=LAPTOP DESKTOP PRINTER"`
	Brand        string            `json:"brand" validate:"required,max=100"`
	Model        string            `json:"model" validate:"required,max=100"`
	SerialNumber string            `json:"serial_number" validate:"required,max=100"`
	Notes        string            `json:"notes" validate:"max=2000"`
}

type UpdateDeviceRequest struct {
	Type         *domain.DeviceType `json:"type" validate:"omitempty,oneof=LAPTOP DESKTOP PRINTER"`
	Brand        *string            `json:"brand" validate:"omitempty,min=1,max=100"`
	Model        *string            `json:"model" validate:"omitempty,min=1,max=100"`
	SerialNumber *string            `json:"serial_number" validate:"omitempty,min=1,max=100"`
	Notes        *string            `json:"notes" validate:"omitempty,max=2000"`
}

type AddPartRequest struct {
	Name         string  `json:"name" validate:"required,max=150"`
	PartNumber   string  `json:"part_number" validate:"max=100"`
	SerialNumber *string `json:"serial_number" validate:"omitempty,min=1,max=100"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
}

// RecordMovementRequest: for IN and OUT Quantity is the change, for
// ADJUSTMENT it is the counted stock level.
type RecordMovementRequest struct {
	Kind     domain.MovementKind `json:"kind" validate:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity int                 `json:"quantity" validate:"gte=0"`
	Reason   string              `json:"reason" validate:"max=500"`
}

type MovementResult struct {
	Movement MovementResponse `json:"movement"`
	Part     PartResponse     `json:"part"`
}

type AddRepairRequest struct {
	TechnicianID *int64     `json:"technician_id" validate:"omitempty,gt=0"`
	ServiceID    *int64     `json:"service_id" validate:"omitempty,gt=0"`
	Description  string     `json:"description" validate:"required,max=4000"`
	Cost         float64    `json:"cost" validate:"gte=0"`
	PerformedAt  *time.Time `json:"performed_at"`
}

type InventoryStats struct {
	TotalDevices  int64 `json:"total_devices"`
	TotalParts    int64 `json:"total_parts"`
	LowStockParts int64 `json:"low_stock_parts"`
	StockUnits    int64 `json:"stock_units"`
	TotalRepairs  int64 `json:"total_repairs"`
}
