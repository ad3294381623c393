package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeviceType string

const (
	DeviceLaptop  DeviceType = "LAPTOP"
	DeviceDesktop DeviceType = "DESKTOP"
	DevicePrinter DeviceType = "PRINTER"
)

var DeviceTypes = []DeviceType{DeviceLaptop, DeviceDesktop, DevicePrinter}

func (d DeviceType) Valid() bool {
	switch d {
	case DeviceLaptop, DeviceDesktop, DevicePrinter:
		return true
	}
	return false
}

type ServiceCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service is a repair offering. Price stays a decimal inside the domain and
// is converted to a float only in DTOs.
type Service struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Device        DeviceType      `json:"device"`
	Price         decimal.Decimal `json:"price"`
	Notes         string          `json:"notes,omitempty"`
	EstimatedTime string          `json:"estimated_time,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Category *ServiceCategory `json:"category,omitempty"`
}
