package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"repairhub/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is returned when an outgoing movement would take a
// part's quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) DB() *gorm.DB {
	return r.db
}

type deviceModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	CustomerID   int64     `gorm:"column:customer_id;not null;index"`
	Type         string    `gorm:"column:type;size:16;not null"`
	Brand        string    `gorm:"column:brand;size:100;not null"`
	DeviceModel  string    `gorm:"column:model;size:100;not null"`
	SerialNumber string    `gorm:"column:serial_number;size:100;not null;uniqueIndex"`
	Notes        string    `gorm:"column:notes;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`

	Parts   []partModel   `gorm:"foreignKey:DeviceID"`
	History []repairModel `gorm:"foreignKey:DeviceID"`
}

func (deviceModel) TableName() string { return "devices" }

type partModel struct {
	ID           int64           `gorm:"column:id;primaryKey"`
	DeviceID     int64           `gorm:"column:device_id;not null;index"`
	Name         string          `gorm:"column:name;size:200;not null"`
	PartNumber   string          `gorm:"column:part_number;size:100"`
	SerialNumber *string         `gorm:"column:serial_number;size:100;uniqueIndex"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitCost     decimal.Decimal `gorm:"column:unit_cost;type:decimal(10,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`

	Movements []movementModel `gorm:"foreignKey:PartID"`
}

func (partModel) TableName() string { return "device_parts" }

type movementModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	PartID        int64     `gorm:"column:part_id;not null;index"`
	Kind          string    `gorm:"column:kind;size:16;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	Reason        string    `gorm:"column:reason;size:255"`
	PerformedByID *int64    `gorm:"column:performed_by_id;index"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (movementModel) TableName() string { return "part_movements" }

type repairModel struct {
	ID           int64           `gorm:"column:id;primaryKey"`
	DeviceID     int64           `gorm:"column:device_id;not null;index"`
	TechnicianID *int64          `gorm:"column:technician_id;index"`
	ServiceID    *int64          `gorm:"column:service_id"`
	Description  string          `gorm:"column:description;type:text;not null"`
	Cost         decimal.Decimal `gorm:"column:cost;type:decimal(10,2);not null"`
	PerformedAt  time.Time       `gorm:"column:performed_at;not null"`
}

func (repairModel) TableName() string { return "repair_history" }

func toDomainPart(m partModel) domain.DevicePart {
	return domain.DevicePart{
		ID:           m.ID,
		DeviceID:     m.DeviceID,
		Name:         m.Name,
		PartNumber:   m.PartNumber,
		SerialNumber: m.SerialNumber,
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainRepair(m repairModel) domain.RepairHistory {
	return domain.RepairHistory{
		ID:           m.ID,
		DeviceID:     m.DeviceID,
		TechnicianID: m.TechnicianID,
		ServiceID:    m.ServiceID,
		Description:  m.Description,
		Cost:         m.Cost,
		PerformedAt:  m.PerformedAt,
	}
}

func toDomainDevice(m deviceModel) *domain.Device {
	d := &domain.Device{
		ID:           m.ID,
		CustomerID:   m.CustomerID,
		Type:         domain.DeviceType(m.Type),
		Brand:        m.Brand,
		Model:        m.DeviceModel,
		SerialNumber: m.SerialNumber,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, p := range m.Parts {
		d.Parts = append(d.Parts, toDomainPart(p))
	}
	for _, h := range m.History {
		d.History = append(d.History, toDomainRepair(h))
	}
	return d
}

type DeviceFilter struct {
	Search     string
	CustomerID *int64
	Type       *domain.DeviceType
	Limit      int
	Offset     int
}

func (r *InventoryRepository) filteredDevices(ctx context.Context, f DeviceFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&deviceModel{})
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(brand) LIKE ? OR LOWER(model) LIKE ? OR LOWER(serial_number) LIKE ?)", like, like, like)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}
	return q
}

// ListDevices returns one page of devices without parts or history. A zero
// Limit returns every row.
func (r *InventoryRepository) ListDevices(ctx context.Context, f DeviceFilter) ([]domain.Device, int64, error) {
	var total int64
	if err := r.filteredDevices(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.filteredDevices(ctx, f).Order("created_at DESC").Order("id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var rows []deviceModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Device, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainDevice(m))
	}
	return out, total, nil
}

func (r *InventoryRepository) GetDevice(ctx context.Context, id int64) (*domain.Device, error) {
	var m deviceModel
	err := r.db.WithContext(ctx).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("performed_at DESC") }).
		First(&m, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return toDomainDevice(m), nil
}

func (r *InventoryRepository) CreateDevice(ctx context.Context, d *domain.Device) error {
	m := deviceModel{
		CustomerID:   d.CustomerID,
		Type:         string(d.Type),
		Brand:        strings.TrimSpace(d.Brand),
		DeviceModel:  strings.TrimSpace(d.Model),
		SerialNumber: strings.TrimSpace(d.SerialNumber),
		Notes:        d.Notes,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return translate(err)
	}
	*d = *toDomainDevice(m)
	return nil
}

func (r *InventoryRepository) UpdateDevice(ctx context.Context, d *domain.Device) error {
	res := r.db.WithContext(ctx).Model(&deviceModel{}).Where("id = ?", d.ID).Updates(map[string]any{
		"type":          string(d.Type),
		"brand":         strings.TrimSpace(d.Brand),
		"model":         strings.TrimSpace(d.Model),
		"serial_number": strings.TrimSpace(d.SerialNumber),
		"notes":         d.Notes,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InventoryRepository) CreatePart(ctx context.Context, p *domain.DevicePart) error {
	m := partModel{
		DeviceID:     p.DeviceID,
		Name:         strings.TrimSpace(p.Name),
		PartNumber:   strings.TrimSpace(p.PartNumber),
		SerialNumber: p.SerialNumber,
		Quantity:     p.Quantity,
		UnitCost:     p.UnitCost,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return translate(err)
	}
	*p = toDomainPart(m)
	return nil
}

func (r *InventoryRepository) GetPart(ctx context.Context, id int64) (*domain.DevicePart, error) {
	var m partModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	p := toDomainPart(m)
	return &p, nil
}

// RecordMovement applies mv to the part's stock and appends it to the ledger
// in one transaction. The stock update is a single conditional statement, so
// concurrent OUT movements cannot drive the quantity negative.
func (r *InventoryRepository) RecordMovement(ctx context.Context, mv *domain.PartMovement) (*domain.DevicePart, error) {
	var part partModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&partModel{}).Where("id = ?", mv.PartID)
		var res *gorm.DB
		switch mv.Kind {
		case domain.MovementIn:
			res = q.Update("quantity", gorm.Expr("quantity + ?", mv.Quantity))
		case domain.MovementOut:
			res = q.Where("quantity >= ?", mv.Quantity).Update("quantity", gorm.Expr("quantity - ?", mv.Quantity))
		default:
			res = q.Update("quantity", mv.Quantity)
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&part, mv.PartID).Error; err != nil {
				return err
			}
			return ErrInsufficientStock
		}

		m := movementModel{
			PartID:        mv.PartID,
			Kind:          string(mv.Kind),
			Quantity:      mv.Quantity,
			Reason:        mv.Reason,
			PerformedByID: mv.PerformedByID,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		mv.ID = m.ID
		mv.CreatedAt = m.CreatedAt

		return tx.First(&part, mv.PartID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	p := toDomainPart(part)
	return &p, nil
}

func (r *InventoryRepository) ListMovements(ctx context.Context, partID int64) ([]domain.PartMovement, error) {
	var rows []movementModel
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.PartMovement, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.PartMovement{
			ID:            m.ID,
			PartID:        m.PartID,
			Kind:          domain.MovementKind(m.Kind),
			Quantity:      m.Quantity,
			Reason:        m.Reason,
			PerformedByID: m.PerformedByID,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out, nil
}

func (r *InventoryRepository) CreateRepair(ctx context.Context, h *domain.RepairHistory) error {
	m := repairModel{
		DeviceID:     h.DeviceID,
		TechnicianID: h.TechnicianID,
		ServiceID:    h.ServiceID,
		Description:  strings.TrimSpace(h.Description),
		Cost:         h.Cost,
		PerformedAt:  h.PerformedAt,
	}
	if m.PerformedAt.IsZero() {
		m.PerformedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	*h = toDomainRepair(m)
	return nil
}

func (r *InventoryRepository) CountDevices(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&deviceModel{}).Count(&n).Error
	return n, err
}

func (r *InventoryRepository) CountParts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&partModel{}).Count(&n).Error
	return n, err
}

// CountLowStock counts parts whose quantity is at or below threshold.
func (r *InventoryRepository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&partModel{}).Where("quantity <= ?", threshold).Count(&n).Error
	return n, err
}

func (r *InventoryRepository) SumStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&partModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&n).Error
	return n, err
}

func (r *InventoryRepository) CountRepairs(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&repairModel{}).Count(&n).Error
	return n, err
}
