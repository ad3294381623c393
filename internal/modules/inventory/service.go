package inventory

import (
	"context"
	"errors"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/pkg/validator"
	"repairhub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LowStockThreshold is the quantity at or below which a part is reported
// as running low.
const LowStockThreshold = 2

type Service struct {
	repo     InventoryRepository
	accounts AccountLoader
	services ServiceLoader
	guard    Authorizer
	log      *zap.Logger
}

// NewService wires inventory. services may be nil, in which case repair
// entries are not checked against the catalog.
func NewService(repo InventoryRepository, accounts AccountLoader, services ServiceLoader, g Authorizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, accounts: accounts, services: services, guard: g, log: log}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func (s *Service) ListDevices(ctx context.Context, requesterID int64, f DeviceFilter, page, limit int) (*DeviceList, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewInventory, nil); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	devices, total, err := s.repo.ListDevices(ctx, repository.DeviceFilter{
		Search:     f.Search,
		CustomerID: f.CustomerID,
		Type:       f.Type,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, apperr.Internal("list devices", err)
	}

	out := make([]DeviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, toDeviceResponse(&devices[i]))
	}
	return &DeviceList{Devices: out, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) loadDevice(ctx context.Context, id int64) (*domain.Device, error) {
	d, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("device")
		}
		return nil, apperr.Internal("load device", err)
	}
	return d, nil
}

// GetDevice returns the device with its parts and repair history.
func (s *Service) GetDevice(ctx context.Context, requesterID, id int64) (*DeviceResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewInventory, nil); err != nil {
		return nil, err
	}
	d, err := s.loadDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toDeviceResponse(d)
	return &out, nil
}

// RegisterDevice records a customer's device. The owner must be an existing
// customer account.
func (s *Service) RegisterDevice(ctx context.Context, requesterID int64, req RegisterDeviceRequest) (*DeviceResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ManageInventory, nil); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	owner, err := s.accounts.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("customer does not exist", map[string]string{"customer_id": "not_found"})
		}
		return nil, apperr.Internal("load customer", err)
	}
	if owner.IsStaff {
		return nil, apperr.Validation("devices can only be registered to customers", map[string]string{"customer_id": "not_customer"})
	}

	d := &domain.Device{
		CustomerID:   req.CustomerID,
		Type:         req.Type,
		Brand:        req.Brand,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		Notes:        req.Notes,
	}
	if err := s.repo.CreateDevice(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a device with serial number %q is already registered", req.SerialNumber)
		}
		return nil, apperr.Internal("register device", err)
	}
	s.log.Info("device registered",
		zap.Int64("device_id", d.ID),
		zap.Int64("customer_id", d.CustomerID),
		zap.Int64("by", requesterID),
	)

	out := toDeviceResponse(d)
	return &out, nil
}

func (s *Service) UpdateDevice(ctx context.Context, requesterID, id int64, req UpdateDeviceRequest) (*DeviceResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ManageInventory, nil); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	d, err := s.loadDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		d.Type = *req.Type
	}
	if req.Brand != nil {
		d.Brand = *req.Brand
	}
	if req.Model != nil {
		d.Model = *req.Model
	}
	if req.SerialNumber != nil {
		d.SerialNumber = *req.SerialNumber
	}
	if req.Notes != nil {
		d.Notes = *req.Notes
	}

	if err := s.repo.UpdateDevice(ctx, d); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Conflict("a device with serial number %q is already registered", d.SerialNumber)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("device")
		}
		return nil, apperr.Internal("update device", err)
	}

	out := toDeviceResponse(d)
	return &out, nil
}

func (s *Service) AddPart(ctx context.Context, requesterID, deviceID int64, req AddPartRequest) (*PartResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ManageInventory, nil); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.loadDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	p := &domain.DevicePart{
		DeviceID:     deviceID,
		Name:         req.Name,
		PartNumber:   req.PartNumber,
		SerialNumber: req.SerialNumber,
		Quantity:     req.Quantity,
		UnitCost:     decimal.NewFromFloat(req.UnitCost).Round(2),
	}
	if err := s.repo.CreatePart(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a part with this serial number already exists")
		}
		return nil, apperr.Internal("add part", err)
	}

	out := toPartResponse(p)
	return &out, nil
}

// RecordMovement adjusts the part's stock and appends the movement to its
// ledger. An OUT movement larger than the stock on hand is refused.
func (s *Service) RecordMovement(ctx context.Context, requesterID, partID int64, req RecordMovementRequest) (*MovementResult, error) {
	requester, err := s.guard.Authorize(ctx, requesterID, guard.ManageInventory, nil)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Kind != domain.MovementAdjustment && req.Quantity == 0 {
		return nil, apperr.Validation("quantity must be positive", map[string]string{"quantity": "gt"})
	}

	by := requester.ID
	mv := &domain.PartMovement{
		PartID:        partID,
		Kind:          req.Kind,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		PerformedByID: &by,
	}
	part, err := s.repo.RecordMovement(ctx, mv)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("part")
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, apperr.Conflict("not enough stock to remove %d unit(s)", req.Quantity)
		}
		return nil, apperr.Internal("record movement", err)
	}

	if part.Quantity <= LowStockThreshold {
		s.log.Info("part running low",
			zap.Int64("part_id", part.ID),
			zap.Int("quantity", part.Quantity),
		)
	}
	return &MovementResult{Movement: toMovementResponse(mv), Part: toPartResponse(part)}, nil
}

func (s *Service) GetPartMovements(ctx context.Context, requesterID, partID int64) ([]MovementResponse, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewInventory, nil); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPart(ctx, partID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("part")
		}
		return nil, apperr.Internal("load part", err)
	}
	moves, err := s.repo.ListMovements(ctx, partID)
	if err != nil {
		return nil, apperr.Internal("list movements", err)
	}
	out := make([]MovementResponse, 0, len(moves))
	for i := range moves {
		out = append(out, toMovementResponse(&moves[i]))
	}
	return out, nil
}

// AddRepairEntry appends to the device's repair history. The technician
// defaults to the requester and must be a staff account.
func (s *Service) AddRepairEntry(ctx context.Context, requesterID, deviceID int64, req AddRepairRequest) (*RepairResponse, error) {
	requester, err := s.guard.Authorize(ctx, requesterID, guard.ManageInventory, nil)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.loadDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	technicianID := requester.ID
	if req.TechnicianID != nil && *req.TechnicianID != requester.ID {
		tech, err := s.accounts.GetByID(ctx, *req.TechnicianID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Internal("load technician", err)
		}
		if tech == nil || !tech.IsStaff {
			return nil, apperr.Validation("technician must be a staff account", map[string]string{"technician_id": "not_staff"})
		}
		technicianID = tech.ID
	}
	if req.ServiceID != nil && s.services != nil {
		if _, err := s.services.GetService(ctx, *req.ServiceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.Validation("service does not exist", map[string]string{"service_id": "not_found"})
			}
			return nil, apperr.Internal("load service", err)
		}
	}

	h := &domain.RepairHistory{
		DeviceID:     deviceID,
		TechnicianID: &technicianID,
		ServiceID:    req.ServiceID,
		Description:  req.Description,
		Cost:         decimal.NewFromFloat(req.Cost).Round(2),
	}
	if req.PerformedAt != nil {
		h.PerformedAt = req.PerformedAt.UTC()
	}
	if err := s.repo.CreateRepair(ctx, h); err != nil {
		return nil, apperr.Internal("add repair entry", err)
	}

	out := toRepairResponse(h)
	return &out, nil
}

// ListMyDevices is the customer portal view: the requester's own devices
// with their repair history.
func (s *Service) ListMyDevices(ctx context.Context, requesterID int64) ([]DeviceResponse, error) {
	me, err := s.guard.Authorize(ctx, requesterID, guard.ViewOwnDevices, nil)
	if err != nil {
		return nil, err
	}
	devices, _, err := s.repo.ListDevices(ctx, repository.DeviceFilter{CustomerID: &me.ID})
	if err != nil {
		return nil, apperr.Internal("list devices", err)
	}

	out := make([]DeviceResponse, 0, len(devices))
	for i := range devices {
		d, err := s.repo.GetDevice(ctx, devices[i].ID)
		if err != nil {
			return nil, apperr.Internal("load device", err)
		}
		r := toDeviceResponse(d)
		r.Parts = nil
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) GetInventoryStats(ctx context.Context, requesterID int64) (*InventoryStats, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewInventoryStats, nil); err != nil {
		return nil, err
	}

	var stats InventoryStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalDevices, err = s.repo.CountDevices(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalParts, err = s.repo.CountParts(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.LowStockParts, err = s.repo.CountLowStock(gctx, LowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		stats.StockUnits, err = s.repo.SumStock(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRepairs, err = s.repo.CountRepairs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("inventory stats", err)
	}
	return &stats, nil
}
