package inventory

import (
	"context"
	"testing"
	"time"

	"repairhub/internal/database"
	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	accounts *repository.AccountRepository
	catalog  *repository.CatalogRepository
	admin    *domain.Account
	tech     *domain.Account
	customer *domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		accounts: repository.NewAccountRepository(db),
		catalog:  repository.NewCatalogRepository(db),
	}
	f.admin = f.account(t, "admin@example.com", &domain.StaffProfile{Role: domain.StaffAdministrator})
	f.tech = f.account(t, "tech@example.com", &domain.StaffProfile{Role: domain.StaffTechnician})
	f.customer = f.account(t, "owner@example.com", &domain.CustomerProfile{Role: domain.CustomerIndividual})

	f.svc = NewService(repository.NewInventoryRepository(db), f.accounts, f.catalog, guard.New(f.accounts, nil), nil)
	return f
}

func (f *fixture) account(t *testing.T, email string, p domain.Profile) *domain.Account {
	t.Helper()
	_, staff := p.(*domain.StaffProfile)
	a := &domain.Account{Email: email, Name: email, IsStaff: staff, IsActive: true, Profile: p}
	require.NoError(t, f.accounts.Create(context.Background(), a))
	return a
}

func (f *fixture) device(t *testing.T, serial string) *DeviceResponse {
	t.Helper()
	d, err := f.svc.RegisterDevice(context.Background(), f.tech.ID, RegisterDeviceRequest{
		CustomerID:   f.customer.ID,
		Type:         domain.DeviceLaptop,
		Brand:        "Lenovo",
		Model:        "T14",
		SerialNumber: serial,
	})
	require.NoError(t, err)
	return d
}

func TestRegisterDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.device(t, "SN-1")

	_, err := f.svc.RegisterDevice(ctx, f.tech.ID, RegisterDeviceRequest{
		CustomerID: f.customer.ID, Type: domain.DeviceDesktop, Brand: "Dell", Model: "Optiplex", SerialNumber: "SN-1",
	})
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	_, err = f.svc.RegisterDevice(ctx, f.tech.ID, RegisterDeviceRequest{
		CustomerID: f.tech.ID, Type: domain.DeviceDesktop, Brand: "Dell", Model: "Optiplex", SerialNumber: "SN-2",
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.RegisterDevice(ctx, f.tech.ID, RegisterDeviceRequest{
		CustomerID: 4242, Type: domain.DeviceDesktop, Brand: "Dell", Model: "Optiplex", SerialNumber: "SN-3",
	})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.RegisterDevice(ctx, f.customer.ID, RegisterDeviceRequest{
		CustomerID: f.customer.ID, Type: domain.DeviceDesktop, Brand: "Dell", Model: "Optiplex", SerialNumber: "SN-4",
	})
	assert.True(t, apperr.IsAuthorization(err))
}

func TestRecordMovement_StockNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "SN-1")

	part, err := f.svc.AddPart(ctx, f.tech.ID, d.ID, AddPartRequest{Name: "Battery", Quantity: 3, UnitCost: 45.5})
	require.NoError(t, err)
	assert.Equal(t, 45.5, part.UnitCost)

	res, err := f.svc.RecordMovement(ctx, f.tech.ID, part.ID, RecordMovementRequest{Kind: domain.MovementOut, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Part.Quantity)
	assert.True(t, res.Part.LowStock)
	require.NotNil(t, res.Movement.PerformedByID)
	assert.Equal(t, f.tech.ID, *res.Movement.PerformedByID)

	_, err = f.svc.RecordMovement(ctx, f.tech.ID, part.ID, RecordMovementRequest{Kind: domain.MovementOut, Quantity: 2})
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	res, err = f.svc.RecordMovement(ctx, f.tech.ID, part.ID, RecordMovementRequest{Kind: domain.MovementIn, Quantity: 10, Reason: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 11, res.Part.Quantity)

	res, err = f.svc.RecordMovement(ctx, f.tech.ID, part.ID, RecordMovementRequest{Kind: domain.MovementAdjustment, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Part.Quantity)

	_, err = f.svc.RecordMovement(ctx, f.tech.ID, part.ID, RecordMovementRequest{Kind: domain.MovementIn, Quantity: 0})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.RecordMovement(ctx, f.tech.ID, 999, RecordMovementRequest{Kind: domain.MovementIn, Quantity: 1})
	assert.True(t, apperr.IsNotFound(err))

	moves, err := f.svc.GetPartMovements(ctx, f.tech.ID, part.ID)
	require.NoError(t, err)
	assert.Len(t, moves, 3)
}

func TestAddRepairEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "SN-1")

	cat := &domain.ServiceCategory{Name: "Screen Repairs", IsActive: true}
	require.NoError(t, f.catalog.CreateCategory(ctx, cat))
	svc := &domain.Service{CategoryID: cat.ID, Name: "LCD Replacement", Device: domain.DeviceLaptop, Price: decimal.NewFromInt(8500), IsActive: true}
	require.NoError(t, f.catalog.CreateService(ctx, svc))

	when := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry, err := f.svc.AddRepairEntry(ctx, f.tech.ID, d.ID, AddRepairRequest{
		ServiceID:   &svc.ID,
		Description: "Replaced cracked panel",
		Cost:        8500,
		PerformedAt: &when,
	})
	require.NoError(t, err)
	require.NotNil(t, entry.TechnicianID)
	assert.Equal(t, f.tech.ID, *entry.TechnicianID)
	assert.Equal(t, 8500.0, entry.Cost)

	_, err = f.svc.AddRepairEntry(ctx, f.admin.ID, d.ID, AddRepairRequest{TechnicianID: &f.customer.ID, Description: "x"})
	assert.True(t, apperr.IsValidation(err))

	missing := int64(999)
	_, err = f.svc.AddRepairEntry(ctx, f.admin.ID, d.ID, AddRepairRequest{ServiceID: &missing, Description: "x"})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.AddRepairEntry(ctx, f.admin.ID, 999, AddRepairRequest{Description: "x"})
	assert.True(t, apperr.IsNotFound(err))

	got, err := f.svc.GetDevice(ctx, f.tech.ID, d.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Replaced cracked panel", got.History[0].Description)
}

func TestListMyDevices_ScopedToRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "SN-1")
	other := f.account(t, "other@example.com", &domain.CustomerProfile{Role: domain.CustomerCompany})
	_, err := f.svc.RegisterDevice(ctx, f.tech.ID, RegisterDeviceRequest{
		CustomerID: other.ID, Type: domain.DevicePrinter, Brand: "HP", Model: "LaserJet", SerialNumber: "SN-2",
	})
	require.NoError(t, err)

	mine, err := f.svc.ListMyDevices(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, d.ID, mine[0].ID)

	_, err = f.svc.ListDevices(ctx, f.customer.ID, DeviceFilter{}, 1, 20)
	assert.True(t, apperr.IsAuthorization(err))

	all, err := f.svc.ListDevices(ctx, f.tech.ID, DeviceFilter{}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)
}

func TestUpdateDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "SN-1")
	f.device(t, "SN-2")

	notes := "Sticky keyboard"
	got, err := f.svc.UpdateDevice(ctx, f.tech.ID, d.ID, UpdateDeviceRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Sticky keyboard", got.Notes)
	assert.Equal(t, "SN-1", got.SerialNumber)

	serial := "SN-2"
	_, err = f.svc.UpdateDevice(ctx, f.tech.ID, d.ID, UpdateDeviceRequest{SerialNumber: &serial})
	assert.True(t, apperr.IsConflict(err))
}

func TestGetInventoryStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.device(t, "SN-1")
	_, err := f.svc.AddPart(ctx, f.tech.ID, d.ID, AddPartRequest{Name: "Fan", Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddPart(ctx, f.tech.ID, d.ID, AddPartRequest{Name: "SSD", Quantity: 9})
	require.NoError(t, err)

	_, err = f.svc.GetInventoryStats(ctx, f.tech.ID)
	assert.True(t, apperr.IsAuthorization(err))

	stats, err := f.svc.GetInventoryStats(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalDevices)
	assert.EqualValues(t, 2, stats.TotalParts)
	assert.EqualValues(t, 1, stats.LowStockParts)
	assert.EqualValues(t, 10, stats.StockUnits)
	assert.Zero(t, stats.TotalRepairs)
}
