package repository

import (
	"context"
	"testing"

	"repairhub/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPart(t *testing.T, repo *InventoryRepository, qty int) *domain.DevicePart {
	t.Helper()
	ctx := context.Background()
	d := &domain.Device{CustomerID: 1, Type: domain.DeviceDesktop, Brand: "Lenovo", Model: "M720", SerialNumber: "SER-" + t.Name()}
	require.NoError(t, repo.CreateDevice(ctx, d))
	p := &domain.DevicePart{DeviceID: d.ID, Name: "Fan", Quantity: qty, UnitCost: decimal.NewFromInt(12)}
	require.NoError(t, repo.CreatePart(ctx, p))
	return p
}

func TestInventoryRepository_RecordMovement(t *testing.T) {
	repo := NewInventoryRepository(newTestDB(t))
	ctx := context.Background()
	part := seedPart(t, repo, 3)

	got, err := repo.RecordMovement(ctx, &domain.PartMovement{PartID: part.ID, Kind: domain.MovementIn, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	got, err = repo.RecordMovement(ctx, &domain.PartMovement{PartID: part.ID, Kind: domain.MovementOut, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	_, err = repo.RecordMovement(ctx, &domain.PartMovement{PartID: part.ID, Kind: domain.MovementOut, Quantity: 1})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err = repo.RecordMovement(ctx, &domain.PartMovement{PartID: part.ID, Kind: domain.MovementAdjustment, Quantity: 7, Reason: "recount"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)

	moves, err := repo.ListMovements(ctx, part.ID)
	require.NoError(t, err)
	assert.Len(t, moves, 3)

	_, err = repo.RecordMovement(ctx, &domain.PartMovement{PartID: 12345, Kind: domain.MovementIn, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInventoryRepository_SerialUnique(t *testing.T) {
	repo := NewInventoryRepository(newTestDB(t))
	ctx := context.Background()

	a := &domain.Device{CustomerID: 1, Type: domain.DeviceLaptop, Brand: "Apple", Model: "Air", SerialNumber: "C02X"}
	require.NoError(t, repo.CreateDevice(ctx, a))
	b := &domain.Device{CustomerID: 2, Type: domain.DeviceLaptop, Brand: "Apple", Model: "Pro", SerialNumber: "C02X"}
	assert.ErrorIs(t, repo.CreateDevice(ctx, b), ErrDuplicate)

	// parts without a serial do not collide
	require.NoError(t, repo.CreatePart(ctx, &domain.DevicePart{DeviceID: a.ID, Name: "Screw", Quantity: 10}))
	require.NoError(t, repo.CreatePart(ctx, &domain.DevicePart{DeviceID: a.ID, Name: "Washer", Quantity: 10}))
}

func TestInventoryRepository_Stats(t *testing.T) {
	repo := NewInventoryRepository(newTestDB(t))
	ctx := context.Background()
	seedPart(t, repo, 4)

	devices, err := repo.CountDevices(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, devices)

	stock, err := repo.SumStock(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stock)

	low, err := repo.CountLowStock(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, low)
}
