package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"repairhub/internal/config"
	"repairhub/internal/database"
	"repairhub/internal/domain"
	"repairhub/internal/pkg/logger"
	"repairhub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedService struct {
	name    string
	device  domain.DeviceType
	price   string
	eta     string
	summary string
}

type seedCategory struct {
	name     string
	summary  string
	services []seedService
}

var starterCatalog = []seedCategory{
	{
		name:    "Screen Repairs",
		summary: "Panel, backlight and hinge work",
		services: []seedService{
			{"LCD Replacement", domain.DeviceLaptop, "8500", "2-3 days", "Replace a cracked or dead laptop panel"},
			{"Hinge Repair", domain.DeviceLaptop, "3500", "1 day", "Re-seat or replace broken hinges"},
		},
	},
	{
		name:    "Hardware Upgrades",
		summary: "Storage, memory and power supply work",
		services: []seedService{
			{"SSD Upgrade", domain.DeviceLaptop, "2500", "same day", "Clone the old drive onto a new SSD"},
			{"SSD Upgrade", domain.DeviceDesktop, "2000", "same day", "Clone the old drive onto a new SSD"},
			{"PSU Replacement", domain.DeviceDesktop, "4000", "1 day", "Swap a failed power supply"},
		},
	},
	{
		name:    "Maintenance",
		summary: "Cleaning and routine servicing",
		services: []seedService{
			{"Drum Cleaning", domain.DevicePrinter, "1500", "same day", "Clean the drum unit and rollers"},
			{"Dust Cleaning", domain.DeviceDesktop, "1200", "same day", "Clean fans and heat sinks"},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		zl.Fatal("migrate failed", zap.Error(err))
	}

	ctx := context.Background()
	accounts := repository.NewAccountRepository(db)
	catalog := repository.NewCatalogRepository(db)

	adminEmail := strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL"))
	if adminEmail == "" {
		adminEmail = "admin@repairhub.local"
	}
	if err := seedAdmin(ctx, accounts, adminEmail); err != nil {
		zl.Fatal("seed admin failed", zap.Error(err))
	}
	zl.Info("admin ready", zap.String("email", adminEmail))

	created, err := seedCatalog(ctx, catalog)
	if err != nil {
		zl.Fatal("seed catalog failed", zap.Error(err))
	}
	zl.Info("catalog ready", zap.Int("services_created", created))

	if cfg.DataImportPath != "" {
		// spreadsheet import runs outside this binary
		zl.Info("data import source", zap.String("path", cfg.DataImportPath))
	}
}

// seedAdmin creates the superuser administrator unless the address is
// already taken.
func seedAdmin(ctx context.Context, accounts *repository.AccountRepository, email string) error {
	if _, err := accounts.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	return accounts.Create(ctx, &domain.Account{
		Email:            email,
		Name:             "Administrator",
		PreferredContact: domain.ContactEmail,
		IsStaff:          true,
		IsSuperuser:      true,
		IsActive:         true,
		Profile: &domain.StaffProfile{
			Role:            domain.StaffAdministrator,
			Specializations: []string{},
			Availability:    map[string]domain.TimeRange{},
		},
	})
}

func seedCatalog(ctx context.Context, repo *repository.CatalogRepository) (int, error) {
	existing, err := repo.ListCategories(ctx, repository.CategoryFilter{})
	if err != nil {
		return 0, err
	}
	byName := make(map[string]int64, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	created := 0
	for _, sc := range starterCatalog {
		id, ok := byName[strings.ToLower(sc.name)]
		if !ok {
			c := &domain.ServiceCategory{Name: sc.name, Description: sc.summary, IsActive: true}
			if err := repo.CreateCategory(ctx, c); err != nil {
				return created, err
			}
			id = c.ID
		}

		for _, ss := range sc.services {
			err := repo.CreateService(ctx, &domain.Service{
				CategoryID:    id,
				Name:          ss.name,
				Description:   ss.summary,
				Device:        ss.device,
				Price:         decimal.RequireFromString(ss.price),
				EstimatedTime: ss.eta,
				IsActive:      true,
			})
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			if err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}
