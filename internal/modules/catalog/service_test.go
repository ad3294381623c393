package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairhub/internal/database"
	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	cache *Cache
	admin int64
	tech  int64
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

	accounts := repository.NewAccountRepository(db)
	ctx := context.Background()
	admin := &domain.Account{
		Email: "admin@example.com", Name: "Admin", IsStaff: true, IsActive: true,
		Profile: &domain.StaffProfile{Role: domain.StaffAdministrator},
	}
	require.NoError(t, accounts.Create(ctx, admin))
	tech := &domain.Account{
		Email: "tech@example.com", Name: "Tech", IsStaff: true, IsActive: true,
		Profile: &domain.StaffProfile{Role: domain.StaffTechnician},
	}
	require.NoError(t, accounts.Create(ctx, tech))

	cache := NewCache(16, time.Minute)
	return &fixture{
		svc:   NewService(repository.NewCatalogRepository(db), guard.New(accounts, nil), cache, nil),
		cache: cache,
		admin: admin.ID,
		tech:  tech.ID,
	}
}

func (f *fixture) category(t *testing.T, name string) *CategoryResponse {
	t.Helper()
	c, err := f.svc.CreateCategory(context.Background(), f.admin, CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func TestScreenRepairsScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cat := f.category(t, "Screen Repairs")
	svc, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{
		CategoryID: cat.ID,
		Name:       "LCD Replacement",
		Device:     domain.DeviceLaptop,
		Price:      8500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Screen Repairs", svc.CategoryName)

	active, inactive := true, false
	list, err := f.svc.GetServiceList(ctx, f.admin, ServiceFilter{IsActive: &active}, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Services, 1)
	assert.Equal(t, "LCD Replacement", list.Services[0].Name)
	assert.Equal(t, 8500.0, list.Services[0].Price)
	assert.Equal(t, "Screen Repairs", list.Services[0].CategoryName)

	require.NoError(t, f.svc.DeleteService(ctx, f.admin, svc.ID))

	list, err = f.svc.GetServiceList(ctx, f.admin, ServiceFilter{IsActive: &active}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, list.Services)
	assert.Zero(t, list.Total)

	list, err = f.svc.GetServiceList(ctx, f.admin, ServiceFilter{IsActive: &inactive}, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Services, 1)
	assert.False(t, list.Services[0].IsActive)
}

func TestCreateService_UniquePerCategoryAndDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Screen Repairs")

	req := CreateServiceRequest{CategoryID: cat.ID, Name: "Screen Repair", Device: domain.DeviceLaptop, Price: 100}
	_, err := f.svc.CreateService(ctx, f.admin, req)
	require.NoError(t, err)

	_, err = f.svc.CreateService(ctx, f.admin, req)
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	req.Device = domain.DeviceDesktop
	_, err = f.svc.CreateService(ctx, f.admin, req)
	assert.NoError(t, err)
}

func TestCreateService_CategoryMustBeActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Legacy")
	require.NoError(t, f.svc.DeleteCategory(ctx, f.admin, cat.ID))

	_, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Anything", Device: domain.DevicePrinter})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: 999, Name: "Anything", Device: domain.DevicePrinter})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Anything", Device: "TABLET"})
	assert.True(t, apperr.IsValidation(err))
}

func TestDeleteCategory_GuardedByActiveServices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Printers")
	svc, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Drum swap", Device: domain.DevicePrinter, Price: 30})
	require.NoError(t, err)

	err = f.svc.DeleteCategory(ctx, f.admin, cat.ID)
	require.True(t, apperr.IsConflict(err), "got %v", err)
	assert.EqualValues(t, 1, apperr.Details(err)["active_services"])

	off := false
	_, err = f.svc.UpdateCategory(ctx, f.admin, cat.ID, UpdateCategoryRequest{IsActive: &off})
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, f.svc.DeleteService(ctx, f.admin, svc.ID))
	require.NoError(t, f.svc.DeleteCategory(ctx, f.admin, cat.ID))

	got, err := f.svc.GetCategory(ctx, f.admin, cat.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	// reactivating a service inside an inactive category is refused
	on := true
	_, err = f.svc.UpdateService(ctx, f.admin, svc.ID, UpdateServiceRequest{IsActive: &on})
	assert.True(t, apperr.IsValidation(err))
}

func TestUpdateCategory_FailedRenameKeepsCategoryActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.category(t, "Batteries")
	screens := f.category(t, "Screens")

	_, err := f.svc.PublicCategories(ctx)
	require.NoError(t, err)

	name, off := "Batteries", false
	_, err = f.svc.UpdateCategory(ctx, f.admin, screens.ID, UpdateCategoryRequest{Name: &name, IsActive: &off})
	require.True(t, apperr.IsConflict(err), "got %v", err)

	got, err := f.svc.GetCategory(ctx, f.admin, screens.ID)
	require.NoError(t, err)
	assert.Equal(t, "Screens", got.Name)
	assert.True(t, got.IsActive)

	// nothing was written, so the public list is still served from cache
	cats, err := f.svc.PublicCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
	assert.EqualValues(t, 1, f.cache.Hits())

	name = "Displays"
	updated, err := f.svc.UpdateCategory(ctx, f.admin, screens.ID, UpdateCategoryRequest{Name: &name, IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, "Displays", updated.Name)
	assert.False(t, updated.IsActive)
}

func TestCatalog_ManagementNeedsAdministrator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCategory(ctx, f.tech, CreateCategoryRequest{Name: "Nope"})
	assert.True(t, apperr.IsAuthorization(err))
	_, err = f.svc.GetServiceList(ctx, f.tech, ServiceFilter{}, 1, 20)
	assert.True(t, apperr.IsAuthorization(err))
	_, err = f.svc.GetServiceStats(ctx, f.tech)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestUpdateService_PartialAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "Screen Repairs")

	laptop, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Screen Repair", Device: domain.DeviceLaptop, Price: 100})
	require.NoError(t, err)
	desktop, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Screen Repair", Device: domain.DeviceDesktop, Price: 120})
	require.NoError(t, err)

	price := 149.99
	got, err := f.svc.UpdateService(ctx, f.admin, laptop.ID, UpdateServiceRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 149.99, got.Price)
	assert.Equal(t, domain.DeviceLaptop, got.Device)
	assert.Equal(t, "Screen Repair", got.Name)

	d := domain.DeviceLaptop
	_, err = f.svc.UpdateService(ctx, f.admin, desktop.ID, UpdateServiceRequest{Device: &d})
	assert.True(t, apperr.IsConflict(err))

	_, err = f.svc.UpdateService(ctx, f.admin, 999, UpdateServiceRequest{Price: &price})
	assert.True(t, apperr.IsNotFound(err))
}

func TestGetServiceStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.category(t, "General")
	f.category(t, "Other")

	for _, d := range []domain.DeviceType{domain.DeviceLaptop, domain.DeviceDesktop} {
		_, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Cleaning", Device: d, Price: 10})
		require.NoError(t, err)
	}
	off, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "Cleaning", Device: domain.DevicePrinter, Price: 10})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteService(ctx, f.admin, off.ID))

	stats, err := f.svc.GetServiceStats(ctx, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalServices)
	assert.EqualValues(t, 2, stats.ActiveServices)
	assert.EqualValues(t, 1, stats.InactiveServices)
	assert.EqualValues(t, 2, stats.TotalCategories)
	assert.EqualValues(t, 2, stats.ActiveCategories)
	assert.EqualValues(t, 1, stats.ByDevice[domain.DeviceLaptop])
	assert.EqualValues(t, 0, stats.ByDevice[domain.DevicePrinter])
	assert.Contains(t, stats.ByDevice, domain.DevicePrinter)
}

func TestPublicServices_CachedUntilMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	screens := f.category(t, "Screen Repairs")
	power := f.category(t, "Power")

	_, err := f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: screens.ID, Name: "LCD Replacement", Device: domain.DeviceLaptop, Price: 8500})
	require.NoError(t, err)
	_, err = f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: power.ID, Name: "PSU Replacement", Device: domain.DeviceDesktop, Price: 60})
	require.NoError(t, err)

	page, err := f.svc.PublicServices(ctx, PublicServiceQuery{Search: "replacement", SortBy: "price"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, "PSU Replacement", page.Rows[0].Item.Name)

	page, err = f.svc.PublicServices(ctx, PublicServiceQuery{Category: "screen repairs", Device: "all"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "LCD Replacement", page.Rows[0].Item.Name)
	assert.EqualValues(t, 1, f.cache.Hits())

	// the cached list must not survive a mutation
	_, err = f.svc.CreateService(ctx, f.admin, CreateServiceRequest{CategoryID: screens.ID, Name: "Hinge Repair", Device: domain.DeviceLaptop, Price: 40})
	require.NoError(t, err)
	page, err = f.svc.PublicServices(ctx, PublicServiceQuery{Category: "screen repairs"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	cats, err := f.svc.PublicCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestHandler_PublicCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	cat := f.category(t, "Screen Repairs")
	_, err := f.svc.CreateService(context.Background(), f.admin, CreateServiceRequest{CategoryID: cat.ID, Name: "LCD Replacement", Device: domain.DeviceLaptop, Price: 8500})
	require.NoError(t, err)

	r := gin.New()
	NewHandler(f.svc, nil).RegisterRoutes(r.Group("/api/v1"), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/services?device=LAPTOP&page_size=5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Rows []struct {
				Item ServiceResponse `json:"item"`
			} `json:"rows"`
			PageSize int `json:"page_size"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 5, body.Data.PageSize)
	require.Len(t, body.Data.Rows, 1)
	assert.Equal(t, 8500.0, body.Data.Rows[0].Item.Price)
}
