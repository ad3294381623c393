package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"repairhub/internal/domain"
	"repairhub/internal/guard"
	"repairhub/internal/pkg/apperr"
	"repairhub/internal/pkg/datatable"
	"repairhub/internal/pkg/validator"
	"repairhub/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	repo  CatalogRepository
	guard Authorizer
	cache *Cache
	log   *zap.Logger
}

// NewService wires the catalog. cache may be nil, in which case public reads
// always hit the store.
func NewService(repo CatalogRepository, g Authorizer, cache *Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, guard: g, cache: cache, log: log}
}

func (s *Service) authorize(ctx context.Context, requesterID int64) error {
	_, err := s.guard.Authorize(ctx, requesterID, guard.ManageCatalog, nil)
	return err
}

func (s *Service) invalidate(reason string) {
	s.cache.Invalidate()
	s.log.Debug("catalog cache invalidated", zap.String("reason", reason))
}

/* ---------- CATEGORIES ---------- */

func (s *Service) GetCategoryList(ctx context.Context, requesterID int64, f CategoryFilter) ([]CategoryResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	cats, err := s.repo.ListCategories(ctx, repository.CategoryFilter{Search: f.Search, IsActive: f.IsActive})
	if err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	out := make([]CategoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, toCategoryResponse(&cats[i]))
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, requesterID, id int64) (*CategoryResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	c, err := s.loadCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toCategoryResponse(c)
	return &out, nil
}

func (s *Service) loadCategory(ctx context.Context, id int64) (*domain.ServiceCategory, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("category")
		}
		return nil, apperr.Internal("load category", err)
	}
	return c, nil
}

func (s *Service) CreateCategory(ctx context.Context, requesterID int64, req CreateCategoryRequest) (*CategoryResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	c := &domain.ServiceCategory{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a category named %q already exists", req.Name)
		}
		return nil, apperr.Internal("create category", err)
	}
	s.invalidate("category created")

	out := toCategoryResponse(c)
	return &out, nil
}

// UpdateCategory applies a partial update. Deactivating through it is
// subject to the same guard as DeleteCategory.
func (s *Service) UpdateCategory(ctx context.Context, requesterID, id int64, req UpdateCategoryRequest) (*CategoryResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	c, err := s.loadCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	deactivate := req.IsActive != nil && !*req.IsActive && c.IsActive
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	active, err := s.repo.UpdateCategory(ctx, c, deactivate)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("a category named %q already exists", c.Name)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("category")
		}
		return nil, apperr.Internal("update category", err)
	}
	if active > 0 {
		return nil, activeServicesConflict(active)
	}
	s.invalidate("category updated")

	out := toCategoryResponse(c)
	return &out, nil
}

// DeleteCategory deactivates the category. Categories are never removed and
// cannot be deactivated while they own active services.
func (s *Service) DeleteCategory(ctx context.Context, requesterID, id int64) error {
	if err := s.authorize(ctx, requesterID); err != nil {
		return err
	}
	return s.deactivateCategory(ctx, id)
}

func (s *Service) deactivateCategory(ctx context.Context, id int64) error {
	active, err := s.repo.DeactivateCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("category")
		}
		return apperr.Internal("deactivate category", err)
	}
	if active > 0 {
		return activeServicesConflict(active)
	}
	s.invalidate("category deactivated")
	return nil
}

func activeServicesConflict(active int64) error {
	return apperr.Conflict("category still has %d active service(s); deactivate them first", active).
		WithDetail("active_services", active)
}

/* ---------- SERVICES ---------- */

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func (s *Service) GetServiceList(ctx context.Context, requesterID int64, f ServiceFilter, page, limit int) (*ServiceList, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	services, total, err := s.repo.ListServices(ctx, repository.ServiceFilter{
		Search:     f.Search,
		CategoryID: f.CategoryID,
		Device:     f.Device,
		IsActive:   f.IsActive,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, apperr.Internal("list services", err)
	}

	out := make([]ServiceResponse, 0, len(services))
	for i := range services {
		out = append(out, toServiceResponse(&services[i]))
	}
	return &ServiceList{Services: out, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) GetService(ctx context.Context, requesterID, id int64) (*ServiceResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	svc, err := s.loadService(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toServiceResponse(svc)
	return &out, nil
}

func (s *Service) loadService(ctx context.Context, id int64) (*domain.Service, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("service")
		}
		return nil, apperr.Internal("load service", err)
	}
	return svc, nil
}

// activeCategory loads a category a service is about to reference.
func (s *Service) activeCategory(ctx context.Context, id int64) (*domain.ServiceCategory, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("category does not exist", map[string]string{"category_id": "not_found"})
		}
		return nil, apperr.Internal("load category", err)
	}
	if !c.IsActive {
		return nil, apperr.Validation("category is not active", map[string]string{"category_id": "inactive"})
	}
	return c, nil
}

func duplicateService(name string, device domain.DeviceType) error {
	return apperr.Conflict("a %s service named %q already exists in this category", strings.ToLower(string(device)), name)
}

func (s *Service) CreateService(ctx context.Context, requesterID int64, req CreateServiceRequest) (*ServiceResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	cat, err := s.activeCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	svc := &domain.Service{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Description:   req.Description,
		Device:        req.Device,
		Price:         decimal.NewFromFloat(req.Price).Round(2),
		Notes:         req.Notes,
		EstimatedTime: req.EstimatedTime,
		IsActive:      req.IsActive == nil || *req.IsActive,
		Category:      cat,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateService(req.Name, req.Device)
		}
		return nil, apperr.Internal("create service", err)
	}
	s.invalidate("service created")
	s.log.Info("service created",
		zap.Int64("service_id", svc.ID),
		zap.String("device", string(svc.Device)),
		zap.Int64("by", requesterID),
	)

	out := toServiceResponse(svc)
	return &out, nil
}

func (s *Service) UpdateService(ctx context.Context, requesterID, id int64, req UpdateServiceRequest) (*ServiceResponse, error) {
	if err := s.authorize(ctx, requesterID); err != nil {
		return nil, err
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	svc, err := s.loadService(ctx, id)
	if err != nil {
		return nil, err
	}

	activating := req.IsActive != nil && *req.IsActive && !svc.IsActive
	if (req.CategoryID != nil && *req.CategoryID != svc.CategoryID) || activating {
		catID := svc.CategoryID
		if req.CategoryID != nil {
			catID = *req.CategoryID
		}
		cat, err := s.activeCategory(ctx, catID)
		if err != nil {
			return nil, err
		}
		svc.CategoryID = cat.ID
		svc.Category = cat
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Device != nil {
		svc.Device = *req.Device
	}
	if req.Price != nil {
		svc.Price = decimal.NewFromFloat(*req.Price).Round(2)
	}
	if req.Notes != nil {
		svc.Notes = *req.Notes
	}
	if req.EstimatedTime != nil {
		svc.EstimatedTime = *req.EstimatedTime
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateService(ctx, svc); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, duplicateService(svc.Name, svc.Device)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("service")
		}
		return nil, apperr.Internal("update service", err)
	}
	s.invalidate("service updated")

	out := toServiceResponse(svc)
	return &out, nil
}

// DeleteService deactivates the service. Services are never removed.
func (s *Service) DeleteService(ctx context.Context, requesterID, id int64) error {
	if err := s.authorize(ctx, requesterID); err != nil {
		return err
	}
	if err := s.repo.SetServiceActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("service")
		}
		return apperr.Internal("deactivate service", err)
	}
	s.invalidate("service deactivated")
	return nil
}

func (s *Service) GetServiceStats(ctx context.Context, requesterID int64) (*ServiceStats, error) {
	if _, err := s.guard.Authorize(ctx, requesterID, guard.ViewServiceStats, nil); err != nil {
		return nil, err
	}

	yes := true
	var stats ServiceStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalServices, err = s.repo.CountServices(gctx, repository.ServiceFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveServices, err = s.repo.CountServices(gctx, repository.ServiceFilter{IsActive: &yes})
		return err
	})
	g.Go(func() (err error) {
		stats.TotalCategories, err = s.repo.CountCategories(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.ActiveCategories, err = s.repo.CountCategories(gctx, &yes)
		return err
	})
	g.Go(func() (err error) {
		stats.ByDevice, err = s.repo.CountServicesByDevice(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("service stats", err)
	}

	stats.InactiveServices = stats.TotalServices - stats.ActiveServices
	for _, d := range domain.DeviceTypes {
		if _, ok := stats.ByDevice[d]; !ok {
			stats.ByDevice[d] = 0
		}
	}
	return &stats, nil
}

/* ---------- PUBLIC ---------- */

// PublicCategories lists active categories for anonymous visitors.
func (s *Service) PublicCategories(ctx context.Context) ([]CategoryResponse, error) {
	if cached, ok := get[[]CategoryResponse](s.cache, keyCategories); ok {
		return cached, nil
	}

	active := true
	cats, err := s.repo.ListCategories(ctx, repository.CategoryFilter{IsActive: &active})
	if err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	out := make([]CategoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, toCategoryResponse(&cats[i]))
	}
	s.cache.set(keyCategories, out)
	return out, nil
}

func (s *Service) publicServices(ctx context.Context) ([]ServiceResponse, error) {
	if cached, ok := get[[]ServiceResponse](s.cache, keyServices); ok {
		return cached, nil
	}

	active := true
	services, _, err := s.repo.ListServices(ctx, repository.ServiceFilter{IsActive: &active})
	if err != nil {
		return nil, apperr.Internal("list services", err)
	}
	out := make([]ServiceResponse, 0, len(services))
	for i := range services {
		if c := services[i].Category; c != nil && !c.IsActive {
			continue
		}
		out = append(out, toServiceResponse(&services[i]))
	}
	s.cache.set(keyServices, out)
	return out, nil
}

var publicServiceTable = datatable.New([]datatable.Column[ServiceResponse]{
	{Key: "name", Value: func(r ServiceResponse) string { return r.Name }, Searchable: true, Sortable: true},
	{Key: "description", Value: func(r ServiceResponse) string { return r.Description }, Searchable: true},
	{Key: "category", Value: func(r ServiceResponse) string { return r.CategoryName }, Searchable: true, Filterable: true, Sortable: true},
	{Key: "category_id", Value: func(r ServiceResponse) string { return strconv.FormatInt(r.CategoryID, 10) }, Filterable: true},
	{Key: "device", Value: func(r ServiceResponse) string { return string(r.Device) }, Filterable: true, Sortable: true},
	{
		Key:      "price",
		Value:    func(r ServiceResponse) string { return strconv.FormatFloat(r.Price, 'f', 2, 64) },
		Sortable: true,
		Less:     func(a, b ServiceResponse) bool { return a.Price < b.Price },
	},
})

// PublicServices lists active services of active categories. Category
// matches either the category name or its id.
func (s *Service) PublicServices(ctx context.Context, q PublicServiceQuery) (datatable.Page[ServiceResponse], error) {
	services, err := s.publicServices(ctx)
	if err != nil {
		return datatable.Page[ServiceResponse]{}, err
	}

	filters := map[string]string{"device": q.Device}
	if _, err := strconv.ParseInt(q.Category, 10, 64); err == nil {
		filters["category_id"] = q.Category
	} else {
		filters["category"] = q.Category
	}

	return publicServiceTable.Apply(services, datatable.Query{
		Search:   q.Search,
		Filters:  filters,
		SortBy:   q.SortBy,
		SortDesc: q.SortDesc,
		Page:     q.Page,
		PageSize: q.PageSize,
	}), nil
}
