package catalog

import (
	"net/http"
	"strconv"

	"repairhub/internal/domain"
	"repairhub/internal/middleware"
	"repairhub/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(public, dashboard *gin.RouterGroup) {
	if public != nil {
		public.GET("/catalog/categories", h.PublicCategories)
		public.GET("/catalog/services", h.PublicServices)
	}

	if dashboard != nil {
		dashboard.GET("/categories", h.GetCategories)
		dashboard.POST("/categories", h.CreateCategory)
		dashboard.GET("/categories/:id", h.GetCategory)
		dashboard.PATCH("/categories/:id", h.UpdateCategory)
		dashboard.DELETE("/categories/:id", h.DeleteCategory)

		dashboard.GET("/services", h.GetServices)
		dashboard.POST("/services", h.CreateService)
		dashboard.GET("/services/stats", h.GetStats)
		dashboard.GET("/services/:id", h.GetService)
		dashboard.PATCH("/services/:id", h.UpdateService)
		dashboard.DELETE("/services/:id", h.DeleteService)
	}
}

/* ---------- PUBLIC ---------- */

// PublicCategories handles GET /api/v1/catalog/categories
// @Summary		Active service categories
// @Tags		Catalog
// @Success		200	{object}	[]CategoryResponse
// @Router		/catalog/categories [GET]
func (h *Handler) PublicCategories(c *gin.Context) {
	cats, err := h.service.PublicCategories(c.Request.Context())
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"categories": cats})
}

// PublicServices handles GET /api/v1/catalog/services
// @Summary		Active services
// @Description	Searchable, filterable and sortable list of active services in active categories.
// @Tags		Catalog
// @Param		search		query	string	false	"Name, description or category substring"
// @Param		category	query	string	false	"Category name or id, or all"
// @Param		device		query	string	false	"LAPTOP, DESKTOP, PRINTER or all"
// @Param		sort_by		query	string	false	"name, category, device or price"
// @Param		sort_desc	query	bool	false	"Descending order"
// @Param		page		query	int		false	"Page (default 1)"
// @Param		page_size	query	int		false	"Page size (default 10, max 100)"
// @Success		200	{object}	map[string]interface{}
// @Router		/catalog/services [GET]
func (h *Handler) PublicServices(c *gin.Context) {
	var q PublicServiceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters")
		return
	}
	page, err := h.service.PublicServices(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

/* ---------- CATEGORIES ---------- */

// @Summary		List categories
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		search		query	string	false	"Name substring"
// @Param		is_active	query	bool	false	"Active flag"
// @Success		200	{object}	[]CategoryResponse
// @Failure		403	{object}	map[string]interface{}
// @Router		/dashboard/categories [GET]
func (h *Handler) GetCategories(c *gin.Context) {
	cats, err := h.service.GetCategoryList(c.Request.Context(), middleware.AccountID(c), CategoryFilter{
		Search:   c.Query("search"),
		IsActive: queryBool(c, "is_active"),
	})
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"categories": cats})
}

// @Summary		Get category
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id	path	int	true	"Category ID"
// @Success		200	{object}	CategoryResponse
// @Router		/dashboard/categories/{id} [GET]
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "category")
	if !ok {
		return
	}
	cat, err := h.service.GetCategory(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, cat)
}

// @Summary		Create category
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		request	body	CreateCategoryRequest	true	"Category"
// @Success		201	{object}	CategoryResponse
// @Failure		409	{object}	map[string]interface{} "Name already in use"
// @Router		/dashboard/categories [POST]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	cat, err := h.service.CreateCategory(c.Request.Context(), middleware.AccountID(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, cat)
}

// @Summary		Update category
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id		path	int						true	"Category ID"
// @Param		request	body	UpdateCategoryRequest	true	"Fields to change"
// @Success		200	{object}	CategoryResponse
// @Router		/dashboard/categories/{id} [PATCH]
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "category")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	cat, err := h.service.UpdateCategory(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, cat)
}

// DeleteCategory deactivates a category.
// @Summary		Deactivate category
// @Description	Fails with 409 while the category owns active services.
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id	path	int	true	"Category ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/dashboard/categories/{id} [DELETE]
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "category")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Category deactivated"})
}

/* ---------- SERVICES ---------- */

// @Summary		List services
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		search		query	string	false	"Name or description substring"
// @Param		category_id	query	int		false	"Category ID"
// @Param		device		query	string	false	"LAPTOP, DESKTOP or PRINTER"
// @Param		is_active	query	bool	false	"Active flag"
// @Param		page		query	int		false	"Page (default 1)"
// @Param		limit		query	int		false	"Page size (default 20, max 100)"
// @Success		200	{object}	ServiceList
// @Router		/dashboard/services [GET]
func (h *Handler) GetServices(c *gin.Context) {
	f := ServiceFilter{
		Search:   c.Query("search"),
		IsActive: queryBool(c, "is_active"),
	}
	if v, err := strconv.ParseInt(c.Query("category_id"), 10, 64); err == nil {
		f.CategoryID = &v
	}
	if d := domain.DeviceType(c.Query("device")); d.Valid() {
		f.Device = &d
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.service.GetServiceList(c.Request.Context(), middleware.AccountID(c), f, page, limit)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// @Summary		Get service
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id	path	int	true	"Service ID"
// @Success		200	{object}	ServiceResponse
// @Router		/dashboard/services/{id} [GET]
func (h *Handler) GetService(c *gin.Context) {
	id, ok := pathID(c, "service")
	if !ok {
		return
	}
	svc, err := h.service.GetService(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, svc)
}

// @Summary		Create service
// @Description	The (name, category, device) triple must be unique.
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		request	body	CreateServiceRequest	true	"Service"
// @Success		201	{object}	ServiceResponse
// @Failure		409	{object}	map[string]interface{}
// @Router		/dashboard/services [POST]
func (h *Handler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	svc, err := h.service.CreateService(c.Request.Context(), middleware.AccountID(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, svc)
}

// @Summary		Update service
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id		path	int						true	"Service ID"
// @Param		request	body	UpdateServiceRequest	true	"Fields to change"
// @Success		200	{object}	ServiceResponse
// @Router		/dashboard/services/{id} [PATCH]
func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := pathID(c, "service")
	if !ok {
		return
	}
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	svc, err := h.service.UpdateService(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, svc)
}

// @Summary		Deactivate service
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Param		id	path	int	true	"Service ID"
// @Success		200	{object}	map[string]interface{}
// @Router		/dashboard/services/{id} [DELETE]
func (h *Handler) DeleteService(c *gin.Context) {
	id, ok := pathID(c, "service")
	if !ok {
		return
	}
	if err := h.service.DeleteService(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Service deactivated"})
}

// @Summary		Catalog statistics
// @Tags		Dashboard - Catalog
// @Security	BearerAuth
// @Success		200	{object}	ServiceStats
// @Router		/dashboard/services/stats [GET]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetServiceStats(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func pathID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}

func queryBool(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}
