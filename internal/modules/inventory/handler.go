package inventory

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

func (h *Handler) RegisterRoutes(me, dashboard *gin.RouterGroup) {
	if me != nil {
		me.GET("/devices", h.ListMyDevices)
	}

	if dashboard != nil {
		dashboard.GET("/devices", h.ListDevices)
		dashboard.POST("/devices", h.RegisterDevice)
		dashboard.GET("/devices/:id", h.GetDevice)
		dashboard.PATCH("/devices/:id", h.UpdateDevice)
		dashboard.POST("/devices/:id/parts", h.AddPart)
		dashboard.POST("/devices/:id/repairs", h.AddRepairEntry)
		dashboard.GET("/parts/:id/movements", h.GetPartMovements)
		dashboard.POST("/parts/:id/movements", h.RecordMovement)
		dashboard.GET("/inventory/stats", h.GetStats)
	}
}

// @Summary		List devices
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		search		query	string	false	"Brand, model or serial substring"
// @Param		customer_id	query	int		false	"Owner"
// @Param		type		query	string	false	"LAPTOP, DESKTOP or PRINTER"
// @Param		page		query	int		false	"Page (default 1)"
// @Param		limit		query	int		false	"Page size (default 20, max 100)"
// @Success		200	{object}	DeviceList
// @Router		/dashboard/devices [GET]
func (h *Handler) ListDevices(c *gin.Context) {
	f := DeviceFilter{Search: c.Query("search")}
	if v, err := strconv.ParseInt(c.Query("customer_id"), 10, 64); err == nil {
		f.CustomerID = &v
	}
	if t := domain.DeviceType(c.Query("type")); t.Valid() {
		f.Type = &t
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.service.ListDevices(c.Request.Context(), middleware.AccountID(c), f, page, limit)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// @Summary		Get device
// @Description	Device with its parts and repair history.
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id	path	int	true	"Device ID"
// @Success		200	{object}	DeviceResponse
// @Router		/dashboard/devices/{id} [GET]
func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := pathID(c, "device")
	if !ok {
		return
	}
	d, err := h.service.GetDevice(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// @Summary		Register device
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		request	body	RegisterDeviceRequest	true	"Device"
// @Success		201	{object}	DeviceResponse
// @Failure		409	{object}	map[string]interface{} "Serial number already registered"
// @Router		/dashboard/devices [POST]
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	d, err := h.service.RegisterDevice(c.Request.Context(), middleware.AccountID(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

// @Summary		Update device
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id		path	int					true	"Device ID"
// @Param		request	body	UpdateDeviceRequest	true	"Fields to change"
// @Success		200	{object}	DeviceResponse
// @Router		/dashboard/devices/{id} [PATCH]
func (h *Handler) UpdateDevice(c *gin.Context) {
	id, ok := pathID(c, "device")
	if !ok {
		return
	}
	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	d, err := h.service.UpdateDevice(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// @Summary		Add part
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id		path	int				true	"Device ID"
// @Param		request	body	AddPartRequest	true	"Part"
// @Success		201	{object}	PartResponse
// @Router		/dashboard/devices/{id}/parts [POST]
func (h *Handler) AddPart(c *gin.Context) {
	id, ok := pathID(c, "device")
	if !ok {
		return
	}
	var req AddPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	p, err := h.service.AddPart(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

// @Summary		Record stock movement
// @Description	IN and OUT change the stock by quantity; ADJUSTMENT sets it. OUT beyond the stock on hand fails with 409.
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id		path	int						true	"Part ID"
// @Param		request	body	RecordMovementRequest	true	"Movement"
// @Success		201	{object}	MovementResult
// @Failure		409	{object}	map[string]interface{}
// @Router		/dashboard/parts/{id}/movements [POST]
func (h *Handler) RecordMovement(c *gin.Context) {
	id, ok := pathID(c, "part")
	if !ok {
		return
	}
	var req RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	res, err := h.service.RecordMovement(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// @Summary		Part stock ledger
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id	path	int	true	"Part ID"
// @Success		200	{object}	[]MovementResponse
// @Router		/dashboard/parts/{id}/movements [GET]
func (h *Handler) GetPartMovements(c *gin.Context) {
	id, ok := pathID(c, "part")
	if !ok {
		return
	}
	moves, err := h.service.GetPartMovements(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"movements": moves})
}

// @Summary		Add repair history entry
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Param		id		path	int					true	"Device ID"
// @Param		request	body	AddRepairRequest	true	"Repair"
// @Success		201	{object}	RepairResponse
// @Router		/dashboard/devices/{id}/repairs [POST]
func (h *Handler) AddRepairEntry(c *gin.Context) {
	id, ok := pathID(c, "device")
	if !ok {
		return
	}
	var req AddRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	r, err := h.service.AddRepairEntry(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

// @Summary		Inventory statistics
// @Tags		Dashboard - Inventory
// @Security	BearerAuth
// @Success		200	{object}	InventoryStats
// @Failure		403	{object}	map[string]interface{} "Administrators only"
// @Router		/dashboard/inventory/stats [GET]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetInventoryStats(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// @Summary		My devices
// @Tags		Profile
// @Security	BearerAuth
// @Success		200	{object}	[]DeviceResponse
// @Router		/me/devices [GET]
func (h *Handler) ListMyDevices(c *gin.Context) {
	devices, err := h.service.ListMyDevices(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"devices": devices})
}

func pathID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}
