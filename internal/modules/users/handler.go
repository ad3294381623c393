package users

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
		me.GET("", h.GetMyProfile)
		me.PATCH("", h.UpdateMyProfile)
	}

	if dashboard != nil {
		dashboard.GET("/users", h.GetUsers)
		dashboard.POST("/users", h.CreateUser)
		dashboard.GET("/users/stats", h.GetStats)
		dashboard.GET("/users/:id", h.GetUser)
		dashboard.PATCH("/users/:id", h.UpdateUser)
		dashboard.DELETE("/users/:id", h.HardDeleteUser)
		dashboard.POST("/users/:id/deactivate", h.SoftDeleteUser)
		dashboard.POST("/users/:id/restore", h.RestoreUser)
		dashboard.POST("/users/:id/toggle-status", h.ToggleStatus)
	}
}

// GetUsers lists accounts for the dashboard.
// @Summary		List users
// @Description	Paginated account list with per-row actions. Staff below administrator only see customers.
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		search			query	string	false	"Name, email or phone substring"
// @Param		is_staff		query	bool	false	"Staff accounts only / customers only"
// @Param		is_active		query	bool	false	"Active flag"
// @Param		blocked			query	bool	false	"Blocked flag"
// @Param		staff_role		query	string	false	"ADMINISTRATOR, TECHNICIAN or RECEPTIONIST"
// @Param		customer_role	query	string	false	"INDIVIDUAL or COMPANY"
// @Param		page			query	int		false	"Page (default 1)"
// @Param		limit			query	int		false	"Page size (default 20, max 100)"
// @Success		200	{object}	UserList
// @Failure		403	{object}	map[string]interface{}
// @Router		/dashboard/users [GET]
func (h *Handler) GetUsers(c *gin.Context) {
	f := UserFilter{
		Search:   c.Query("search"),
		IsStaff:  queryBool(c, "is_staff"),
		IsActive: queryBool(c, "is_active"),
		Blocked:  queryBool(c, "blocked"),
	}
	if v := c.Query("staff_role"); v != "" {
		r := domain.StaffRole(v)
		f.StaffRole = &r
	}
	if v := c.Query("customer_role"); v != "" {
		r := domain.CustomerRole(v)
		f.CustomerRole = &r
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.service.GetUserList(c.Request.Context(), middleware.AccountID(c), f, page, limit)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// GetUser returns one account with its profile.
// @Summary		Get user
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	UserResponse
// @Failure		404	{object}	map[string]interface{}
// @Router		/dashboard/users/{id} [GET]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.service.GetUserWithProfile(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// CreateUser creates an account together with its profile.
// @Summary		Create user
// @Description	Administrators create staff; staff may create customers. ADMINISTRATOR staff become superusers.
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		request	body	CreateUserRequest	true	"Account and profile"
// @Success		201	{object}	UserResponse
// @Failure		400	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{} "Email already in use"
// @Router		/dashboard/users [POST]
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	u, err := h.service.CreateUser(c.Request.Context(), middleware.AccountID(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, u)
}

// UpdateUser applies a partial update.
// @Summary		Update user
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id		path	int					true	"User ID"
// @Param		request	body	UpdateUserRequest	true	"Fields to change"
// @Success		200	{object}	UserResponse
// @Router		/dashboard/users/{id} [PATCH]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	u, err := h.service.UpdateUser(c.Request.Context(), middleware.AccountID(c), id, req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// SoftDeleteUser deactivates and blocks an account.
// @Summary		Deactivate user
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	map[string]interface{}
// @Router		/dashboard/users/{id}/deactivate [POST]
func (h *Handler) SoftDeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.SoftDeleteUser(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "User deactivated"})
}

// RestoreUser reactivates a deactivated account.
// @Summary		Restore user
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	UserResponse
// @Router		/dashboard/users/{id}/restore [POST]
func (h *Handler) RestoreUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.service.RestoreUser(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// @Summary		Toggle user status
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	UserResponse
// @Router		/dashboard/users/{id}/toggle-status [POST]
func (h *Handler) ToggleStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.service.ToggleUserStatus(c.Request.Context(), middleware.AccountID(c), id)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// HardDeleteUser permanently removes an account and everything it owns.
// @Summary		Delete user permanently
// @Description	Administrators only. Cannot be undone.
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{}
// @Router		/dashboard/users/{id} [DELETE]
func (h *Handler) HardDeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.HardDeleteUser(c.Request.Context(), middleware.AccountID(c), id); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "User deleted"})
}

// @Summary		User statistics
// @Tags		Dashboard - Users
// @Security	BearerAuth
// @Success		200	{object}	UserStats
// @Failure		403	{object}	map[string]interface{} "Administrators only"
// @Router		/dashboard/users/stats [GET]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetUserStats(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// @Summary		My profile
// @Tags		Profile
// @Security	BearerAuth
// @Success		200	{object}	UserResponse
// @Router		/me [GET]
func (h *Handler) GetMyProfile(c *gin.Context) {
	u, err := h.service.GetMyProfile(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// @Summary		Update my profile
// @Tags		Profile
// @Security	BearerAuth
// @Param		request	body	UpdateMyProfileRequest	true	"Fields to change"
// @Success		200	{object}	UserResponse
// @Router		/me [PATCH]
func (h *Handler) UpdateMyProfile(c *gin.Context) {
	var req UpdateMyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	u, err := h.service.UpdateMyProfile(c.Request.Context(), middleware.AccountID(c), req)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
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
