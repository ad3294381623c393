package auth

import (
	"net/http"
	"strings"
	"time"

	"repairhub/internal/middleware"
	"repairhub/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
	wsReadLimit      = 512
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
)

type HandlerConfig struct {
	SessionTTL     time.Duration
	CookieSecure   bool
	CookieSameSite string
	CookieDomain   string
	// AfterLoginURL is where browser sign-in flows land.
	AfterLoginURL  string
	AllowedOrigins []string
}

type Handler struct {
	service  *Service
	hub      SessionHub
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(service *Service, hub SessionHub, cfg HandlerConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AfterLoginURL == "" {
		cfg.AfterLoginURL = "/"
	}
	h := &Handler{service: service, hub: hub, cfg: cfg, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	g := v1.Group("/auth")
	{
		g.GET("/google/login", h.GoogleLogin)
		g.GET("/google/callback", h.GoogleCallback)
		g.POST("/email", h.RequestMagicLink)
		g.GET("/email/verify", h.VerifyMagicLink)
		g.GET("/session", h.GetSession)
		g.POST("/logout", h.Logout)
		g.GET("/session/ws", h.SessionSocket)
	}
}

// GoogleLogin redirects to Google's consent screen.
// @Summary		Start Google sign-in
// @Tags		Auth
// @Success		302
// @Failure		404	{object}	map[string]interface{} "Google sign-in is not configured"
// @Router		/auth/google/login [GET]
func (h *Handler) GoogleLogin(c *gin.Context) {
	state, nonce := uuid.NewString(), uuid.NewString()
	target, err := h.service.GoogleLoginURL(state, nonce)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state+"."+nonce, oauthStateMaxAge, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback finishes Google sign-in and sets the session cookie.
// @Summary		Google sign-in callback
// @Tags		Auth
// @Param		state	query	string	true	"State issued by /auth/google/login"
// @Param		code	query	string	true	"Authorization code"
// @Success		302
// @Failure		400	{object}	map[string]interface{}
// @Failure		403	{object}	map[string]interface{} "Sign-in refused"
// @Router		/auth/google/callback [GET]
func (h *Handler) GoogleCallback(c *gin.Context) {
	stored, _ := c.Cookie(oauthStateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)

	state, nonce, ok := strings.Cut(stored, ".")
	if !ok || state == "" || state != c.Query("state") {
		response.Error(c, http.StatusBadRequest, "INVALID_STATE", "Sign-in request expired, please try again")
		return
	}

	result, err := h.service.CompleteGoogleLogin(c.Request.Context(), c.Query("code"), nonce)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.Redirect(http.StatusFound, h.cfg.AfterLoginURL)
}

// RequestMagicLink emails a sign-in link.
// @Summary		Request a magic link
// @Description	Always answers 202 for a well-formed address, whether or not a link was sent.
// @Tags		Auth
// @Param		request	body	MagicLinkRequest	true	"Email address"
// @Success		202	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Router		/auth/email [POST]
func (h *Handler) RequestMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.service.RequestMagicLink(c.Request.Context(), req); err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"message": "Check your inbox for a sign-in link"})
}

// VerifyMagicLink signs the link's owner in and sets the session cookie.
// @Summary		Follow a magic link
// @Tags		Auth
// @Param		token	query	string	true	"Token from the emailed link"
// @Success		302
// @Failure		403	{object}	map[string]interface{} "Link invalid, expired, used, or account disabled"
// @Router		/auth/email/verify [GET]
func (h *Handler) VerifyMagicLink(c *gin.Context) {
	result, err := h.service.VerifyMagicLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.Redirect(http.StatusFound, h.cfg.AfterLoginURL)
}

// GetSession returns the caller's session, reloaded from the store.
// @Summary		Current session
// @Tags		Auth
// @Success		200	{object}	SessionResponse
// @Router		/auth/session [GET]
func (h *Handler) GetSession(c *gin.Context) {
	token, _ := middleware.SessionToken(c)
	sess, err := h.service.CurrentSession(c.Request.Context(), token)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, SessionResponse{Session: sess})
}

// Logout clears the session cookie and drops the account's live session feed.
// @Summary		Sign out
// @Tags		Auth
// @Success		204
// @Router		/auth/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	if token, _ := middleware.SessionToken(c); token != "" && h.hub != nil {
		if claims, err := h.service.tokens.ValidateToken(token); err == nil {
			h.hub.Unregister(claims.AccountID)
		}
	}

	c.SetSameSite(parseSameSite(h.cfg.CookieSameSite))
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
	c.Status(http.StatusNoContent)
}

// SessionSocket streams the caller's session view over a websocket. The
// token comes from the cookie, the Authorization header or ?token=.
// @Summary		Live session feed
// @Tags		Auth
// @Param		token	query	string	false	"Session token when cookies are unavailable"
// @Success		101
// @Failure		401	{object}	map[string]interface{}
// @Router		/auth/session/ws [GET]
func (h *Handler) SessionSocket(c *gin.Context) {
	token, _ := middleware.SessionToken(c)
	if token == "" {
		token = c.Query("token")
	}

	sess, err := h.service.CurrentSession(c.Request.Context(), token)
	if err != nil {
		response.FromError(c, h.log, err)
		return
	}
	if sess == nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Session expired or invalid")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	accountID := sess.User.ID
	st := h.hub.Register(accountID, conn, sess)
	defer h.hub.Release(accountID, st)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, done)

	// incoming messages are ignored; reading only processes control frames
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(parseSameSite(h.cfg.CookieSameSite))
	c.SetCookie(middleware.SessionCookieName, token, int(h.cfg.SessionTTL.Seconds()), "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host)
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
