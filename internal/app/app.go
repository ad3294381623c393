// Package app assembles repositories, services and handlers into the HTTP
// router served by cmd/api.
package app

import (
	"net/http"

	"repairhub/internal/config"
	"repairhub/internal/guard"
	"repairhub/internal/middleware"
	"repairhub/internal/modules/auth"
	"repairhub/internal/modules/catalog"
	"repairhub/internal/modules/inventory"
	"repairhub/internal/modules/users"
	jwtsvc "repairhub/internal/pkg/jwt"
	"repairhub/internal/rbac"
	"repairhub/internal/repository"
	"repairhub/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
	// Google is nil when Google sign-in is disabled.
	Google auth.IdentityProvider
	// Mailer defaults to logging links.
	Mailer auth.Mailer
}

type App struct {
	Router *gin.Engine
	Hub    *session.Hub
	Tokens *jwtsvc.Service
}

func New(opts Options) *App {
	cfg, db, zl := opts.Config, opts.DB, opts.Logger
	if zl == nil {
		zl = zap.NewNop()
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = auth.NewLogMailer(zl.Named("mailer"))
	}

	accountRepo := repository.NewAccountRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	magicLinkRepo := repository.NewMagicLinkRepository(db)

	j := jwtsvc.New(cfg.SessionSecret, cfg.SessionTTL)
	g := guard.New(accountRepo, zl.Named("guard"))
	hub := session.NewHub(accountRepo, cfg.SessionTTL, zl.Named("session"))

	authService := auth.NewService(accountRepo, magicLinkRepo, j, mailer, opts.Google, auth.Config{
		MagicLinkTTL:    cfg.MagicLinkTTL,
		MagicLinkPepper: cfg.MagicLinkPepper,
		PublicBaseURL:   cfg.PublicBaseURL,
	}, zl.Named("auth"))
	authHandler := auth.NewHandler(authService, hub, auth.HandlerConfig{
		SessionTTL:     cfg.SessionTTL,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
		CookieDomain:   cfg.CookieDomain,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, zl)

	usersService := users.NewService(accountRepo, g, hub, zl.Named("users"))
	usersHandler := users.NewHandler(usersService, zl)

	cache := catalog.NewCache(cfg.CatalogCacheSize, cfg.CatalogCacheTTL)
	catalogService := catalog.NewService(catalogRepo, g, cache, zl.Named("catalog"))
	catalogHandler := catalog.NewHandler(catalogService, zl)

	inventoryService := inventory.NewService(inventoryRepo, accountRepo, catalogRepo, g, zl.Named("inventory"))
	inventoryHandler := inventory.NewHandler(inventoryService, zl)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(zl),
		middleware.ErrorLogger(zl),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online_sessions": hub.OnlineCount()})
	})

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("")
		authHandler.RegisterRoutes(public)

		me := v1.Group("/me")
		me.Use(middleware.RequireSession(j))

		dashboard := v1.Group("/dashboard")
		dashboard.Use(middleware.RequireSession(j), middleware.RequireLevel(accountRepo, rbac.Staff))

		usersHandler.RegisterRoutes(me, dashboard)
		catalogHandler.RegisterRoutes(public, dashboard)
		inventoryHandler.RegisterRoutes(me, dashboard)
	}

	return &App{Router: r, Hub: hub, Tokens: j}
}
