package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/auth"
	"energy-market/energy-ledger-backend/internal/certdoc"
	"energy-market/energy-ledger-backend/internal/certification"
	"energy-market/energy-ledger-backend/internal/config"
	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/marketplace"
	"energy-market/energy-ledger-backend/internal/notifications/websocket"
	"energy-market/energy-ledger-backend/internal/registry"
	"energy-market/energy-ledger-backend/internal/token"
	"energy-market/energy-ledger-backend/internal/views"
)

// API holds every wired service and handler behind the HTTP surface.
type API struct {
	Registry      registry.Service
	Certification certification.Service
	Token         token.Service
	Marketplace   marketplace.Service
	Views         views.Service

	registryHandler      *registry.Handler
	certificationHandler *certification.Handler
	tokenHandler         *token.Handler
	marketplaceHandler   *marketplace.Handler
	viewsHandler         *views.Handler
	certdocHandler       *certdoc.Handler
	authHandler          *auth.Handler

	Notifications *websocket.Manager
}

// SetupAPI builds the full service graph on top of the shared ledger store.
func SetupAPI(store ledger.Store, cfg *config.Config, logger *zap.Logger) *API {
	manager := websocket.NewManager(logger)

	registrySvc := registry.NewService(store, logger, manager)
	tokenSvc := token.NewService(store, logger)
	certSvc := certification.NewService(store, logger, manager)
	marketSvc := marketplace.NewService(store, logger, manager, certSvc, cfg.Market.EscrowAddress)
	viewsSvc := views.NewService(store, logger, cfg.Views.StatsTTL)

	return &API{
		Registry:      registrySvc,
		Certification: certSvc,
		Token:         tokenSvc,
		Marketplace:   marketSvc,
		Views:         viewsSvc,

		registryHandler:      registry.NewHandler(registrySvc),
		certificationHandler: certification.NewHandler(certSvc),
		tokenHandler:         token.NewHandler(tokenSvc),
		marketplaceHandler:   marketplace.NewHandler(marketSvc),
		viewsHandler:         views.NewHandler(viewsSvc),
		certdocHandler:       certdoc.NewHandler(certSvc, registrySvc, certdoc.NewGenerator(certdoc.DefaultOptions())),
		authHandler:          auth.NewHandler(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),

		Notifications: manager,
	}
}

// RegisterRoutes mounts the API under /api/v1 and the websocket feed under /ws.
func RegisterRoutes(router *gin.Engine, api *API, cfg *config.Config) {
	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	authRequired := auth.Middleware(cfg.Auth.JWTSecret)

	root := router.Group("/api/v1")

	api.authHandler.RegisterRoutes(root.Group("/auth"))

	registryGroup := root.Group("/registry", authRequired)
	api.registryHandler.RegisterRoutes(registryGroup)

	certGroup := root.Group("/certification", authRequired)
	api.certificationHandler.RegisterRoutes(certGroup)

	tokenGroup := root.Group("/token", authRequired)
	api.tokenHandler.RegisterRoutes(tokenGroup)

	marketGroup := root.Group("/market", authRequired)
	api.marketplaceHandler.RegisterRoutes(marketGroup)

	// Read-only query surface stays public.
	viewsGroup := root.Group("/views")
	api.viewsHandler.RegisterRoutes(viewsGroup)
	api.certdocHandler.RegisterRoutes(viewsGroup)

	router.GET("/ws", func(c *gin.Context) {
		address := c.Query("address")
		if address == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
			return
		}
		if _, err := api.Notifications.HandleConnection(c.Writer, c.Request, address); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		}
	})

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
}
