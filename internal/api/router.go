package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/acca-builder/internal/api/handlers"
	"github.com/stitts-dev/acca-builder/internal/api/middleware"
	"github.com/stitts-dev/acca-builder/internal/services"
	"github.com/stitts-dev/acca-builder/internal/websocket"
	"github.com/stitts-dev/acca-builder/pkg/config"
)

// Dependencies are the wired services the HTTP layer serves.
type Dependencies struct {
	Config  *config.Config
	Tickets *services.TicketService
	Archive *services.ArchiveService
	Hub     *websocket.Hub
	Cache   handlers.BreakerState // nil when sessions live in memory
	Logger  *logrus.Logger
}

// NewRouter builds the gin engine with middleware, health, websocket and the
// versioned API.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))

	var clients handlers.ConnectionCounter
	if deps.Hub != nil {
		clients = deps.Hub
		router.GET("/ws", middleware.OptionalAuth(deps.Config.JWTSecret), deps.Hub.HandleWebSocket)
	}

	healthHandler := handlers.NewHealthHandler(deps.Cache, clients)
	router.GET("/health", healthHandler.GetHealth)

	v1 := router.Group("/api/v1")
	SetupRoutes(v1, deps)

	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	ticketHandler := handlers.NewTicketHandler(deps.Tickets, deps.Config)
	archiveHandler := handlers.NewArchiveHandler(deps.Tickets, deps.Archive, deps.Config)

	limiter := middleware.NewIPRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst)

	group.Use(middleware.OptionalAuth(deps.Config.JWTSecret))

	// Ticket sessions
	tickets := group.Group("/tickets")
	{
		tickets.POST("", middleware.RateLimit(limiter), ticketHandler.GenerateTicket)
		tickets.GET("/:id", ticketHandler.GetTicket)
		tickets.DELETE("/:id", ticketHandler.DiscardTicket)
		tickets.GET("/:id/pool", ticketHandler.GetPool)
		tickets.DELETE("/:id/legs/:index", ticketHandler.RemoveLeg)
		tickets.POST("/:id/legs/:index/swap", middleware.RateLimit(limiter), ticketHandler.SwapLeg)
		tickets.POST("/:id/place", archiveHandler.PlaceTicket)
	}

	group.POST("/singles", archiveHandler.PlaceSingle)

	// Slip history
	group.GET("/archive", archiveHandler.ListArchive)
	group.DELETE("/archive", archiveHandler.ClearArchive)
}
