package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/service"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	events   *EventHub
	log      *logger.Logger
}

func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, events: NewEventHub(), log: log}
}

// Events is the sink that feeds oven transitions to websocket clients.
func (h *Handler) Events() *EventHub {
	return h.events
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// State and event stream, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireOperator)
	{
		h.registerOvenRoutes(api)
		h.registerProfileRoutes(api)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerOvenRoutes(api *gin.RouterGroup) {
	ov := api.Group("/oven")
	{
		ov.GET("/state", h.getState)
		ov.GET("/recorded", h.getRecordedState)
		// Body example: {"profile":"cone6-glaze","start_at_minutes":0}
		ov.POST("/run", h.runProfile)
		ov.POST("/abort", h.abortFiring)
	}
}

func (h *Handler) registerProfileRoutes(api *gin.RouterGroup) {
	p := api.Group("/profiles")
	{
		p.GET("", h.listProfiles)
		p.GET("/:name", h.getProfile)
		p.POST("", h.saveProfile)
		// Body is a profile file document, same format as profiles/*.json.
		p.POST("/import", h.importProfile)
		p.DELETE("/:name", h.deleteProfile)
	}
}
