package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/contract_approval/backend/internal/app"
	"github.com/contract_approval/backend/internal/http/handlers"
	"github.com/contract_approval/backend/internal/http/middleware"

	_ "github.com/contract_approval/backend/docs"
)

func Router(a *app.App, logger zerolog.Logger) *gin.Engine {
	cfg := a.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id", handlers.SessionHeader},
		ExposeHeaders:    []string{handlers.SessionHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := cfg.CORSOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Assistant:   a.Assistant,
		Sessions:    a.Sessions,
		Locker:      a.Locker,
		PolicyPath:  cfg.PolicyFile,
		TurnTimeout: cfg.RequestTimeout,
		Validator:   validator.New(),
		Logger:      logger,
	}
	if a.Store != nil {
		h.Evaluations = a.Store
	}

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	chat := r.Group("/chat")
	{
		chat.POST("", h.Chat)
		chat.POST("/stream", h.ChatStream)
		chat.POST("/events", h.ChatEvents)
		chat.DELETE("/:id", h.ResetSession)
	}

	api := r.Group("/api")
	api.GET("/policy", h.Policy)

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/evaluations", h.EvaluationsList)
		admin.GET("/evaluations/:id", h.EvaluationDetails)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
