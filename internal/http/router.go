package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/civiclink/backend/internal/config"
	"github.com/civiclink/backend/internal/http/handlers"
	"github.com/civiclink/backend/internal/http/middleware"

	_ "github.com/civiclink/backend/docs"
)

func Router(cfg config.Config, h *handlers.Handler, gatherer prometheus.Gatherer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadBytes() + 1<<20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader, "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Healthz)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	api := r.Group("/api")
	{
		api.POST("/reports", h.SubmitReport)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/stream", h.StreamReport)
		api.GET("/users/:userId/reports", h.UserReports)
		api.GET("/departments", h.DepartmentsList)
		api.GET("/states", h.States)
		api.GET("/states/:state/zones", h.Zones)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey, logger))
	{
		admin.PUT("/departments", h.UpsertDepartment)
		admin.GET("/debug/candidates", h.DebugCandidates)
		admin.POST("/followups/run", h.RunFollowups)
		admin.GET("/followups/latest", h.LatestFollowupRun)
		admin.GET("/ai/health", h.AIHealth)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
