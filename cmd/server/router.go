package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/batchmind/docs"
	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
	"github.com/ZanzyTHEbar/batchmind/internal/security"
)

func setupRouter(a *application) *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(apperrors.RecoveryHandler())
	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(monitoring.PrometheusMiddleware())
	r.Use(apperrors.ErrorHandler())
	r.Use(security.SecurityHeadersMiddleware(a.cfg.Server.EnableHSTS))
	r.Use(security.CORSMiddleware(a.cfg.Server.CORSOrigins))
	r.Use(a.compression.Handler())

	r.GET("/health", a.health)
	r.GET("/metrics", monitoring.PrometheusHandler())
	r.GET("/stats", a.stats)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(a.limiter.IPRateLimitMiddleware())
	api.Use(security.RequireJSON())
	api.Use(security.MaxBodySize(security.DefaultMaxBodyBytes))
	{
		api.GET("/parameters", a.parameters)
		api.GET("/history", a.listHistory)
		api.GET("/audit", a.auditLog)
		api.GET("/alerts", a.listAlerts)
		api.POST("/alerts/:id/silence", a.silenceAlert)

		scoring := api.Group("/batches", security.RequestTimeout(a.cfg.Server.RequestTimeout))
		scoring.POST("/score", a.scoreBatch)
		scoring.POST("/simulate", a.simulateBatch)

		live := api.Group("/live")
		live.GET("", a.liveStatus)
		live.POST("/start", a.liveStart)
		live.POST("/stop", a.liveStop)
		live.GET("/ws", a.wsHandler.ServeWS)
	}

	return r
}
