package handler

import (
	"net/http"
	"time"

	"github.com/SergeiKhy/linkboard/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps зависимости роутера дашборда
type RouterDeps struct {
	Links       *LinkHandler
	Analytics   *AnalyticsHandler
	RateLimiter *middleware.RateLimiter
	JWTSecret   []byte
	Logger      *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Логгирование запросов
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})

	v1 := router.Group("/api/v1")
	v1.GET("/health", HealthCheck)

	// Все рабочие эндпоинты требуют сессию; лимитер ключуется по её identity
	authed := v1.Group("")
	authed.Use(middleware.RequireSession(deps.JWTSecret))
	if deps.RateLimiter != nil {
		authed.Use(deps.RateLimiter.Middleware())
	}

	authed.POST("/links", deps.Links.CreateLink)
	authed.GET("/links", deps.Links.ListLinks)
	authed.PATCH("/links/:id", deps.Links.UpdateLink)
	authed.DELETE("/links/:id", deps.Links.DeleteLink)

	authed.GET("/links/:code/analytics", deps.Analytics.GetAnalytics)
	authed.GET("/links/:code/analytics/export", deps.Analytics.ExportAnalytics)
	authed.GET("/links/:code/analytics/:facet", deps.Analytics.GetFacet)
	authed.GET("/analytics/summary", deps.Analytics.GetPortfolioSummary)
	authed.GET("/qr/preview", deps.Analytics.QRPreview)

	return router
}

// HealthCheck godoc
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
