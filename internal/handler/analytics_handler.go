package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/middleware"
	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/qr"
	"github.com/SergeiKhy/linkboard/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	analytics service.AnalyticsService
	qr        *qr.Provider
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics service.AnalyticsService, qrProvider *qr.Provider, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{
		analytics: analytics,
		qr:        qrProvider,
		logger:    logger,
	}
}

// FacetSection один фасет в ответе: либо данные, либо ошибка секции
type FacetSection struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// GetAnalytics godoc
// @Summary All analytics facets for a link
// @Description Facets resolve independently: a failed facet carries a
// per-section error while the others keep their data.
// @Tags analytics
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]FacetSection
// @Router /api/v1/links/{code}/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	code := c.Param("code")
	snap := h.analytics.FetchAll(c.Request.Context(), code)

	c.JSON(http.StatusOK, gin.H{
		string(models.FacetOverview):   section(snap.Overview, snap.OverviewErr),
		string(models.FacetGeographic): section(snap.Geographic, snap.GeographicErr),
		string(models.FacetTechnology): section(snap.Technology, snap.TechnologyErr),
		string(models.FacetConversion): section(snap.Conversion, snap.ConversionErr),
		string(models.FacetRealtime):   section(snap.Realtime, snap.RealtimeErr),
	})
}

// GetFacet godoc
// @Summary One analytics facet for a link
// @Tags analytics
// @Produce json
// @Param code path string true "Short code"
// @Param facet path string true "overview|geographic|technology|conversions|realtime"
// @Success 200 {object} FacetSection
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code}/analytics/{facet} [get]
func (h *AnalyticsHandler) GetFacet(c *gin.Context) {
	code := c.Param("code")

	facet, ok := models.ParseFacet(c.Param("facet"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_facet",
			Message: fmt.Sprintf("Неизвестный фасет %q", c.Param("facet")),
		})
		return
	}

	data, err := h.analytics.FetchFacet(c.Request.Context(), code, facet)
	if err != nil {
		h.respondFacetError(c, code, facet, err)
		return
	}

	c.JSON(http.StatusOK, FacetSection{Data: data})
}

// ExportAnalytics godoc
// @Summary Export link analytics as a file download
// @Tags analytics
// @Produce octet-stream
// @Param code path string true "Short code"
// @Param format query string false "Export format" default(csv)
// @Success 200 {string} string "binary stream"
// @Router /api/v1/links/{code}/analytics/export [get]
func (h *AnalyticsHandler) ExportAnalytics(c *gin.Context) {
	code := c.Param("code")
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.analytics.Export(c.Request.Context(), code, format)
	if err != nil {
		h.respondFacetError(c, code, "export", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-analytics.%s", code, format))
	c.Data(http.StatusOK, contentType, data)
}

// GetPortfolioSummary godoc
// @Summary Aggregate analytics over all of the user's links
// @Tags analytics
// @Produce json
// @Success 200 {object} models.PortfolioSummary
// @Router /api/v1/analytics/summary [get]
func (h *AnalyticsHandler) GetPortfolioSummary(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Требуется сессия"})
		return
	}

	summary, err := h.analytics.PortfolioSummary(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to fetch portfolio summary", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "fetch_failed", Message: "Не удалось получить сводку портфеля"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// QRPreview godoc
// @Summary QR image URL for a short link
// @Description Pure derivation against the image service; malformed style
// falls back to defaults.
// @Tags qr
// @Produce json
// @Param url query string true "Short URL"
// @Param color query string false "Hex color without #"
// @Param size query int false "Size in px"
// @Success 200 {object} map[string]string
// @Router /api/v1/qr/preview [get]
func (h *AnalyticsHandler) QRPreview(c *gin.Context) {
	shortURL := c.Query("url")
	if shortURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing_url", Message: "Параметр url обязателен"})
		return
	}

	var query struct {
		Color string `form:"color"`
		Size  int    `form:"size"`
	}
	_ = c.ShouldBindQuery(&query)

	c.JSON(http.StatusOK, gin.H{
		"image_url": h.qr.ImageURL(shortURL, qr.Style{Color: query.Color, SizePx: query.Size}),
	})
}

func (h *AnalyticsHandler) respondFacetError(c *gin.Context, code string, facet any, err error) {
	switch {
	case errors.Is(err, datasource.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Ссылка не найдена"})
	case errors.Is(err, service.ErrSuperseded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "superseded", Message: "Результат вытеснен более новым запросом"})
	case errors.Is(err, datasource.ErrInvalidField):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
	default:
		h.logger.Warn("Facet request failed",
			zap.String("short_code", code),
			zap.Any("facet", facet),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "fetch_failed", Message: "Не удалось получить аналитику"})
	}
}

func section(data any, err error) FacetSection {
	if err != nil {
		return FacetSection{Error: err.Error()}
	}
	return FacetSection{Data: data}
}
