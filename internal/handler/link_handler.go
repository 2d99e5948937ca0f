package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/middleware"
	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/repository"
	"github.com/SergeiKhy/linkboard/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service service.LinkService
	repo    repository.LinkRepository
	logger  *zap.Logger
}

func NewLinkHandler(linkService service.LinkService, repo repository.LinkRepository, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		service: linkService,
		repo:    repo,
		logger:  logger,
	}
}

type CreateLinkRequest struct {
	LongURL        string                `json:"long_url"`
	Title          string                `json:"title,omitempty"`
	Description    string                `json:"description,omitempty"`
	CustomBackHalf string                `json:"custom_back_half,omitempty"`
	UTM            *models.UTMParameters `json:"utm_params,omitempty"`
	QR             *models.QRStyle       `json:"qr_style,omitempty"`
}

type CreateLinkResponse struct {
	Link *models.ShortLink `json:"link"`
	// FinalURL предпросмотр целевого URL с UTM-декорацией
	FinalURL string `json:"final_url"`
}

type ListLinksResponse struct {
	*models.LinkPage
	// Stale true, когда показана последняя удачная страница при отказе чтения
	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateLink godoc
// @Summary Create a short link
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} CreateLinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateLinkInput{
		LongURL:     req.LongURL,
		Title:       req.Title,
		Description: req.Description,
		UTM:         req.UTM,
		QR:          req.QR,
	}
	if req.CustomBackHalf != "" {
		input.CustomBackHalf = &req.CustomBackHalf
	}

	link, err := h.service.CreateShortLink(c.Request.Context(), input)
	if err != nil {
		h.respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		Link:     link,
		FinalURL: h.service.FinalURL(link.LongURL, link.UTM),
	})
}

// ListLinks godoc
// @Summary List the user's short links
// @Tags links
// @Produce json
// @Param page query int false "Page (1-indexed)"
// @Param per_page query int false "Page size"
// @Success 200 {object} ListLinksResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Требуется сессия"})
		return
	}

	var query struct {
		Page    int `form:"page"`
		PerPage int `form:"per_page"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	pagination := models.Pagination{Page: query.Page, PageSize: query.PerPage}.Normalized()

	var (
		page *models.LinkPage
		err  error
	)
	if query.Page == 0 {
		// запрос без явной страницы — загрузка при монтировании дашборда;
		// она срабатывает один раз на сессию даже при конкурентных повторax
		page, _, err = h.repo.EnsureInitialLoad(c.Request.Context(), userID, pagination)
	} else {
		page, err = h.repo.List(c.Request.Context(), userID, pagination)
	}

	if err != nil {
		if page != nil {
			// показываем прежние данные рядом с ошибкой, а не пустой экран
			c.JSON(http.StatusOK, ListLinksResponse{LinkPage: page, Stale: true, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to list links", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "fetch_failed", Message: "Не удалось получить список ссылок"})
		return
	}
	if page == nil {
		page = &models.LinkPage{Items: []models.ShortLink{}, Page: pagination.Page, PageSize: pagination.PageSize}
	}

	c.JSON(http.StatusOK, ListLinksResponse{LinkPage: page})
}

// UpdateLink godoc
// @Summary Partially update a short link
// @Description Only title, description and active can change after creation
// @Tags links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} models.ShortLink
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [patch]
func (h *LinkHandler) UpdateLink(c *gin.Context) {
	id := c.Param("id")

	var req models.UpdateLinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	link, err := h.repo.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, datasource.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Ссылка не найдена"})
			return
		}
		h.logger.Error("Failed to update link", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "update_failed", Message: "Не удалось обновить ссылку"})
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeleteLink godoc
// @Summary Delete a short link
// @Tags links
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	id := c.Param("id")

	err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, datasource.ErrNotFound) {
			// повторное удаление сообщается, локальное состояние уже согласовано
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Ссылка не найдена"})
			return
		}
		h.logger.Error("Failed to delete link", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "delete_failed", Message: "Не удалось удалить ссылку"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ссылка удалена"})
}

func (h *LinkHandler) respondCreateError(c *gin.Context, err error) {
	var serverErr *datasource.ServerError

	switch {
	case errors.Is(err, service.ErrEmptyDestination):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty_destination", Message: "Целевой URL обязателен"})
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_url", Message: "Целевой URL должен быть абсолютным"})
	case errors.Is(err, service.ErrInvalidBackHalf):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_back_half", Message: "Back-half: 3-50 символов, латиница, цифры, - и _"})
	case errors.Is(err, service.ErrAlreadyTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already_taken", Message: "Такой back-half уже занят"})
	case errors.As(err, &serverErr):
		h.logger.Error("Backend rejected link creation", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "server_rejected", Message: serverErr.Message})
	case errors.Is(err, datasource.ErrNetwork):
		h.logger.Error("Backend unreachable", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "network_error", Message: "Бэкенд недоступен"})
	default:
		h.logger.Error("Failed to create link", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Не удалось создать ссылку"})
	}
}
