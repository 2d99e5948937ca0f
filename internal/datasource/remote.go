package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/linkboard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRemoteTimeout = 15 * time.Second
	maxErrorBodySize     = 64 * 1024
)

// RemoteConfig параметры подключения к бэкенду коротких ссылок
type RemoteConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Remote реализация ShortLinkDataSource поверх REST API бэкенда.
// Исходящие запросы ограничиваются token bucket, чтобы дашборд
// не выедал квоту API при активном обновлении видов.
type Remote struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewRemote(cfg RemoteConfig, logger *zap.Logger) *Remote {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 40
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Remote{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// linkDTO представление ссылки на проводе
type linkDTO struct {
	ID          string                `json:"id"`
	ShortCode   string                `json:"short_code"`
	ShortURL    string                `json:"short_url"`
	LongURL     string                `json:"long_url"`
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	QRCodeURL   string                `json:"qr_code_url,omitempty"`
	UTMParams   *models.UTMParameters `json:"utm_params,omitempty"`
	Active      *bool                 `json:"active,omitempty"`
	ClickCount  int64                 `json:"click_count"`
	CreatedAt   time.Time             `json:"created_at"`
}

func (d *linkDTO) toModel() *models.ShortLink {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &models.ShortLink{
		ID:          d.ID,
		ShortCode:   d.ShortCode,
		ShortURL:    d.ShortURL,
		LongURL:     d.LongURL,
		Title:       d.Title,
		Description: d.Description,
		QRCodeURL:   d.QRCodeURL,
		QREnabled:   d.QRCodeURL != "",
		UTM:         d.UTMParams,
		Active:      active,
		ClickCount:  d.ClickCount,
		CreatedAt:   d.CreatedAt,
	}
}

// createLinkBody тело создания: бэкенд ждёт поля внутри обёртки short_url
type createLinkBody struct {
	LongURL        string `json:"long_url"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	CustomBackHalf string `json:"custom_back_half,omitempty"`
	EnableUTM      bool   `json:"enable_utm,omitempty"`
	UTMSource      string `json:"utm_source,omitempty"`
	UTMMedium      string `json:"utm_medium,omitempty"`
	UTMCampaign    string `json:"utm_campaign,omitempty"`
	UTMTerm        string `json:"utm_term,omitempty"`
	UTMContent     string `json:"utm_content,omitempty"`
	QREnabled      bool   `json:"qr_enabled,omitempty"`
	QRColor        string `json:"qr_color,omitempty"`
}

type createLinkRequest struct {
	ShortURL createLinkBody `json:"short_url"`
}

type updateLinkBody struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type updateLinkRequest struct {
	ShortURL updateLinkBody `json:"short_url"`
}

type listLinksResponse struct {
	URLs        []linkDTO `json:"urls"`
	TotalLinks  int       `json:"total_links"`
	TotalClicks int64     `json:"total_clicks"`
	Page        int       `json:"page"`
}

func (r *Remote) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error) {
	body := createLinkBody{
		LongURL:     input.LongURL,
		Title:       input.Title,
		Description: input.Description,
	}
	if input.CustomBackHalf != nil {
		body.CustomBackHalf = *input.CustomBackHalf
	}
	if input.UTM.HasValues() {
		body.EnableUTM = true
		body.UTMSource = input.UTM.Source
		body.UTMMedium = input.UTM.Medium
		body.UTMCampaign = input.UTM.Campaign
		body.UTMTerm = input.UTM.Term
		body.UTMContent = input.UTM.Content
	}
	if input.QR != nil {
		body.QREnabled = true
		body.QRColor = input.QR.Color
	}

	var dto linkDTO
	if err := r.doJSON(ctx, http.MethodPost, "/short_links", createLinkRequest{ShortURL: body}, &dto); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

func (r *Remote) ListLinks(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error) {
	p = p.Normalized()
	path := fmt.Sprintf("/users/%s/urls?page=%d&per_page=%d",
		url.PathEscape(userID), p.Page, p.PageSize)

	var resp listLinksResponse
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]models.ShortLink, 0, len(resp.URLs))
	for i := range resp.URLs {
		items = append(items, *resp.URLs[i].toModel())
	}

	// total_pages всегда выводится из актуального PageSize вызова
	p.TotalLinks = resp.TotalLinks
	return &models.LinkPage{
		Items:       items,
		TotalLinks:  resp.TotalLinks,
		TotalClicks: resp.TotalClicks,
		Page:        resp.Page,
		PageSize:    p.PageSize,
		TotalPages:  p.TotalPages(),
	}, nil
}

func (r *Remote) UpdateLink(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error) {
	req := updateLinkRequest{ShortURL: updateLinkBody{
		Title:       input.Title,
		Description: input.Description,
		Active:      input.Active,
	}}

	var dto linkDTO
	if err := r.doJSON(ctx, http.MethodPut, "/short_urls/"+url.PathEscape(id), req, &dto); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

func (r *Remote) DeleteLink(ctx context.Context, id string) error {
	return r.doJSON(ctx, http.MethodDelete, "/short_urls/"+url.PathEscape(id), nil, nil)
}

func (r *Remote) FetchOverview(ctx context.Context, shortCode string) (*models.OverviewStats, error) {
	var stats models.OverviewStats
	if err := r.doJSON(ctx, http.MethodGet, "/analytics/"+url.PathEscape(shortCode), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Remote) FetchGeographic(ctx context.Context, shortCode string) (*models.GeographicStats, error) {
	var stats models.GeographicStats
	if err := r.doJSON(ctx, http.MethodGet, "/analytics/"+url.PathEscape(shortCode)+"/geographic", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Remote) FetchTechnology(ctx context.Context, shortCode string) (*models.TechnologyStats, error) {
	var stats models.TechnologyStats
	if err := r.doJSON(ctx, http.MethodGet, "/analytics/"+url.PathEscape(shortCode)+"/technology", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Remote) FetchConversions(ctx context.Context, shortCode string) (*models.ConversionStats, error) {
	var stats models.ConversionStats
	if err := r.doJSON(ctx, http.MethodGet, "/analytics/"+url.PathEscape(shortCode)+"/conversions", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Remote) FetchRealtime(ctx context.Context, shortCode string) (*models.RealtimeStats, error) {
	var stats models.RealtimeStats
	if err := r.doJSON(ctx, http.MethodGet, "/analytics/"+url.PathEscape(shortCode)+"/realtime", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *Remote) FetchPortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	var summary models.PortfolioSummary
	path := "/analytics/summary?user_id=" + url.QueryEscape(userID)
	if err := r.doJSON(ctx, http.MethodGet, path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *Remote) ExportFacet(ctx context.Context, shortCode, format string) ([]byte, string, error) {
	path := "/analytics/" + url.PathEscape(shortCode) + "/export?format=" + url.QueryEscape(format)

	resp, err := r.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", ClassifyAPIError(resp.StatusCode, data)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// do выполняет один HTTP-запрос к бэкенду с учётом исходящего лимита
func (r *Remote) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	r.logger.Debug("Backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// doJSON выполняет запрос и раскладывает JSON-ответ в out (out может быть nil)
func (r *Remote) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := r.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrNetwork, readErr)
		}
		return ClassifyAPIError(resp.StatusCode, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response (%s): %w", strconv.Quote(method+" "+path), err)
	}
	return nil
}
