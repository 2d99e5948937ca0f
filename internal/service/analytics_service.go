package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/repository"
	"go.uber.org/zap"
)

// ErrSuperseded результат фасета устарел: за время запроса
// по тому же (ссылка, фасет) ушёл более новый запрос
var ErrSuperseded = errors.New("facet fetch superseded by a newer request")

const (
	facetCacheTTL    = time.Minute
	realtimeCacheTTL = 5 * time.Second
)

// Snapshot результаты всех пяти фасетов одной ссылки.
// Фасеты независимы: ошибка одного не гасит данные остальных,
// решение как показать частичный отказ остаётся за видом.
type Snapshot struct {
	Overview      *models.OverviewStats
	OverviewErr   error
	Geographic    *models.GeographicStats
	GeographicErr error
	Technology    *models.TechnologyStats
	TechnologyErr error
	Conversion    *models.ConversionStats
	ConversionErr error
	Realtime      *models.RealtimeStats
	RealtimeErr   error
}

// AnalyticsService агрегатор аналитики кликов
type AnalyticsService interface {
	// FetchFacet получает один фасет. Устаревшие по сравнению с более
	// новым запросом того же фасета результаты отбрасываются с ErrSuperseded.
	FetchFacet(ctx context.Context, shortCode string, facet models.Facet) (any, error)
	// FetchAll запускает все фасеты параллельно и собирает независимые результаты
	FetchAll(ctx context.Context, shortCode string) *Snapshot
	PortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error)
	Export(ctx context.Context, shortCode, format string) ([]byte, string, error)
}

type analyticsService struct {
	source datasource.ShortLinkDataSource
	cache  repository.AnalyticsCache // nil-safe: без Redis кэш просто выключен
	logger *zap.Logger

	mu   sync.Mutex
	seqs map[string]uint64
}

func NewAnalyticsService(source datasource.ShortLinkDataSource, cache repository.AnalyticsCache, logger *zap.Logger) AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &analyticsService{
		source: source,
		cache:  cache,
		logger: logger,
		seqs:   make(map[string]uint64),
	}
}

func (s *analyticsService) FetchFacet(ctx context.Context, shortCode string, facet models.Facet) (any, error) {
	key := shortCode + ":" + string(facet)
	seq := s.begin(key)

	data, err := s.fetch(ctx, shortCode, facet)

	// last-request-wins: если по этому ключу уже ушёл более новый
	// запрос, наш результат никому не нужен
	if !s.isCurrent(key, seq) {
		return nil, ErrSuperseded
	}
	return data, err
}

func (s *analyticsService) FetchAll(ctx context.Context, shortCode string) *Snapshot {
	snap := &Snapshot{}

	var wg sync.WaitGroup
	wg.Add(len(models.AllFacets))

	go func() {
		defer wg.Done()
		snap.Overview, snap.OverviewErr = s.overview(ctx, shortCode)
	}()
	go func() {
		defer wg.Done()
		snap.Geographic, snap.GeographicErr = s.geographic(ctx, shortCode)
	}()
	go func() {
		defer wg.Done()
		snap.Technology, snap.TechnologyErr = s.technology(ctx, shortCode)
	}()
	go func() {
		defer wg.Done()
		snap.Conversion, snap.ConversionErr = s.conversions(ctx, shortCode)
	}()
	go func() {
		defer wg.Done()
		snap.Realtime, snap.RealtimeErr = s.realtime(ctx, shortCode)
	}()

	wg.Wait()

	for _, f := range models.AllFacets {
		if err := snap.FacetError(f); err != nil {
			s.logger.Warn("Facet fetch failed",
				zap.String("short_code", shortCode),
				zap.String("facet", string(f)),
				zap.Error(err),
			)
		}
	}
	return snap
}

func (s *analyticsService) PortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	summary, err := s.source.FetchPortfolioSummary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio summary: %w", err)
	}
	return summary, nil
}

func (s *analyticsService) Export(ctx context.Context, shortCode, format string) ([]byte, string, error) {
	data, contentType, err := s.source.ExportFacet(ctx, shortCode, format)
	if err != nil {
		// выгрузка не ретраится автоматически, об отказе сообщаем наверх
		return nil, "", err
	}
	s.logger.Info("Analytics export",
		zap.String("short_code", shortCode),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
	)
	return data, contentType, nil
}

// FacetError возвращает ошибку конкретного фасета снимка
func (s *Snapshot) FacetError(f models.Facet) error {
	switch f {
	case models.FacetOverview:
		return s.OverviewErr
	case models.FacetGeographic:
		return s.GeographicErr
	case models.FacetTechnology:
		return s.TechnologyErr
	case models.FacetConversion:
		return s.ConversionErr
	case models.FacetRealtime:
		return s.RealtimeErr
	}
	return nil
}

func (s *analyticsService) fetch(ctx context.Context, shortCode string, facet models.Facet) (any, error) {
	switch facet {
	case models.FacetOverview:
		return s.overview(ctx, shortCode)
	case models.FacetGeographic:
		return s.geographic(ctx, shortCode)
	case models.FacetTechnology:
		return s.technology(ctx, shortCode)
	case models.FacetConversion:
		return s.conversions(ctx, shortCode)
	case models.FacetRealtime:
		return s.realtime(ctx, shortCode)
	}
	return nil, fmt.Errorf("unknown facet %q", facet)
}

func (s *analyticsService) overview(ctx context.Context, shortCode string) (*models.OverviewStats, error) {
	var cached models.OverviewStats
	if s.cacheGet(ctx, shortCode, models.FacetOverview, &cached) {
		return &cached, nil
	}
	data, err := s.source.FetchOverview(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, shortCode, models.FacetOverview, data)
	return data, nil
}

func (s *analyticsService) geographic(ctx context.Context, shortCode string) (*models.GeographicStats, error) {
	var cached models.GeographicStats
	if s.cacheGet(ctx, shortCode, models.FacetGeographic, &cached) {
		return &cached, nil
	}
	data, err := s.source.FetchGeographic(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, shortCode, models.FacetGeographic, data)
	return data, nil
}

func (s *analyticsService) technology(ctx context.Context, shortCode string) (*models.TechnologyStats, error) {
	var cached models.TechnologyStats
	if s.cacheGet(ctx, shortCode, models.FacetTechnology, &cached) {
		return &cached, nil
	}
	data, err := s.source.FetchTechnology(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, shortCode, models.FacetTechnology, data)
	return data, nil
}

func (s *analyticsService) conversions(ctx context.Context, shortCode string) (*models.ConversionStats, error) {
	var cached models.ConversionStats
	if s.cacheGet(ctx, shortCode, models.FacetConversion, &cached) {
		return &cached, nil
	}
	data, err := s.source.FetchConversions(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, shortCode, models.FacetConversion, data)
	return data, nil
}

func (s *analyticsService) realtime(ctx context.Context, shortCode string) (*models.RealtimeStats, error) {
	var cached models.RealtimeStats
	if s.cacheGet(ctx, shortCode, models.FacetRealtime, &cached) {
		return &cached, nil
	}
	data, err := s.source.FetchRealtime(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, shortCode, models.FacetRealtime, data)
	return data, nil
}

func (s *analyticsService) cacheGet(ctx context.Context, shortCode string, facet models.Facet, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.GetFacet(ctx, shortCode, facet, dest)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Debug("Facet cache read failed", zap.Error(err))
		}
		return false
	}
	return true
}

func (s *analyticsService) cacheSet(ctx context.Context, shortCode string, facet models.Facet, value any) {
	if s.cache == nil {
		return
	}
	ttl := facetCacheTTL
	if facet == models.FacetRealtime {
		ttl = realtimeCacheTTL
	}
	if err := s.cache.SetFacet(ctx, shortCode, facet, value, ttl); err != nil {
		// кэш не на критическом пути, отказ только логируем
		s.logger.Debug("Facet cache write failed", zap.Error(err))
	}
}

func (s *analyticsService) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[key]++
	return s.seqs[key]
}

func (s *analyticsService) isCurrent(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[key] == seq
}
