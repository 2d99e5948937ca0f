package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/service"
	"github.com/SergeiKhy/linkboard/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAnalyticsService() (service.AnalyticsService, *mocks.MockDataSource) {
	source := mocks.NewMockDataSource()
	logger, _ := zap.NewDevelopment()
	return service.NewAnalyticsService(source, nil, logger), source
}

// TestAnalyticsService_FetchAll_AllFacets проверяет, что собираются все пять фасетов
func TestAnalyticsService_FetchAll_AllFacets(t *testing.T) {
	analytics, source := setupAnalyticsService()

	source.Overview = &models.OverviewStats{TotalClicks: 100, TodayClicks: 5}
	source.Geographic = &models.GeographicStats{ClicksByCountry: map[string]int64{"Russia": 60}}
	source.Technology = &models.TechnologyStats{ClicksByDevice: map[string]int64{"mobile": 70}}
	source.Conversion = &models.ConversionStats{ConversionRate: 7.5, TotalConversions: 8}
	source.Realtime = &models.RealtimeStats{ActiveUsers: 3, PeakHour: "14:00"}

	snap := analytics.FetchAll(context.Background(), "promo")

	require.NotNil(t, snap)
	for _, f := range models.AllFacets {
		assert.NoError(t, snap.FacetError(f), "фасет %s не должен падать", f)
	}
	assert.EqualValues(t, 100, snap.Overview.TotalClicks)
	assert.EqualValues(t, 60, snap.Geographic.ClicksByCountry["Russia"])
	assert.InDelta(t, 7.5, snap.Conversion.ConversionRate, 0.001)
	assert.Equal(t, "14:00", snap.Realtime.PeakHour)
}

// TestAnalyticsService_FetchAll_PartialFailure проверяет изоляцию отказа:
// падение одного фасета не гасит данные остальных
func TestAnalyticsService_FetchAll_PartialFailure(t *testing.T) {
	analytics, source := setupAnalyticsService()

	source.Technology = &models.TechnologyStats{ClicksByBrowser: map[string]int64{"Chrome": 40}}
	source.FacetErrors[models.FacetGeographic] = errors.New("upstream timeout")

	snap := analytics.FetchAll(context.Background(), "promo")

	assert.Error(t, snap.GeographicErr)
	assert.Nil(t, snap.Geographic)

	assert.NoError(t, snap.TechnologyErr)
	require.NotNil(t, snap.Technology)
	assert.EqualValues(t, 40, snap.Technology.ClicksByBrowser["Chrome"])

	assert.NoError(t, snap.OverviewErr)
	assert.NoError(t, snap.RealtimeErr)
}

// TestAnalyticsService_FetchFacet_Typed проверяет выбор фасета по имени
func TestAnalyticsService_FetchFacet_Typed(t *testing.T) {
	analytics, source := setupAnalyticsService()
	source.Conversion = &models.ConversionStats{TotalConversions: 12}

	data, err := analytics.FetchFacet(context.Background(), "promo", models.FacetConversion)

	require.NoError(t, err)
	conv, ok := data.(*models.ConversionStats)
	require.True(t, ok)
	assert.EqualValues(t, 12, conv.TotalConversions)
}

// TestAnalyticsService_FetchFacet_LastRequestWins проверяет, что результат,
// вытесненный более новым запросом того же фасета, отбрасывается
func TestAnalyticsService_FetchFacet_LastRequestWins(t *testing.T) {
	analytics, source := setupAnalyticsService()
	source.Overview = &models.OverviewStats{TotalClicks: 1}
	source.FacetDelays[models.FacetOverview] = 80 * time.Millisecond

	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = analytics.FetchFacet(ctx, "promo", models.FacetOverview)
	}()

	// даём первому запросу стартовать, затем вытесняем его вторым
	time.Sleep(20 * time.Millisecond)
	data, err := analytics.FetchFacet(ctx, "promo", models.FacetOverview)
	wg.Wait()

	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.ErrorIs(t, firstErr, service.ErrSuperseded)
}

// TestAnalyticsService_PortfolioSummary проверяет сводку портфеля
func TestAnalyticsService_PortfolioSummary(t *testing.T) {
	analytics, source := setupAnalyticsService()
	source.Summary = &models.PortfolioSummary{
		TotalURLs:           4,
		TotalClicks:         90,
		AverageClicksPerURL: 22.5,
	}

	summary, err := analytics.PortfolioSummary(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalURLs)
	assert.InDelta(t, 22.5, summary.AverageClicksPerURL, 0.001)
}

// TestAnalyticsService_Export проверяет проксирование выгрузки
func TestAnalyticsService_Export(t *testing.T) {
	analytics, source := setupAnalyticsService()
	source.ExportData = []byte("section,label,clicks\n")

	data, contentType, err := analytics.Export(context.Background(), "promo", "csv")

	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(data), "section,label,clicks")
}

// TestAnalyticsService_Export_Failure проверяет, что отказ выгрузки сообщается без ретраев
func TestAnalyticsService_Export_Failure(t *testing.T) {
	analytics, source := setupAnalyticsService()
	source.FacetErrors["export"] = errors.New("export unavailable")

	_, _, err := analytics.Export(context.Background(), "promo", "csv")
	assert.Error(t, err)
}
