package datasource_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDomain = "https://lnk.test"

// TestFixture_Seed проверяет детерминированный набор стартовых данных
func TestFixture_Seed(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)

	page, err := f.ListLinks(context.Background(), "user-1", models.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.TotalLinks)
	assert.EqualValues(t, 640+230+85, page.TotalClicks)

	// сортировка новые первыми
	codes := make([]string, 0, len(page.Items))
	for _, l := range page.Items {
		codes = append(codes, l.ShortCode)
	}
	assert.Equal(t, []string{"docs", "webinar", "spring-sale"}, codes)
	assert.True(t, strings.HasPrefix(page.Items[0].ShortURL, fixtureDomain+"/"))
}

// TestFixture_CRUD проверяет полный цикл жизни ссылки
func TestFixture_CRUD(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)
	ctx := context.Background()

	backHalf := "my-link"
	link, err := f.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:        "https://example.com/page",
		Title:          "Моя ссылка",
		CustomBackHalf: &backHalf,
	})
	require.NoError(t, err)
	assert.Equal(t, "my-link", link.ShortCode)
	assert.Equal(t, fixtureDomain+"/my-link", link.ShortURL)
	assert.True(t, link.Active)

	// занятый back-half
	_, err = f.CreateLink(ctx, &models.CreateLinkInput{
		LongURL:        "https://example.com/other",
		CustomBackHalf: &backHalf,
	})
	assert.ErrorIs(t, err, datasource.ErrAlreadyTaken)

	title := "Переименовано"
	active := false
	updated, err := f.UpdateLink(ctx, link.ID, &models.UpdateLinkInput{Title: &title, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, "Переименовано", updated.Title)
	assert.False(t, updated.Active)

	require.NoError(t, f.DeleteLink(ctx, link.ID))
	assert.ErrorIs(t, f.DeleteLink(ctx, link.ID), datasource.ErrNotFound)
}

// TestFixture_CreateLink_GeneratesCode проверяет генерацию back-half,
// когда пользователь его не задал
func TestFixture_CreateLink_GeneratesCode(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)

	link, err := f.CreateLink(context.Background(), &models.CreateLinkInput{
		LongURL: "https://example.com",
	})
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 8)
}

// TestFixture_FetchOverview проверяет дневной ряд: 30 дней по возрастанию,
// дни без кликов присутствуют с нулём
func TestFixture_FetchOverview(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)

	overview, err := f.FetchOverview(context.Background(), "spring-sale")
	require.NoError(t, err)

	assert.EqualValues(t, 640, overview.TotalClicks)
	require.Len(t, overview.ClicksByDay, 30)

	var total int64
	for i := 1; i < len(overview.ClicksByDay); i++ {
		assert.Less(t, overview.ClicksByDay[i-1].Date, overview.ClicksByDay[i].Date)
	}
	for _, d := range overview.ClicksByDay {
		total += d.Clicks
	}
	// ссылка создана 28 дней назад, все клики попадают в 30-дневное окно
	assert.EqualValues(t, 640, total)
	assert.Equal(t, time.Now().Format("2006-01-02"), overview.ClicksByDay[29].Date)
}

// TestFixture_FetchConversions проверяет расчёт конверсии
func TestFixture_FetchConversions(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)

	conv, err := f.FetchConversions(context.Background(), "webinar")
	require.NoError(t, err)

	assert.Positive(t, conv.TotalConversions)
	assert.Greater(t, conv.ConversionRate, 0.0)
	assert.Less(t, conv.ConversionRate, 100.0)

	var bySource int64
	for _, n := range conv.ConversionsBySource {
		bySource += n
	}
	assert.Equal(t, conv.TotalConversions, bySource)
}

// TestFixture_FetchGeographicAndTechnology проверяет, что разбивки
// покрывают все клики ссылки
func TestFixture_FetchGeographicAndTechnology(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)
	ctx := context.Background()

	geo, err := f.FetchGeographic(ctx, "docs")
	require.NoError(t, err)
	tech, err := f.FetchTechnology(ctx, "docs")
	require.NoError(t, err)

	var byCountry, byDevice int64
	for _, n := range geo.ClicksByCountry {
		byCountry += n
	}
	for _, n := range tech.ClicksByDevice {
		byDevice += n
	}
	assert.EqualValues(t, 85, byCountry)
	assert.EqualValues(t, 85, byDevice)
}

// TestFixture_Facets_NotFound проверяет неизвестный short_code
func TestFixture_Facets_NotFound(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)
	ctx := context.Background()

	_, err := f.FetchOverview(ctx, "nope")
	assert.ErrorIs(t, err, datasource.ErrNotFound)
	_, err = f.FetchRealtime(ctx, "nope")
	assert.ErrorIs(t, err, datasource.ErrNotFound)
}

// TestFixture_FetchPortfolioSummary проверяет сводку по всем ссылкам
func TestFixture_FetchPortfolioSummary(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)

	summary, err := f.FetchPortfolioSummary(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalURLs)
	assert.EqualValues(t, 955, summary.TotalClicks)
	assert.InDelta(t, 318.3, summary.AverageClicksPerURL, 0.05)
	require.Len(t, summary.TopPerformingURLs, 3)
	assert.Equal(t, "spring-sale", summary.TopPerformingURLs[0].ShortCode)
	assert.Equal(t, "webinar", summary.TopPerformingURLs[1].ShortCode)
	assert.Len(t, summary.ClicksOverTime, 30)
}

// TestFixture_ExportFacet проверяет CSV-выгрузку и отказ для чужого формата
func TestFixture_ExportFacet(t *testing.T) {
	f := datasource.NewFixture(fixtureDomain)
	ctx := context.Background()

	data, contentType, err := f.ExportFacet(ctx, "spring-sale", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "section,label,clicks", lines[0])
	// 30 дневных строк плюс страны
	assert.Greater(t, len(lines), 31)

	_, _, err = f.ExportFacet(ctx, "spring-sale", "xlsx")
	assert.ErrorIs(t, err, datasource.ErrInvalidField)
}
