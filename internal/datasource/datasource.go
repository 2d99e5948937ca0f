package datasource

import (
	"context"

	"github.com/SergeiKhy/linkboard/internal/models"
)

// ShortLinkDataSource источник данных о коротких ссылках и их аналитике.
// Две реализации: Remote (боевой API) и Fixture (детерминированные данные
// для разработки без бэкенда). Выбирается при сборке приложения, а не
// условиями внутри методов.
type ShortLinkDataSource interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error)
	ListLinks(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error)
	UpdateLink(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error)
	DeleteLink(ctx context.Context, id string) error

	FetchOverview(ctx context.Context, shortCode string) (*models.OverviewStats, error)
	FetchGeographic(ctx context.Context, shortCode string) (*models.GeographicStats, error)
	FetchTechnology(ctx context.Context, shortCode string) (*models.TechnologyStats, error)
	FetchConversions(ctx context.Context, shortCode string) (*models.ConversionStats, error)
	FetchRealtime(ctx context.Context, shortCode string) (*models.RealtimeStats, error)

	FetchPortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error)

	// ExportFacet возвращает выгрузку аналитики ссылки и content type потока
	ExportFacet(ctx context.Context, shortCode, format string) ([]byte, string, error)
}
