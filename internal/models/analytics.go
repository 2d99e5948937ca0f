package models

import (
	"time"
)

// Facet одно независимое измерение аналитики кликов
type Facet string

const (
	FacetOverview   Facet = "overview"
	FacetGeographic Facet = "geographic"
	FacetTechnology Facet = "technology"
	FacetConversion Facet = "conversions"
	FacetRealtime   Facet = "realtime"
)

// AllFacets перечисляет фасеты в порядке отображения на дашборде
var AllFacets = []Facet{
	FacetOverview,
	FacetGeographic,
	FacetTechnology,
	FacetConversion,
	FacetRealtime,
}

// ParseFacet разбирает имя фасета из пути запроса
func ParseFacet(s string) (Facet, bool) {
	for _, f := range AllFacets {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

type OverviewStats struct {
	TotalClicks int64         `json:"total_clicks"`
	TodayClicks int64         `json:"today_clicks"`
	WeekClicks  int64         `json:"week_clicks"`
	ClicksByDay []DailyClicks `json:"clicks_by_day"`
}

type GeographicStats struct {
	ClicksByCountry map[string]int64 `json:"clicks_by_country"`
	ClicksByCity    map[string]int64 `json:"clicks_by_city"`
}

type TechnologyStats struct {
	ClicksByDevice  map[string]int64 `json:"clicks_by_device"`
	ClicksByBrowser map[string]int64 `json:"clicks_by_browser"`
	ClicksByOS      map[string]int64 `json:"clicks_by_os"`
}

type ConversionStats struct {
	ConversionRate      float64          `json:"conversion_rate"`
	TotalConversions    int64            `json:"total_conversions"`
	ConversionsBySource map[string]int64 `json:"conversions_by_source"`
}

type RealtimeStats struct {
	ActiveUsers    int64  `json:"active_users"`
	ClicksLastHour int64  `json:"clicks_last_hour"`
	ClicksLast24h  int64  `json:"clicks_last_24h"`
	PeakHour       string `json:"peak_hour"`
}

type PortfolioSummary struct {
	TotalURLs           int              `json:"total_urls"`
	TotalClicks         int64            `json:"total_clicks"`
	AverageClicksPerURL float64          `json:"average_clicks_per_url"`
	DeviceBreakdown     map[string]int64 `json:"device_breakdown"`
	CountryBreakdown    map[string]int64 `json:"country_breakdown"`
	BrowserBreakdown    map[string]int64 `json:"browser_breakdown"`
	ClicksOverTime      []DailyClicks    `json:"clicks_over_time"`
	TopPerformingURLs   []ShortLink      `json:"top_performing_urls"`
}

// ClickEvent сырое событие клика, из которого fixture-источник
// строит агрегаты по всем фасетам
type ClickEvent struct {
	ShortCode string    `json:"short_code"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Source    string    `json:"source"`
	Converted bool      `json:"converted"`
	ClickedAt time.Time `json:"clicked_at"`
}
