package datasource

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/stats"
)

const (
	fixtureSeed       = 42
	fixtureCodeLength = 8
	fixtureCharset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	fixtureCountries = []string{"Russia", "Germany", "USA", "Netherlands", "Kazakhstan"}
	fixtureCities    = []string{"Moscow", "Berlin", "New York", "Amsterdam", "Almaty"}
	fixtureDevices   = []string{"desktop", "mobile", "tablet"}
	fixtureBrowsers  = []string{"Chrome", "Firefox", "Safari", "Edge"}
	fixtureOS        = []string{"Windows", "macOS", "Linux", "Android", "iOS"}
	fixtureSources   = []string{"google", "newsletter", "telegram", "direct"}
)

// Fixture реализация ShortLinkDataSource на детерминированных данных в памяти.
// Позволяет разрабатывать дашборд без живого бэкенда: данные сеются один раз
// с фиксированным seed, агрегаты считаются из тех же событий кликов,
// что отдавал бы боевой API.
type Fixture struct {
	mu     sync.RWMutex
	domain string
	links  map[string]*models.ShortLink            // id -> link
	events map[string][]models.ClickEvent          // short_code -> clicks
	rng    *rand.Rand
	nextID int
}

func NewFixture(domain string) *Fixture {
	f := &Fixture{
		domain: domain,
		links:  make(map[string]*models.ShortLink),
		events: make(map[string][]models.ClickEvent),
		rng:    rand.New(rand.NewSource(fixtureSeed)),
		nextID: 1,
	}
	f.seed()
	return f
}

// seed наполняет источник ссылками и кликами за последние 30 дней
func (f *Fixture) seed() {
	now := time.Now()
	seeds := []struct {
		code    string
		longURL string
		title   string
		ageDays int
		clicks  int
	}{
		{"spring-sale", "https://shop.example.com/sale?season=spring", "Весенняя распродажа", 28, 640},
		{"webinar", "https://events.example.com/webinar/2026-q3", "Вебинар Q3", 14, 230},
		{"docs", "https://docs.example.com/getting-started", "Документация", 7, 85},
	}

	for _, s := range seeds {
		link := &models.ShortLink{
			ID:         strconv.Itoa(f.nextID),
			ShortCode:  s.code,
			ShortURL:   f.domain + "/" + s.code,
			LongURL:    s.longURL,
			Title:      s.title,
			Active:     true,
			ClickCount: int64(s.clicks),
			CreatedAt:  now.AddDate(0, 0, -s.ageDays),
		}
		f.nextID++
		f.links[link.ID] = link
		f.events[s.code] = f.generateClicks(s.code, link.CreatedAt, now, s.clicks)
	}
}

func (f *Fixture) generateClicks(code string, from, now time.Time, count int) []models.ClickEvent {
	span := now.Sub(from)
	events := make([]models.ClickEvent, 0, count)
	for i := 0; i < count; i++ {
		at := from.Add(time.Duration(f.rng.Int63n(int64(span))))
		events = append(events, models.ClickEvent{
			ShortCode: code,
			Country:   fixtureCountries[f.rng.Intn(len(fixtureCountries))],
			City:      fixtureCities[f.rng.Intn(len(fixtureCities))],
			Device:    fixtureDevices[f.rng.Intn(len(fixtureDevices))],
			Browser:   fixtureBrowsers[f.rng.Intn(len(fixtureBrowsers))],
			OS:        fixtureOS[f.rng.Intn(len(fixtureOS))],
			Source:    fixtureSources[f.rng.Intn(len(fixtureSources))],
			Converted: f.rng.Intn(100) < 7,
			ClickedAt: at,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ClickedAt.Before(events[j].ClickedAt) })
	return events
}

func (f *Fixture) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	code := ""
	if input.CustomBackHalf != nil && *input.CustomBackHalf != "" {
		code = *input.CustomBackHalf
		if f.codeTaken(code) {
			return nil, ErrAlreadyTaken
		}
	} else {
		for {
			code = f.randomCode()
			if !f.codeTaken(code) {
				break
			}
		}
	}

	link := &models.ShortLink{
		ID:          strconv.Itoa(f.nextID),
		ShortCode:   code,
		ShortURL:    f.domain + "/" + code,
		LongURL:     input.LongURL,
		Title:       input.Title,
		Description: input.Description,
		UTM:         input.UTM,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if input.QR != nil {
		link.QREnabled = true
		link.QRStyle = input.QR
	}
	f.nextID++
	f.links[link.ID] = link
	f.events[code] = nil

	copied := *link
	return &copied, nil
}

func (f *Fixture) ListLinks(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p = p.Normalized()

	all := make([]models.ShortLink, 0, len(f.links))
	var totalClicks int64
	for _, l := range f.links {
		all = append(all, *l)
		totalClicks += l.ClickCount
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	p.TotalLinks = len(all)
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}

	return &models.LinkPage{
		Items:       all[start:end],
		TotalLinks:  len(all),
		TotalClicks: totalClicks,
		Page:        p.Page,
		PageSize:    p.PageSize,
		TotalPages:  p.TotalPages(),
	}, nil
}

func (f *Fixture) UpdateLink(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return nil, ErrNotFound
	}
	if input.Title != nil {
		link.Title = *input.Title
	}
	if input.Description != nil {
		link.Description = *input.Description
	}
	if input.Active != nil {
		link.Active = *input.Active
	}

	copied := *link
	return &copied, nil
}

func (f *Fixture) DeleteLink(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	link, ok := f.links[id]
	if !ok {
		return ErrNotFound
	}
	delete(f.events, link.ShortCode)
	delete(f.links, id)
	return nil
}

func (f *Fixture) FetchOverview(ctx context.Context, shortCode string) (*models.OverviewStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events, err := f.eventsFor(shortCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := now.Format("2006-01-02")
	weekAgo := now.AddDate(0, 0, -7)

	overview := &models.OverviewStats{TotalClicks: int64(len(events))}
	byDay := make(map[string]int64)
	for _, e := range events {
		day := e.ClickedAt.Format("2006-01-02")
		byDay[day]++
		if day == today {
			overview.TodayClicks++
		}
		if e.ClickedAt.After(weekAgo) {
			overview.WeekClicks++
		}
	}
	overview.ClicksByDay = dailySeries(byDay, now, 30)
	return overview, nil
}

func (f *Fixture) FetchGeographic(ctx context.Context, shortCode string) (*models.GeographicStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events, err := f.eventsFor(shortCode)
	if err != nil {
		return nil, err
	}

	geo := &models.GeographicStats{
		ClicksByCountry: make(map[string]int64),
		ClicksByCity:    make(map[string]int64),
	}
	for _, e := range events {
		geo.ClicksByCountry[e.Country]++
		geo.ClicksByCity[e.City]++
	}
	return geo, nil
}

func (f *Fixture) FetchTechnology(ctx context.Context, shortCode string) (*models.TechnologyStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events, err := f.eventsFor(shortCode)
	if err != nil {
		return nil, err
	}

	tech := &models.TechnologyStats{
		ClicksByDevice:  make(map[string]int64),
		ClicksByBrowser: make(map[string]int64),
		ClicksByOS:      make(map[string]int64),
	}
	for _, e := range events {
		tech.ClicksByDevice[e.Device]++
		tech.ClicksByBrowser[e.Browser]++
		tech.ClicksByOS[e.OS]++
	}
	return tech, nil
}

func (f *Fixture) FetchConversions(ctx context.Context, shortCode string) (*models.ConversionStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events, err := f.eventsFor(shortCode)
	if err != nil {
		return nil, err
	}

	conv := &models.ConversionStats{ConversionsBySource: make(map[string]int64)}
	for _, e := range events {
		if e.Converted {
			conv.TotalConversions++
			conv.ConversionsBySource[e.Source]++
		}
	}
	conv.ConversionRate = stats.Percentage(conv.TotalConversions, int64(len(events)))
	return conv, nil
}

func (f *Fixture) FetchRealtime(ctx context.Context, shortCode string) (*models.RealtimeStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events, err := f.eventsFor(shortCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rt := &models.RealtimeStats{}
	byHour := make(map[int]int64)
	for _, e := range events {
		age := now.Sub(e.ClickedAt)
		if age <= 5*time.Minute {
			rt.ActiveUsers++
		}
		if age <= time.Hour {
			rt.ClicksLastHour++
		}
		if age <= 24*time.Hour {
			rt.ClicksLast24h++
			byHour[e.ClickedAt.Hour()]++
		}
	}
	rt.PeakHour = peakHourLabel(byHour)
	return rt, nil
}

func (f *Fixture) FetchPortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	summary := &models.PortfolioSummary{
		DeviceBreakdown:  make(map[string]int64),
		CountryBreakdown: make(map[string]int64),
		BrowserBreakdown: make(map[string]int64),
	}

	now := time.Now()
	byDay := make(map[string]int64)
	top := make([]models.ShortLink, 0, len(f.links))

	for _, l := range f.links {
		summary.TotalURLs++
		summary.TotalClicks += l.ClickCount
		top = append(top, *l)

		for _, e := range f.events[l.ShortCode] {
			summary.DeviceBreakdown[e.Device]++
			summary.CountryBreakdown[e.Country]++
			summary.BrowserBreakdown[e.Browser]++
			if now.Sub(e.ClickedAt) <= 30*24*time.Hour {
				byDay[e.ClickedAt.Format("2006-01-02")]++
			}
		}
	}

	summary.AverageClicksPerURL = stats.Average(summary.TotalClicks, summary.TotalURLs)
	summary.ClicksOverTime = dailySeries(byDay, now, 30)

	// по убыванию кликов, при равенстве новые ссылки первыми
	sort.Slice(top, func(i, j int) bool {
		if top[i].ClickCount != top[j].ClickCount {
			return top[i].ClickCount > top[j].ClickCount
		}
		return top[i].CreatedAt.After(top[j].CreatedAt)
	})
	if len(top) > 5 {
		top = top[:5]
	}
	summary.TopPerformingURLs = top

	return summary, nil
}

func (f *Fixture) ExportFacet(ctx context.Context, shortCode, format string) ([]byte, string, error) {
	if format != "csv" {
		return nil, "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidField, format)
	}

	overview, err := f.FetchOverview(ctx, shortCode)
	if err != nil {
		return nil, "", err
	}
	geo, err := f.FetchGeographic(ctx, shortCode)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"section", "label", "clicks"})
	for _, d := range overview.ClicksByDay {
		_ = w.Write([]string{"daily", d.Date, strconv.FormatInt(d.Clicks, 10)})
	}
	for _, country := range sortedKeys(geo.ClicksByCountry) {
		_ = w.Write([]string{"country", country, strconv.FormatInt(geo.ClicksByCountry[country], 10)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to build csv export: %w", err)
	}
	return buf.Bytes(), "text/csv", nil
}

// eventsFor ожидает удерживаемый f.mu
func (f *Fixture) eventsFor(shortCode string) ([]models.ClickEvent, error) {
	for _, l := range f.links {
		if l.ShortCode == shortCode {
			return f.events[shortCode], nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fixture) codeTaken(code string) bool {
	for _, l := range f.links {
		if l.ShortCode == code {
			return true
		}
	}
	return false
}

func (f *Fixture) randomCode() string {
	b := make([]byte, fixtureCodeLength)
	for i := range b {
		b[i] = fixtureCharset[f.rng.Intn(len(fixtureCharset))]
	}
	return string(b)
}

// dailySeries строит упорядоченный по возрастанию дат ряд за days дней,
// включая дни без кликов
func dailySeries(byDay map[string]int64, now time.Time, days int) []models.DailyClicks {
	series := make([]models.DailyClicks, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, models.DailyClicks{Date: day, Clicks: byDay[day]})
	}
	return series
}

func peakHourLabel(byHour map[int]int64) string {
	if len(byHour) == 0 {
		return ""
	}
	peak, best := 0, int64(-1)
	for h := 0; h < 24; h++ {
		if byHour[h] > best {
			peak, best = h, byHour[h]
		}
	}
	return fmt.Sprintf("%02d:00", peak)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
