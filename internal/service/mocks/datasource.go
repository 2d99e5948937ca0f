package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/models"
)

// MockDataSource implements datasource.ShortLinkDataSource for testing.
// Errors and facet payloads are injectable per call site.
type MockDataSource struct {
	mu     sync.RWMutex
	links  map[string]*models.ShortLink
	nextID int64

	CreateErr error
	ListErr   error
	UpdateErr error
	DeleteErr error

	FacetErrors map[models.Facet]error
	FacetDelays map[models.Facet]time.Duration

	Overview   *models.OverviewStats
	Geographic *models.GeographicStats
	Technology *models.TechnologyStats
	Conversion *models.ConversionStats
	Realtime   *models.RealtimeStats
	Summary    *models.PortfolioSummary
	ExportData []byte

	CreateCalls int32
	ListCalls   int32
}

func NewMockDataSource() *MockDataSource {
	return &MockDataSource{
		links:       make(map[string]*models.ShortLink),
		nextID:      1,
		FacetErrors: make(map[models.Facet]error),
		FacetDelays: make(map[models.Facet]time.Duration),
	}
}

func (m *MockDataSource) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error) {
	atomic.AddInt32(&m.CreateCalls, 1)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := "code" + strconv.FormatInt(m.nextID, 10)
	if input.CustomBackHalf != nil && *input.CustomBackHalf != "" {
		code = *input.CustomBackHalf
		for _, l := range m.links {
			if l.ShortCode == code {
				return nil, datasource.ErrAlreadyTaken
			}
		}
	}

	link := &models.ShortLink{
		ID:          strconv.FormatInt(m.nextID, 10),
		ShortCode:   code,
		ShortURL:    "https://lnk.test/" + code,
		LongURL:     input.LongURL,
		Title:       input.Title,
		Description: input.Description,
		UTM:         input.UTM,
		QREnabled:   input.QR != nil,
		QRStyle:     input.QR,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	m.nextID++
	m.links[link.ID] = link

	copied := *link
	return &copied, nil
}

func (m *MockDataSource) ListLinks(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error) {
	atomic.AddInt32(&m.ListCalls, 1)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p = p.Normalized()
	all := make([]models.ShortLink, 0, len(m.links))
	var totalClicks int64
	for _, l := range m.links {
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

func (m *MockDataSource) UpdateLink(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return nil, datasource.ErrNotFound
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

func (m *MockDataSource) DeleteLink(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[id]; !ok {
		return datasource.ErrNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockDataSource) FetchOverview(ctx context.Context, shortCode string) (*models.OverviewStats, error) {
	if err := m.facetGate(models.FacetOverview); err != nil {
		return nil, err
	}
	if m.Overview == nil {
		return &models.OverviewStats{}, nil
	}
	return m.Overview, nil
}

func (m *MockDataSource) FetchGeographic(ctx context.Context, shortCode string) (*models.GeographicStats, error) {
	if err := m.facetGate(models.FacetGeographic); err != nil {
		return nil, err
	}
	if m.Geographic == nil {
		return &models.GeographicStats{}, nil
	}
	return m.Geographic, nil
}

func (m *MockDataSource) FetchTechnology(ctx context.Context, shortCode string) (*models.TechnologyStats, error) {
	if err := m.facetGate(models.FacetTechnology); err != nil {
		return nil, err
	}
	if m.Technology == nil {
		return &models.TechnologyStats{}, nil
	}
	return m.Technology, nil
}

func (m *MockDataSource) FetchConversions(ctx context.Context, shortCode string) (*models.ConversionStats, error) {
	if err := m.facetGate(models.FacetConversion); err != nil {
		return nil, err
	}
	if m.Conversion == nil {
		return &models.ConversionStats{}, nil
	}
	return m.Conversion, nil
}

func (m *MockDataSource) FetchRealtime(ctx context.Context, shortCode string) (*models.RealtimeStats, error) {
	if err := m.facetGate(models.FacetRealtime); err != nil {
		return nil, err
	}
	if m.Realtime == nil {
		return &models.RealtimeStats{}, nil
	}
	return m.Realtime, nil
}

func (m *MockDataSource) FetchPortfolioSummary(ctx context.Context, userID string) (*models.PortfolioSummary, error) {
	if m.Summary == nil {
		return &models.PortfolioSummary{}, nil
	}
	return m.Summary, nil
}

func (m *MockDataSource) ExportFacet(ctx context.Context, shortCode, format string) ([]byte, string, error) {
	if err := m.FacetErrors["export"]; err != nil {
		return nil, "", err
	}
	return m.ExportData, "text/csv", nil
}

func (m *MockDataSource) facetGate(facet models.Facet) error {
	if d, ok := m.FacetDelays[facet]; ok {
		time.Sleep(d)
	}
	return m.FacetErrors[facet]
}

func (m *MockDataSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[string]*models.ShortLink)
	m.nextID = 1
	atomic.StoreInt32(&m.ListCalls, 0)
}
