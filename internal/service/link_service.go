package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/SergeiKhy/linkboard/internal/qr"
	"github.com/SergeiKhy/linkboard/internal/repository"
	"go.uber.org/zap"
)

// Ошибки валидации. Ловятся до любого сетевого вызова.
var (
	ErrEmptyDestination = errors.New("целевой URL пуст")
	ErrInvalidURL       = errors.New("невалидный целевой URL")
	ErrInvalidBackHalf  = errors.New("невалидный кастомный back-half")
	ErrAlreadyTaken     = errors.New("back-half уже занят")
)

const (
	backHalfMinLen = 3
	backHalfMaxLen = 50
)

var backHalfPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// utmOrder порядок параметров в итоговом URL фиксирован
var utmOrder = []struct {
	name  string
	value func(*models.UTMParameters) string
}{
	{"utm_source", func(u *models.UTMParameters) string { return u.Source }},
	{"utm_medium", func(u *models.UTMParameters) string { return u.Medium }},
	{"utm_campaign", func(u *models.UTMParameters) string { return u.Campaign }},
	{"utm_term", func(u *models.UTMParameters) string { return u.Term }},
	{"utm_content", func(u *models.UTMParameters) string { return u.Content }},
}

// LinkService создание коротких ссылок: валидация запроса,
// UTM-декорация и передача в репозиторий
type LinkService interface {
	CreateShortLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error)
	// FinalURL собирает итоговый URL с UTM-параметрами для предпросмотра.
	// Сам longURL не мутируется: декорация остаётся на стороне отображения.
	FinalURL(longURL string, utm *models.UTMParameters) string
}

type linkService struct {
	repo   repository.LinkRepository
	qr     *qr.Provider
	logger *zap.Logger
}

func NewLinkService(repo repository.LinkRepository, qrProvider *qr.Provider, logger *zap.Logger) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		repo:   repo,
		qr:     qrProvider,
		logger: logger,
	}
}

// CreateShortLink валидирует запрос и создаёт ссылку.
// Порядок проверок фиксирован: пустой URL, абсолютность URL,
// формат back-half — первая неудача останавливает остальные.
func (s *linkService) CreateShortLink(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error) {
	longURL := strings.TrimSpace(input.LongURL)
	if longURL == "" {
		return nil, ErrEmptyDestination
	}
	if !isAbsoluteURL(longURL) {
		return nil, ErrInvalidURL
	}
	if input.CustomBackHalf != nil && *input.CustomBackHalf != "" {
		if err := validateBackHalf(*input.CustomBackHalf); err != nil {
			return nil, err
		}
	}

	request := *input
	request.LongURL = longURL

	link, err := s.repo.Create(ctx, &request)
	if err != nil {
		return nil, s.mapCreateError(err)
	}

	// серверный QR в приоритете, своя сборка только как fallback для превью
	if link.QREnabled && link.QRCodeURL == "" && s.qr != nil {
		link.QRCodeURL = s.qr.ImageURL(link.ShortURL, qr.StyleFrom(input.QR))
	}

	return link, nil
}

func (s *linkService) FinalURL(longURL string, utm *models.UTMParameters) string {
	if !utm.HasValues() {
		return longURL
	}

	params := make([]string, 0, len(utmOrder))
	for _, p := range utmOrder {
		if v := p.value(utm); v != "" {
			params = append(params, p.name+"="+url.QueryEscape(v))
		}
	}
	if len(params) == 0 {
		return longURL
	}

	sep := "?"
	if strings.Contains(longURL, "?") {
		sep = "&"
	}
	return longURL + sep + strings.Join(params, "&")
}

// mapCreateError переводит ошибки источника в доменные категории
func (s *linkService) mapCreateError(err error) error {
	switch {
	case errors.Is(err, datasource.ErrAlreadyTaken):
		return ErrAlreadyTaken
	case errors.Is(err, datasource.ErrRequiredField):
		return ErrEmptyDestination
	case errors.Is(err, datasource.ErrInvalidField):
		return ErrInvalidURL
	default:
		return fmt.Errorf("failed to create short link: %w", err)
	}
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func validateBackHalf(backHalf string) error {
	if len(backHalf) < backHalfMinLen || len(backHalf) > backHalfMaxLen {
		return ErrInvalidBackHalf
	}
	if !backHalfPattern.MatchString(backHalf) {
		return ErrInvalidBackHalf
	}
	return nil
}
