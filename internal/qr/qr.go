// Package qr строит ссылки на изображения QR-кодов во внешнем сервисе.
// Никаких сетевых вызовов: результат есть чистая функция от (url, стиль).
package qr

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/SergeiKhy/linkboard/internal/models"
)

const (
	DefaultBaseURL = "https://api.qrserver.com/v1/create-qr-code/"

	defaultColor = "000000"
	defaultSize  = 300
	minSize      = 100
	maxSize      = 1000
)

// цвет передаётся сервису hex-строкой без ведущего #
var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

type Style struct {
	Color  string
	SizePx int
}

// StyleFrom переводит стиль модели в параметры генерации
func StyleFrom(s *models.QRStyle) Style {
	if s == nil {
		return Style{}
	}
	return Style{Color: s.Color, SizePx: s.SizePx}
}

type Provider struct {
	baseURL string
}

func NewProvider(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{baseURL: baseURL}
}

// ImageURL возвращает URL изображения QR-кода для короткой ссылки.
// Некорректный стиль не ошибка: молча подставляются значения по умолчанию.
func (p *Provider) ImageURL(shortURL string, style Style) string {
	color := strings.TrimPrefix(style.Color, "#")
	if !hexColorPattern.MatchString(color) {
		color = defaultColor
	}

	size := style.SizePx
	if size <= 0 {
		size = defaultSize
	}
	if size < minSize {
		size = minSize
	}
	if size > maxSize {
		size = maxSize
	}

	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("data", shortURL)
	q.Set("color", color)
	return p.baseURL + "?" + q.Encode()
}
