package models

import (
	"time"
)

type ShortLink struct {
	ID          string         `json:"id"`
	ShortCode   string         `json:"short_code"`
	ShortURL    string         `json:"short_url"`
	LongURL     string         `json:"long_url"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	UTM         *UTMParameters `json:"utm_params,omitempty"`
	QREnabled   bool           `json:"qr_enabled"`
	QRStyle     *QRStyle       `json:"qr_style,omitempty"`
	QRCodeURL   string         `json:"qr_code_url,omitempty"`
	Active      bool           `json:"active"`
	ClickCount  int64          `json:"click_count"`
	CreatedAt   time.Time      `json:"created_at"`
}

type UTMParameters struct {
	Enabled  bool   `json:"enabled"`
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// HasValues сообщает, задан ли хотя бы один UTM-параметр
func (u *UTMParameters) HasValues() bool {
	if u == nil {
		return false
	}
	return u.Source != "" || u.Medium != "" || u.Campaign != "" || u.Term != "" || u.Content != ""
}

type QRStyle struct {
	Color   string `json:"color,omitempty"`
	SizePx  int    `json:"size_px,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

type CreateLinkInput struct {
	LongURL        string         `json:"long_url" binding:"required"`
	Title          string         `json:"title,omitempty"`
	Description    string         `json:"description,omitempty"`
	CustomBackHalf *string        `json:"custom_back_half,omitempty"`
	UTM            *UTMParameters `json:"utm_params,omitempty"`
	QR             *QRStyle       `json:"qr_style,omitempty"`
}

type UpdateLinkInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type LinkPage struct {
	Items       []ShortLink `json:"items"`
	TotalLinks  int         `json:"total_links"`
	TotalClicks int64       `json:"total_clicks"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
}
