package models

// Pagination хранит состояние пагинации как единое значение.
// TotalPages всегда вычисляется из текущих полей и нигде не кэшируется,
// поэтому смена PageSize между запросами не может дать устаревший результат.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalLinks int `json:"total_links"`
}

const DefaultPageSize = 20

// Normalized возвращает копию с подставленными значениями по умолчанию
func (p Pagination) Normalized() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// TotalPages вычисляет число страниц от текущего PageSize
func (p Pagination) TotalPages() int {
	p = p.Normalized()
	if p.TotalLinks <= 0 {
		return 0
	}
	return (p.TotalLinks + p.PageSize - 1) / p.PageSize
}

// Offset возвращает смещение первой записи страницы (страницы нумеруются с 1)
func (p Pagination) Offset() int {
	p = p.Normalized()
	return (p.Page - 1) * p.PageSize
}
