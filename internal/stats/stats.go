// Package stats содержит общие вычисления производных метрик.
// Все виды дашборда обязаны считать доли через этот пакет,
// чтобы одинаковые входные данные везде давали одинаковое округление.
package stats

import (
	"math"
	"strconv"
)

// Percentage возвращает part от total в процентах, округлённых
// до одного знака. При total == 0 всегда 0 — деления на ноль
// и NaN до видов не доходят.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return Round1(float64(part) / float64(total) * 100)
}

// FormatPercentage форматирует процент строкой с одним знаком после запятой
func FormatPercentage(part, total int64) string {
	return strconv.FormatFloat(Percentage(part, total), 'f', 1, 64)
}

// Round1 округляет до одного десятичного знака (half away from zero)
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Average среднее part/total с округлением до одного знака, 0 при total == 0
func Average(part int64, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round1(float64(part) / float64(total))
}
