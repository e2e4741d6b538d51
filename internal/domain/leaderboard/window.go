// Package leaderboard содержит доменную модель месячного лидерборда:
// календарное окно, веса очков и чистое вычисление рейтинга.
package leaderboard

import (
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/timeutil"
)

// MonthWindow представляет календарный месяц в часовом поясе платформы.
// Интервал полуоткрытый: [начало месяца, начало следующего месяца).
type MonthWindow struct {
	// Year - календарный год.
	Year int

	// Month - календарный месяц.
	Month time.Month
}

// CurrentMonth возвращает окно текущего месяца в поясе платформы.
func CurrentMonth() MonthWindow {
	now := timeutil.Now()
	return MonthWindow{Year: now.Year(), Month: now.Month()}
}

// NewMonthWindow создаёт окно с проверкой границ.
func NewMonthWindow(year int, month time.Month) (MonthWindow, error) {
	w := MonthWindow{Year: year, Month: month}
	if err := w.Validate(); err != nil {
		return MonthWindow{}, err
	}
	return w, nil
}

// Validate проверяет корректность года и месяца.
func (w MonthWindow) Validate() error {
	if w.Year < 2000 || w.Year > 2200 {
		return shared.ErrInvalidMonth
	}
	if w.Month < time.January || w.Month > time.December {
		return shared.ErrInvalidMonth
	}
	return nil
}

// Bounds возвращает границы окна [from, to).
func (w MonthWindow) Bounds() (from, to time.Time) {
	return timeutil.MonthBounds(w.Year, w.Month)
}

// Contains сообщает, попадает ли момент времени в окно.
// Начало месяца входит, начало следующего - уже нет.
func (w MonthWindow) Contains(ts time.Time) bool {
	return timeutil.InMonth(ts, w.Year, w.Month)
}

// Previous возвращает окно предыдущего месяца.
func (w MonthWindow) Previous() MonthWindow {
	start, _ := w.Bounds()
	prev := start.AddDate(0, -1, 0)
	return MonthWindow{Year: prev.Year(), Month: prev.Month()}
}

// Key возвращает строковый ключ окна в формате YYYY-MM.
// Используется в ключах кэша и параметрах API.
func (w MonthWindow) Key() string {
	return timeutil.MonthKey(w.Year, w.Month)
}

// ParseWindowKey разбирает ключ YYYY-MM в окно.
func ParseWindowKey(key string) (MonthWindow, error) {
	year, month, err := timeutil.ParseMonthKey(key)
	if err != nil {
		return MonthWindow{}, shared.WrapError("leaderboard", "ParseWindow", shared.ErrInvalidInput, "invalid month key", err)
	}
	return NewMonthWindow(year, month)
}
