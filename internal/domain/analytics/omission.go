// Package analytics содержит доменную модель агрегатов: сводка по курсу,
// портфель преподавателя и записи о пропусках при частичных сбоях.
// Агрегация никогда не делает ответ "всё или ничего": отказ одной ветки
// превращается в Omission, остальные ветки доводятся до конца.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// OmissionScope определяет, какая ветка агрегации была пропущена.
type OmissionScope string

const (
	// ScopeStudent - не удалось рассчитать сводку одного студента.
	ScopeStudent OmissionScope = "student"
	// ScopeCourse - не удалось агрегировать целый курс.
	ScopeCourse OmissionScope = "course"
)

// Omission представляет запись о пропущенной ветке агрегации.
// Записи попадают в результат и в журнал, но не прерывают агрегацию.
type Omission struct {
	// ID - уникальный идентификатор записи.
	ID string

	// Scope - уровень пропуска (студент или курс).
	Scope OmissionScope

	// Key - идентификатор пропущенной сущности (userID или courseID).
	Key string

	// Reason - краткая причина пропуска.
	Reason string

	// OccurredAt - время фиксации пропуска.
	OccurredAt time.Time
}

// NewOmission создаёт запись о пропуске с новым идентификатором.
func NewOmission(scope OmissionScope, key, reason string, at time.Time) Omission {
	return Omission{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		Reason:     reason,
		OccurredAt: at,
	}
}
