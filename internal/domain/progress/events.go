// Package progress содержит доменную модель прогресса студента по курсу:
// исходные события обучения, структуру курса и чистый калькулятор сводки.
// Пакет не обращается к хранилищам и внешним сервисам.
package progress

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE EVENTS (неизменяемые записи из внешних хранилищ)
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment представляет запись о зачислении студента на курс.
type Enrollment struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// EnrolledAt - время зачисления.
	EnrolledAt time.Time
}

// ChapterAccess представляет событие обращения студента к главе курса.
type ChapterAccess struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// ChapterID - идентификатор главы.
	ChapterID string

	// Completed - глава отмечена как завершённая.
	Completed bool

	// OccurredAt - время события.
	OccurredAt time.Time
}

// QuizAttempt представляет попытку прохождения квиза.
// Score нормализуется читателями событий к шкале 0-100 на границе хранилища.
type QuizAttempt struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// QuizID - идентификатор квиза.
	QuizID string

	// Score - результат попытки по шкале 0-100.
	Score float64

	// AttemptNumber - порядковый номер попытки (с 1).
	AttemptNumber int

	// Completed - попытка доведена до конца.
	Completed bool

	// CompletedAt - время завершения попытки.
	CompletedAt time.Time
}

// DiscussionPost представляет сообщение студента в обсуждениях курса.
type DiscussionPost struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// PostID - идентификатор сообщения.
	PostID string

	// PostedAt - время публикации.
	PostedAt time.Time
}

// CourseAccess представляет факт захода студента в курс (для лидерборда).
type CourseAccess struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// OccurredAt - время события.
	OccurredAt time.Time
}
