package leaderboard

import "github.com/eduflip/eduflip-analytics/internal/domain/shared"

// ScoreWeights задаёт стоимость каждого типа активности в очках.
// Веса задаются конфигурацией и могут меняться между развёртываниями,
// поэтому формула нигде не использует числовые литералы напрямую.
type ScoreWeights struct {
	// ChapterCompleted - очки за завершённую главу.
	ChapterCompleted int

	// QuizCompleted - очки за пройденный квиз.
	QuizCompleted int

	// CourseAccessed - очки за каждый курс, открытый в этом месяце.
	CourseAccessed int
}

// DefaultWeights возвращает веса по умолчанию.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		ChapterCompleted: 10,
		QuizCompleted:    20,
		CourseAccessed:   5,
	}
}

// Validate проверяет, что веса неотрицательны и хотя бы один положителен.
func (w ScoreWeights) Validate() error {
	if w.ChapterCompleted < 0 || w.QuizCompleted < 0 || w.CourseAccessed < 0 {
		return shared.ErrInvalidWeights
	}
	if w.ChapterCompleted == 0 && w.QuizCompleted == 0 && w.CourseAccessed == 0 {
		return shared.ErrInvalidWeights
	}
	return nil
}

// Score вычисляет очки для набора счётчиков активности.
func (w ScoreWeights) Score(chapters, quizzes, courses int) int {
	return chapters*w.ChapterCompleted + quizzes*w.QuizCompleted + courses*w.CourseAccessed
}
