package postgres

import (
	"context"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// WINDOW READER
// Читает события за полуоткрытый интервал [from, to) для расчёта рейтингов.
// Границы интервала интерпретируются самими запросами: >= from и < to.
// ══════════════════════════════════════════════════════════════════════════════

// WindowReaderRepo реализует progress.WindowReader поверх PostgreSQL.
type WindowReaderRepo struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewWindowReaderRepo создаёт репозиторий чтения событий по окну времени.
func NewWindowReaderRepo(conn *Connection) *WindowReaderRepo {
	return &WindowReaderRepo{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// ListChapterCompletionsInWindow возвращает завершения глав за интервал [from, to).
func (r *WindowReaderRepo) ListChapterCompletionsInWindow(ctx context.Context, from, to time.Time) ([]progress.ChapterAccess, error) {
	query := `
		SELECT user_id, course_id, chapter_id, completed, occurred_at
		FROM chapter_access_events
		WHERE completed AND occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at
	`

	var result []progress.ChapterAccess
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, from, to)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		events := make([]progress.ChapterAccess, 0)
		for rows.Next() {
			var ev progress.ChapterAccess
			if err := rows.Scan(&ev.UserID, &ev.CourseID, &ev.ChapterID, &ev.Completed, &ev.OccurredAt); err != nil {
				return retry.Permanent(err)
			}
			events = append(events, ev)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = events
		return nil
	})
	return result, err
}

// ListQuizCompletionsInWindow возвращает завершённые попытки квизов за интервал [from, to).
func (r *WindowReaderRepo) ListQuizCompletionsInWindow(ctx context.Context, from, to time.Time) ([]progress.QuizAttempt, error) {
	query := `
		SELECT user_id, course_id, quiz_id, score, max_score, attempt_number, completed, completed_at
		FROM quiz_attempts
		WHERE completed AND completed_at >= $1 AND completed_at < $2
		ORDER BY completed_at
	`

	var result []progress.QuizAttempt
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, from, to)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		attempts := make([]progress.QuizAttempt, 0)
		for rows.Next() {
			var (
				attempt  progress.QuizAttempt
				score    float64
				maxScore float64
			)
			if err := rows.Scan(
				&attempt.UserID, &attempt.CourseID, &attempt.QuizID,
				&score, &maxScore, &attempt.AttemptNumber,
				&attempt.Completed, &attempt.CompletedAt,
			); err != nil {
				return retry.Permanent(err)
			}
			attempt.Score = normalizeScore(score, maxScore)
			attempts = append(attempts, attempt)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = attempts
		return nil
	})
	return result, err
}

// ListCourseAccessInWindow возвращает события открытия курсов за интервал [from, to).
func (r *WindowReaderRepo) ListCourseAccessInWindow(ctx context.Context, from, to time.Time) ([]progress.CourseAccess, error) {
	query := `
		SELECT user_id, course_id, occurred_at
		FROM course_access_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at
	`

	var result []progress.CourseAccess
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, from, to)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		accesses := make([]progress.CourseAccess, 0)
		for rows.Next() {
			var ev progress.CourseAccess
			if err := rows.Scan(&ev.UserID, &ev.CourseID, &ev.OccurredAt); err != nil {
				return retry.Permanent(err)
			}
			accesses = append(accesses, ev)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = accesses
		return nil
	})
	return result, err
}

// Проверка реализации интерфейса на этапе компиляции.
var _ progress.WindowReader = (*WindowReaderRepo)(nil)
