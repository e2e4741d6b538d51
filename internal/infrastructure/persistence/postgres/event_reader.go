package postgres

import (
	"context"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT READER
// Читает исходные события обучения из внешних хранилищ.
// Квизовые баллы нормализуются к шкале 0-100 прямо на этой границе.
// ══════════════════════════════════════════════════════════════════════════════

// EventReaderRepo реализует progress.EventReader поверх PostgreSQL.
type EventReaderRepo struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewEventReaderRepo создаёт репозиторий чтения событий.
func NewEventReaderRepo(conn *Connection) *EventReaderRepo {
	return &EventReaderRepo{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// ListChapterAccess возвращает события обращений студента к главам курса.
func (r *EventReaderRepo) ListChapterAccess(ctx context.Context, userID, courseID string) ([]progress.ChapterAccess, error) {
	query := `
		SELECT user_id, course_id, chapter_id, completed, occurred_at
		FROM chapter_access_events
		WHERE user_id = $1 AND course_id = $2
		ORDER BY occurred_at
	`

	var result []progress.ChapterAccess
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, userID, courseID)
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

// ListQuizAttempts возвращает попытки квизов студента.
// Балл нормализуется: score/max_score * 100. Попытка с нулевым max_score
// даёт 0 баллов, а не деление на ноль.
func (r *EventReaderRepo) ListQuizAttempts(ctx context.Context, userID, courseID string) ([]progress.QuizAttempt, error) {
	query := `
		SELECT user_id, course_id, quiz_id, score, max_score, attempt_number, completed, completed_at
		FROM quiz_attempts
		WHERE user_id = $1 AND course_id = $2
		ORDER BY completed_at
	`

	var result []progress.QuizAttempt
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, userID, courseID)
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

// ListDiscussionPosts возвращает сообщения студента в обсуждениях курса.
func (r *EventReaderRepo) ListDiscussionPosts(ctx context.Context, userID, courseID string) ([]progress.DiscussionPost, error) {
	query := `
		SELECT id, user_id, course_id, posted_at
		FROM discussion_posts
		WHERE user_id = $1 AND course_id = $2
		ORDER BY posted_at
	`

	var result []progress.DiscussionPost
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, userID, courseID)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		posts := make([]progress.DiscussionPost, 0)
		for rows.Next() {
			var post progress.DiscussionPost
			if err := rows.Scan(&post.PostID, &post.UserID, &post.CourseID, &post.PostedAt); err != nil {
				return retry.Permanent(err)
			}
			posts = append(posts, post)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = posts
		return nil
	})
	return result, err
}

// normalizeScore приводит балл к шкале 0-100.
func normalizeScore(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	normalized := 100 * score / maxScore
	if normalized < 0 {
		return 0
	}
	if normalized > 100 {
		return 100
	}
	return normalized
}

// Проверка реализации интерфейса на этапе компиляции.
var _ progress.EventReader = (*EventReaderRepo)(nil)
