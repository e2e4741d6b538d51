package postgres

import (
	"context"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT READER
// Зачисления - авторитетный источник членства в курсе.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentReaderRepo реализует progress.EnrollmentReader поверх PostgreSQL.
type EnrollmentReaderRepo struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewEnrollmentReaderRepo создаёт репозиторий чтения зачислений.
func NewEnrollmentReaderRepo(conn *Connection) *EnrollmentReaderRepo {
	return &EnrollmentReaderRepo{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// ListEnrollments возвращает все зачисления на курс.
// Несуществующий курс - это shared.ErrNotFound, а не пустой список.
func (r *EnrollmentReaderRepo) ListEnrollments(ctx context.Context, courseID string) ([]progress.Enrollment, error) {
	exists, err := r.courseExists(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrCourseNotFound
	}

	query := `
		SELECT user_id, course_id, enrolled_at
		FROM enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at
	`
	return r.listEnrollments(ctx, query, courseID)
}

// ListEnrollmentsForUser возвращает все курсы, на которые зачислен студент.
func (r *EnrollmentReaderRepo) ListEnrollmentsForUser(ctx context.Context, userID string) ([]progress.Enrollment, error) {
	query := `
		SELECT user_id, course_id, enrolled_at
		FROM enrollments
		WHERE user_id = $1
		ORDER BY enrolled_at
	`
	return r.listEnrollments(ctx, query, userID)
}

func (r *EnrollmentReaderRepo) listEnrollments(ctx context.Context, query string, arg any) ([]progress.Enrollment, error) {
	var result []progress.Enrollment
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, arg)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		enrollments := make([]progress.Enrollment, 0)
		for rows.Next() {
			var e progress.Enrollment
			if err := rows.Scan(&e.UserID, &e.CourseID, &e.EnrolledAt); err != nil {
				return retry.Permanent(err)
			}
			enrollments = append(enrollments, e)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = enrollments
		return nil
	})
	return result, err
}

func (r *EnrollmentReaderRepo) courseExists(ctx context.Context, courseID string) (bool, error) {
	var exists bool
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		row := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID)
		if err := row.Scan(&exists); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	return exists, err
}

// Проверка реализации интерфейса на этапе компиляции.
var _ progress.EnrollmentReader = (*EnrollmentReaderRepo)(nil)
