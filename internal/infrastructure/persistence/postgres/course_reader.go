package postgres

import (
	"context"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE READER
// Читает актуальную топологию курсов. Количество глав всегда берётся из
// структуры, а не из событий: события могут ссылаться на удалённые главы.
// ══════════════════════════════════════════════════════════════════════════════

// CourseReaderRepo реализует progress.CourseReader поверх PostgreSQL.
type CourseReaderRepo struct {
	conn    *Connection
	retrier *retry.Retrier
}

// NewCourseReaderRepo создаёт репозиторий чтения структуры курсов.
func NewCourseReaderRepo(conn *Connection) *CourseReaderRepo {
	return &CourseReaderRepo{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// GetCourseStructure возвращает актуальную структуру курса.
func (r *CourseReaderRepo) GetCourseStructure(ctx context.Context, courseID string) (*progress.CourseStructure, error) {
	var structure progress.CourseStructure

	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		row := r.conn.QueryRow(ctx, `SELECT id, title, teacher_id FROM courses WHERE id = $1`, courseID)
		if err := row.Scan(&structure.CourseID, &structure.Title, &structure.TeacherID); err != nil {
			if IsNoRows(err) {
				return retry.Permanent(shared.ErrCourseNotFound)
			}
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	structure.ChapterIDs, err = r.listIDs(ctx,
		`SELECT chapter_id FROM course_chapters WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}

	structure.QuizIDs, err = r.listIDs(ctx,
		`SELECT quiz_id FROM course_quizzes WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}

	return &structure, nil
}

// ListCoursesByTeacher возвращает структуры всех курсов преподавателя.
// Несуществующий преподаватель - это shared.ErrNotFound.
func (r *CourseReaderRepo) ListCoursesByTeacher(ctx context.Context, teacherID string) ([]progress.CourseStructure, error) {
	var exists bool
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		row := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM teachers WHERE id = $1)`, teacherID)
		if err := row.Scan(&exists); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrTeacherNotFound
	}

	courseIDs, err := r.listIDs(ctx,
		`SELECT id FROM courses WHERE teacher_id = $1 ORDER BY id`, teacherID)
	if err != nil {
		return nil, err
	}

	structures := make([]progress.CourseStructure, 0, len(courseIDs))
	for _, id := range courseIDs {
		structure, err := r.GetCourseStructure(ctx, id)
		if err != nil {
			return nil, err
		}
		structures = append(structures, *structure)
	}

	return structures, nil
}

// ListCourseIDs возвращает идентификаторы всех курсов платформы.
// Используется джобой прогрева кэша аналитики.
func (r *CourseReaderRepo) ListCourseIDs(ctx context.Context) ([]string, error) {
	var result []string
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, `SELECT id FROM courses ORDER BY id`)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		ids := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return retry.Permanent(err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = ids
		return nil
	})
	return result, err
}

func (r *CourseReaderRepo) listIDs(ctx context.Context, query string, arg any) ([]string, error) {
	var result []string
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		rows, err := r.conn.Query(ctx, query, arg)
		if err != nil {
			return retry.Retryable(err)
		}
		defer rows.Close()

		ids := make([]string, 0)
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return retry.Permanent(err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return retry.Retryable(err)
		}

		result = ids
		return nil
	})
	return result, err
}

// Проверка реализации интерфейса на этапе компиляции.
var _ progress.CourseReader = (*CourseReaderRepo)(nil)
