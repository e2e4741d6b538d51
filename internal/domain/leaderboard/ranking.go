package leaderboard

import (
	"sort"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Entry представляет позицию одного студента в месячном рейтинге.
type Entry struct {
	// UserID - идентификатор студента.
	UserID string

	// Rank - позиция в рейтинге, начиная с 1.
	Rank int

	// Score - очки за месяц.
	Score int

	// ChaptersCompleted - завершено глав за месяц (уникальных).
	ChaptersCompleted int

	// QuizzesCompleted - пройдено квизов за месяц (уникальных).
	QuizzesCompleted int

	// CoursesAccessed - открыто курсов за месяц (уникальных).
	CoursesAccessed int
}

// Ranking представляет рассчитанный рейтинг за один месяц.
type Ranking struct {
	// Window - окно месяца, за который рассчитан рейтинг.
	Window MonthWindow

	// Entries - записи в итоговом порядке, ранги с 1 без пропусков.
	Entries []Entry

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time
}

// TotalParticipants возвращает количество студентов в рейтинге.
func (r *Ranking) TotalParticipants() int {
	return len(r.Entries)
}

// Find возвращает запись студента, если он есть в рейтинге.
func (r *Ranking) Find(userID string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}

// Top возвращает первые n записей рейтинга.
func (r *Ranking) Top(n int) []Entry {
	if n <= 0 || n >= len(r.Entries) {
		return r.Entries
	}
	return r.Entries[:n]
}

// RankingInput содержит события для расчёта рейтинга.
// События могут приходить с запасом по времени: расчёт сам отфильтрует
// всё, что не попадает в окно месяца.
type RankingInput struct {
	// Window - окно месяца.
	Window MonthWindow

	// ChapterCompletions - события завершения глав.
	ChapterCompletions []progress.ChapterAccess

	// QuizCompletions - завершённые попытки квизов.
	QuizCompletions []progress.QuizAttempt

	// CourseAccess - события открытия курсов.
	CourseAccess []progress.CourseAccess

	// Weights - веса очков.
	Weights ScoreWeights

	// Now - момент расчёта.
	Now time.Time
}

// userCounts - счётчики активности одного студента за месяц.
type userCounts struct {
	chapters map[string]struct{}
	quizzes  map[string]struct{}
	courses  map[string]struct{}
}

// ComputeRanking детерминированно рассчитывает месячный рейтинг.
// Правила:
//   - учитываются только события внутри окна [начало, начало следующего);
//   - главы, квизы и курсы считаются уникально по (курс, сущность);
//   - сортировка: очки по убыванию, затем главы по убыванию, затем userID;
//   - ранги позиционные, с 1 по N, без пропусков и без разделения;
//   - студенты с нулевыми очками в рейтинг не попадают.
func ComputeRanking(in RankingInput) *Ranking {
	counts := make(map[string]*userCounts)

	get := func(userID string) *userCounts {
		c, ok := counts[userID]
		if !ok {
			c = &userCounts{
				chapters: make(map[string]struct{}),
				quizzes:  make(map[string]struct{}),
				courses:  make(map[string]struct{}),
			}
			counts[userID] = c
		}
		return c
	}

	for _, ev := range in.ChapterCompletions {
		if !ev.Completed || !in.Window.Contains(ev.OccurredAt) {
			continue
		}
		get(ev.UserID).chapters[ev.CourseID+"/"+ev.ChapterID] = struct{}{}
	}
	for _, ev := range in.QuizCompletions {
		if !ev.Completed || !in.Window.Contains(ev.CompletedAt) {
			continue
		}
		get(ev.UserID).quizzes[ev.CourseID+"/"+ev.QuizID] = struct{}{}
	}
	for _, ev := range in.CourseAccess {
		if !in.Window.Contains(ev.OccurredAt) {
			continue
		}
		get(ev.UserID).courses[ev.CourseID] = struct{}{}
	}

	entries := make([]Entry, 0, len(counts))
	for userID, c := range counts {
		entry := Entry{
			UserID:            userID,
			ChaptersCompleted: len(c.chapters),
			QuizzesCompleted:  len(c.quizzes),
			CoursesAccessed:   len(c.courses),
		}
		entry.Score = in.Weights.Score(entry.ChaptersCompleted, entry.QuizzesCompleted, entry.CoursesAccessed)
		if entry.Score == 0 {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].ChaptersCompleted != entries[j].ChaptersCompleted {
			return entries[i].ChaptersCompleted > entries[j].ChaptersCompleted
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return &Ranking{
		Window:      in.Window,
		Entries:     entries,
		GeneratedAt: in.Now,
	}
}
