package progress

// CourseStructure представляет актуальную топологию курса.
// Количество глав берётся отсюда, а не из событий: события могут ссылаться
// на главы, удалённые из курса позже.
type CourseStructure struct {
	// CourseID - идентификатор курса.
	CourseID string

	// Title - название курса.
	Title string

	// TeacherID - идентификатор преподавателя-владельца.
	TeacherID string

	// ChapterIDs - идентификаторы глав в актуальной структуре.
	ChapterIDs []string

	// QuizIDs - идентификаторы квизов в актуальной структуре.
	QuizIDs []string
}

// TotalChapters возвращает количество глав в актуальной структуре.
func (s CourseStructure) TotalChapters() int {
	return len(s.ChapterIDs)
}

// HasChapter проверяет принадлежность главы актуальной структуре.
func (s CourseStructure) HasChapter(chapterID string) bool {
	for _, id := range s.ChapterIDs {
		if id == chapterID {
			return true
		}
	}
	return false
}
