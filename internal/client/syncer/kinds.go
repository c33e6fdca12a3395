package syncer

import (
	"context"
	"time"

	"github.com/insubria-survive/survive/internal/client/repositories/exams"
	"github.com/insubria-survive/survive/internal/client/repositories/lessons"
	"github.com/insubria-survive/survive/internal/client/repositories/pavilions"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
)

// Kind binds an entity type to its remote collection and local table.
type Kind[T any] struct {
	Collection string
	Decode     func(models.Document) (T, error)
	// Compare orders entities before they are published; the sort is stable.
	Compare func(a, b T) int
	Upsert  func(ctx context.Context, v T) error
	// Key identifies an entity in logs.
	Key func(T) string
}

// ExamKind mirrors "esame" into repo. loc interprets local-time strings.
func ExamKind(repo exams.Repository, loc *time.Location) Kind[models.Exam] {
	return Kind[models.Exam]{
		Collection: common.CollectionExams,
		Decode:     func(d models.Document) (models.Exam, error) { return models.DecodeExam(d, loc) },
		Compare:    models.CompareExams,
		Upsert:     repo.Upsert,
		Key:        func(e models.Exam) string { return e.ID },
	}
}

func LessonKind(repo lessons.Repository, loc *time.Location) Kind[models.Lesson] {
	return Kind[models.Lesson]{
		Collection: common.CollectionLessons,
		Decode:     func(d models.Document) (models.Lesson, error) { return models.DecodeLesson(d, loc) },
		Compare:    models.CompareLessons,
		Upsert:     repo.Upsert,
		Key:        func(l models.Lesson) string { return l.ID },
	}
}

func PavilionKind(repo pavilions.Repository) Kind[models.Pavilion] {
	return Kind[models.Pavilion]{
		Collection: common.CollectionPavilions,
		Decode:     models.DecodePavilion,
		Compare:    models.ComparePavilions,
		Upsert:     repo.Upsert,
		Key:        func(p models.Pavilion) string { return p.Code },
	}
}
