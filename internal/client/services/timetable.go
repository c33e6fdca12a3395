package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/insubria-survive/survive/internal/client/repositories/exams"
	"github.com/insubria-survive/survive/internal/client/repositories/lessons"
	"github.com/insubria-survive/survive/internal/client/repositories/pavilions"
	"github.com/insubria-survive/survive/internal/models"
)

// NoDateLabel groups lessons without a start time.
const NoDateLabel = "Data non disponibile"

// Week is a group of lessons sharing an ISO week.
type Week struct {
	Label   string
	Lessons []models.Lesson
}

// TimetableService serves the read-only views over the local store.
type TimetableService interface {
	Weeks(ctx context.Context) ([]Week, error)
	Exams(ctx context.Context) ([]models.Exam, error)
	Exam(ctx context.Context, id string) (models.Exam, error)
	Lesson(ctx context.Context, id string) (models.Lesson, error)
	Pavilions(ctx context.Context) ([]models.Pavilion, error)
	Pavilion(ctx context.Context, code string) (models.Pavilion, error)
}

type timetableService struct {
	exams     exams.Repository
	lessons   lessons.Repository
	pavilions pavilions.Repository
	loc       *time.Location
}

// NewTimetableService groups weeks in loc (time.Local when nil).
func NewTimetableService(er exams.Repository, lr lessons.Repository, pr pavilions.Repository, loc *time.Location) TimetableService {
	if loc == nil {
		loc = time.Local
	}
	return &timetableService{exams: er, lessons: lr, pavilions: pr, loc: loc}
}

// Weeks sorts lessons by start and groups them by ISO week. Lessons
// without a start come last under NoDateLabel.
func (t *timetableService) Weeks(ctx context.Context) ([]Week, error) {
	list, err := t.lessons.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lessons: %w", err)
	}
	slices.SortStableFunc(list, models.CompareLessons)
	return GroupByWeek(list, t.loc), nil
}

// GroupByWeek expects lessons sorted by start.
func GroupByWeek(list []models.Lesson, loc *time.Location) []Week {
	var weeks []Week
	var undated []models.Lesson
	lastYear, lastWeek := -1, -1

	for _, l := range list {
		if l.Start.IsZero() {
			undated = append(undated, l)
			continue
		}
		year, week := l.Start.In(loc).ISOWeek()
		if year != lastYear || week != lastWeek {
			weeks = append(weeks, Week{Label: fmt.Sprintf("Settimana %d", week)})
			lastYear, lastWeek = year, week
		}
		weeks[len(weeks)-1].Lessons = append(weeks[len(weeks)-1].Lessons, l)
	}

	if len(undated) > 0 {
		weeks = append(weeks, Week{Label: NoDateLabel, Lessons: undated})
	}
	return weeks
}

func (t *timetableService) Exams(ctx context.Context) ([]models.Exam, error) {
	list, err := t.exams.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read exams: %w", err)
	}
	slices.SortStableFunc(list, models.CompareExams)
	return list, nil
}

func (t *timetableService) Exam(ctx context.Context, id string) (models.Exam, error) {
	return t.exams.GetByID(ctx, id)
}

func (t *timetableService) Lesson(ctx context.Context, id string) (models.Lesson, error) {
	return t.lessons.GetByID(ctx, id)
}

func (t *timetableService) Pavilions(ctx context.Context) ([]models.Pavilion, error) {
	list, err := t.pavilions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read pavilions: %w", err)
	}
	slices.SortStableFunc(list, models.ComparePavilions)
	return list, nil
}

func (t *timetableService) Pavilion(ctx context.Context, code string) (models.Pavilion, error) {
	return t.pavilions.GetByCode(ctx, code)
}
