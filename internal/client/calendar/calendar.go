// Package calendar turns exams and lessons into calendar events and
// publishes them as iCalendar files.
package calendar

import (
	"fmt"
	"time"

	"github.com/insubria-survive/survive/internal/models"
)

// DefaultDuration is used when an entity has no end time.
const DefaultDuration = 2 * time.Hour

const notAvailable = "ND"

// now is swapped in tests.
var now = time.Now

type Event struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

func orND(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func location(room, building string) string {
	switch {
	case room == "" && building == "":
		return ""
	case building == "":
		return "Aula " + room
	case room == "":
		return "Padiglione " + building
	default:
		return fmt.Sprintf("Aula %s, Padiglione %s", room, building)
	}
}

// EventFromExam lasts DefaultDuration from the exam date. An exam without
// a date starts now.
func EventFromExam(e models.Exam, loc *time.Location) Event {
	if loc == nil {
		loc = time.Local
	}
	title := e.Course
	if title == "" {
		title = "Esame"
	}
	start := e.Date
	if start.IsZero() {
		start = now()
	}
	start = start.In(loc)

	return Event{
		UID:         "esame-" + e.ID + "@insubria-survive",
		Title:       title,
		Description: fmt.Sprintf("Esame programmato. Aula: %s, Padiglione: %s", orND(e.Room), orND(e.Building)),
		Location:    location(e.Room, e.Building),
		Start:       start,
		End:         start.Add(DefaultDuration),
	}
}

// EventFromLesson uses the lesson end when present, DefaultDuration
// otherwise.
func EventFromLesson(l models.Lesson, loc *time.Location) Event {
	if loc == nil {
		loc = time.Local
	}
	title := l.Course
	if title == "" {
		title = "Lezione"
	}
	start := l.Start
	if start.IsZero() {
		start = now()
	}
	start = start.In(loc)

	end := start.Add(DefaultDuration)
	if !l.End.IsZero() {
		end = l.End.In(loc)
	}

	return Event{
		UID:         "lezione-" + l.ID + "@insubria-survive",
		Title:       title,
		Description: fmt.Sprintf("Lezione programmata. Aula: %s, Padiglione: %s", orND(l.Room), orND(l.Building)),
		Location:    location(l.Room, l.Building),
		Start:       start,
		End:         end,
	}
}
