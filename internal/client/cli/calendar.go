package cli

import (
	"context"
	"fmt"

	"github.com/insubria-survive/survive/internal/client/calendar"
	"github.com/insubria-survive/survive/internal/models"
)

const calendarUsage = "Usage: calendar exam <id> | calendar lesson <id> | calendar todo"

// Calendar exports exams or lessons as an .ics file and prints the link.
// Exams need a login; lessons do not.
func (a *App) Calendar(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn(calendarUsage)
		return nil
	}

	var events []calendar.Event
	switch {
	case args[0] == "exam" && len(args) == 2:
		if !a.isLoggedIn() {
			printlnFn("Please login first")
			return nil
		}
		e, err := a.timetable.Exam(ctx, args[1])
		if err != nil {
			return err
		}
		events = append(events, calendar.EventFromExam(e, a.loc))

	case args[0] == "lesson" && len(args) == 2:
		l, err := a.timetable.Lesson(ctx, args[1])
		if err != nil {
			return err
		}
		events = append(events, calendar.EventFromLesson(l, a.loc))

	case args[0] == "todo" && len(args) == 1:
		if !a.isLoggedIn() {
			printlnFn("Please login first")
			return nil
		}
		list, err := a.prefs.ByStatus(ctx, models.StatusToDo)
		if err != nil {
			return err
		}
		for _, e := range list {
			events = append(events, calendar.EventFromExam(e.Exam, a.loc))
		}

	default:
		printlnFn(calendarUsage)
		return nil
	}

	if len(events) == 0 {
		printlnFn("Nothing to export")
		return nil
	}

	ok, err := getConfirm(a.reader, fmt.Sprintf("Add %d event(s) to the calendar?", len(events)), a.out)
	if err != nil || !ok {
		return err
	}

	link, err := a.exporter.Export(ctx, events...)
	if err != nil {
		return fmt.Errorf("calendar export failed: %w", err)
	}
	printlnFn("Calendar ready:", link)
	return nil
}
