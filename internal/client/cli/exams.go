package cli

import (
	"context"
	"fmt"

	"github.com/insubria-survive/survive/internal/models"
)

func (a *App) printPartition(status models.Status, list []models.ExamWithStatus) {
	printlnFn(fmt.Sprintf("%s (%d)", status.Label(), len(list)))
	for _, e := range list {
		printlnFn(formatExam(e.Exam, a.loc))
	}
}

// Exams derives and prints the three partitions of the current user.
func (a *App) Exams(ctx context.Context) error {
	parts, err := a.prefs.Derive(ctx)
	if err != nil {
		return err
	}
	for _, s := range models.Statuses {
		a.printPartition(s, parts.Of(s))
	}
	return nil
}

// Prefs prints exams by stored status. Without an argument every status
// is shown.
func (a *App) Prefs(ctx context.Context, args []string) error {
	statuses := models.Statuses
	if len(args) > 0 {
		s, err := models.ParseStatus(args[0])
		if err != nil {
			return err
		}
		statuses = []models.Status{s}
	}

	for _, s := range statuses {
		list, err := a.prefs.ByStatus(ctx, s)
		if err != nil {
			return err
		}
		a.printPartition(s, list)
	}
	return nil
}

// SetStatus handles "status <exam> <todo|undecided|skip>".
func (a *App) SetStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		printlnFn("Usage: status <exam> <todo|undecided|skip>")
		return nil
	}
	s, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}

	parts, err := a.prefs.SetStatus(ctx, args[0], s)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%s -> %s (%d %s)", args[0], s.Label(), len(parts.Of(s)), s.Label()))
	return nil
}
