package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/insubria-survive/survive/internal/client/maps"
)

func (a *App) Lessons(ctx context.Context) error {
	weeks, err := a.timetable.Weeks(ctx)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		printlnFn("No lessons yet")
		return nil
	}
	for _, w := range weeks {
		printlnFn(w.Label)
		for _, l := range w.Lessons {
			printlnFn(formatLesson(l, a.loc))
		}
	}
	return nil
}

func (a *App) Pavilions(ctx context.Context) error {
	list, err := a.timetable.Pavilions(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn("No pavilions yet")
		return nil
	}
	for _, p := range list {
		printlnFn(formatPavilion(p))
	}
	return nil
}

// Map prints the navigation links of a pavilion after confirmation.
func (a *App) Map(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: map <pavilion code>")
		return nil
	}

	p, err := a.timetable.Pavilion(ctx, args[0])
	if err != nil {
		return err
	}

	ok, err := getConfirm(a.reader, fmt.Sprintf("Open the map for PADIGLIONE %s?", p.Code), a.out)
	if err != nil || !ok {
		return err
	}

	links, err := maps.Link(p)
	if errors.Is(err, maps.ErrNoPosition) {
		printlnFn("No position known for", p.Code)
		return nil
	}
	if err != nil {
		return err
	}
	printlnFn(links.Geo)
	printlnFn(links.Web)
	return nil
}
