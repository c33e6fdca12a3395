package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/insubria-survive/survive/internal/client/services"
	"github.com/insubria-survive/survive/internal/models"
)

const displayLayout = "02/01/2006 15:04"

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return services.NoDateLabel
	}
	return t.In(loc).Format(displayLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatExam(e models.Exam, loc *time.Location) string {
	return fmt.Sprintf("  [%s] %s  %s  aula %s, padiglione %s",
		e.ID, orDash(e.Course), formatTime(e.Date, loc), orDash(e.Room), orDash(e.Building))
}

func formatLesson(l models.Lesson, loc *time.Location) string {
	end := ""
	if !l.End.IsZero() {
		end = "-" + l.End.In(loc).Format("15:04")
	}
	return fmt.Sprintf("  [%s] %s%s  %s  aula %s, padiglione %s",
		l.ID, formatTime(l.Start, loc), end, orDash(l.Course), orDash(l.Room), orDash(l.Building))
}

func formatPavilion(p models.Pavilion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s  %s", p.Code, orDash(p.Description))
	if p.OpensAt != "" || p.ClosesAt != "" {
		fmt.Fprintf(&b, "  (%s-%s)", orDash(p.OpensAt), orDash(p.ClosesAt))
	}
	if p.Position == nil {
		b.WriteString("  [no position]")
	}
	return b.String()
}
