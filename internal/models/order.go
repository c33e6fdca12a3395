package models

import (
	"cmp"
	"strings"
)

// CompareExams orders by course name, case-insensitively, then by date.
func CompareExams(a, b Exam) int {
	if c := cmp.Compare(strings.ToLower(a.Course), strings.ToLower(b.Course)); c != 0 {
		return c
	}
	return a.Date.Compare(b.Date)
}

// CompareLessons orders by start, then by course name.
func CompareLessons(a, b Lesson) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.Course), strings.ToLower(b.Course))
}

// ComparePavilions orders by building code, then by opening time.
func ComparePavilions(a, b Pavilion) int {
	if c := cmp.Compare(a.Code, b.Code); c != 0 {
		return c
	}
	return cmp.Compare(a.OpensAt, b.OpensAt)
}
