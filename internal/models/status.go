package models

import (
	"fmt"

	"github.com/insubria-survive/survive/internal/common"
)

// Status is the personal state a user attaches to an exam.
// Values are persisted with their Italian names.
type Status string

const (
	StatusToDo      Status = "DA_FARE"
	StatusUndecided Status = "IN_FORSE"
	StatusSkip      Status = "NON_FARE"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusToDo, StatusUndecided, StatusSkip}

// ParseStatus accepts the persisted names and the short English aliases
// used on the command line ("todo", "undecided", "skip").
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusToDo), "todo", "TO_DO":
		return StatusToDo, nil
	case string(StatusUndecided), "undecided", "UNDECIDED":
		return StatusUndecided, nil
	case string(StatusSkip), "skip", "SKIP":
		return StatusSkip, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrorInvalidStatus, s)
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusToDo || s == StatusUndecided || s == StatusSkip
}

// Label is the human readable name shown in the client.
func (s Status) Label() string {
	switch s {
	case StatusToDo:
		return "Da fare"
	case StatusUndecided:
		return "In forse"
	case StatusSkip:
		return "Non fare"
	default:
		return string(s)
	}
}
