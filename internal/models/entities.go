package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Exam is a scheduled exam session.
type Exam struct {
	ID       string
	Course   string
	Date     time.Time
	Room     string
	Building string
}

// Lesson is a single timetable slot. Start or End may be zero when the
// remote record does not carry them.
type Lesson struct {
	ID       string
	Course   string
	Start    time.Time
	End      time.Time
	Room     string
	Building string
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the point as "lat,lng", the form stored locally.
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// ParseGeoPoint parses the "lat,lng" form. An empty string yields nil.
func ParseGeoPoint(s string) (*GeoPoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	latS, lngS, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("malformed position %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude %q: %w", latS, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude %q: %w", lngS, err)
	}
	return &GeoPoint{Lat: lat, Lng: lng}, nil
}

// Pavilion is a campus building. Code is the local primary key; ID is the
// remote document id.
type Pavilion struct {
	ID          string
	Code        string
	Description string
	OpensAt     string
	ClosesAt    string
	Position    *GeoPoint
}

// Preference is the status a user attached to an exam. ID is assigned by
// the local store; (ExamID, UserID) is unique.
type Preference struct {
	ID     int64
	ExamID string
	UserID string
	Status Status
}

// User is the authenticated student held by the session.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// ExamWithStatus joins an exam with the current user's status for it.
type ExamWithStatus struct {
	Exam   Exam
	Status Status
}

// Partitions groups derived exams by status. Within a partition exams keep
// the order they were read in.
type Partitions struct {
	ToDo      []ExamWithStatus
	Undecided []ExamWithStatus
	Skip      []ExamWithStatus
}

// Add appends e to the partition matching its status. Unknown statuses land
// in Undecided.
func (p *Partitions) Add(e ExamWithStatus) {
	switch e.Status {
	case StatusToDo:
		p.ToDo = append(p.ToDo, e)
	case StatusSkip:
		p.Skip = append(p.Skip, e)
	default:
		p.Undecided = append(p.Undecided, e)
	}
}

// Of returns the partition for s.
func (p Partitions) Of(s Status) []ExamWithStatus {
	switch s {
	case StatusToDo:
		return p.ToDo
	case StatusSkip:
		return p.Skip
	default:
		return p.Undecided
	}
}

// Len is the total number of exams across partitions.
func (p Partitions) Len() int {
	return len(p.ToDo) + len(p.Undecided) + len(p.Skip)
}
