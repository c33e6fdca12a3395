package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/timex"
)

// Document is one record of a remote collection: its id and the raw JSON
// object holding the fields.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is the complete content of a remote collection at At.
type Snapshot struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
	At         time.Time  `json:"at"`
}

// instant accepts the shapes timestamps take on the wire: RFC3339 strings,
// "yyyy-MM-dd HH:mm" strings in the campus location, and
// {"seconds": n, "nanoseconds": n} objects. Null or absent means zero.
type instant struct {
	raw json.RawMessage
}

func (i *instant) UnmarshalJSON(b []byte) error {
	i.raw = append(i.raw[:0], b...)
	return nil
}

func (i instant) time(loc *time.Location) (time.Time, error) {
	t, err := i.parse(loc)
	if err != nil {
		return time.Time{}, err
	}
	if err := timex.CheckStorable(t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (i instant) parse(loc *time.Location) (time.Time, error) {
	raw := bytes.TrimSpace(i.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if strings.TrimSpace(s) == "" {
			return time.Time{}, nil
		}
		return timex.ParseStored(s, loc)
	case '{':
		var ts struct {
			Seconds     *int64 `json:"seconds"`
			Nanoseconds int64  `json:"nanoseconds"`
		}
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, err
		}
		if ts.Seconds == nil {
			return time.Time{}, fmt.Errorf("timestamp without seconds")
		}
		return time.Unix(*ts.Seconds, ts.Nanoseconds).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %s", raw)
}

type examWire struct {
	Corso      string  `json:"corso"`
	Course     string  `json:"course"`
	Data       instant `json:"data"`
	Aula       string  `json:"aula"`
	Padiglione string  `json:"padiglione"`
}

type lessonWire struct {
	Corso      string  `json:"corso"`
	Course     string  `json:"course"`
	DataInizio instant `json:"data_inizio"`
	DataFine   instant `json:"data_fine"`
	Aula       string  `json:"aula"`
	Padiglione string  `json:"padiglione"`
}

type pavilionWire struct {
	Codice           string          `json:"codice"`
	CodicePadiglione string          `json:"codice_padiglione"`
	Descrizione      string          `json:"descrizione"`
	OraApertura      string          `json:"ora_apertura"`
	OraChiusura      string          `json:"ora_chiusura"`
	Posizione        json.RawMessage `json:"posizione"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func invalid(doc Document, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", common.ErrorInvalidDocument, doc.ID, fmt.Sprintf(format, args...))
}

func decodeObject(doc Document, v any) error {
	if doc.ID == "" {
		return invalid(doc, "missing id")
	}
	data := bytes.TrimSpace(doc.Data)
	if len(data) == 0 || data[0] != '{' {
		return invalid(doc, "data is not an object")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalid(doc, "%v", err)
	}
	return nil
}

// DecodeExam turns an "esame" document into an Exam. Local-time strings are
// interpreted in loc.
func DecodeExam(doc Document, loc *time.Location) (Exam, error) {
	var w examWire
	if err := decodeObject(doc, &w); err != nil {
		return Exam{}, err
	}
	date, err := w.Data.time(loc)
	if err != nil {
		return Exam{}, invalid(doc, "data: %v", err)
	}
	return Exam{
		ID:       doc.ID,
		Course:   firstNonEmpty(w.Corso, w.Course),
		Date:     date,
		Room:     w.Aula,
		Building: w.Padiglione,
	}, nil
}

// DecodeLesson turns a "lezione" document into a Lesson.
func DecodeLesson(doc Document, loc *time.Location) (Lesson, error) {
	var w lessonWire
	if err := decodeObject(doc, &w); err != nil {
		return Lesson{}, err
	}
	start, err := w.DataInizio.time(loc)
	if err != nil {
		return Lesson{}, invalid(doc, "data_inizio: %v", err)
	}
	end, err := w.DataFine.time(loc)
	if err != nil {
		return Lesson{}, invalid(doc, "data_fine: %v", err)
	}
	return Lesson{
		ID:       doc.ID,
		Course:   firstNonEmpty(w.Corso, w.Course),
		Start:    start,
		End:      end,
		Room:     w.Aula,
		Building: w.Padiglione,
	}, nil
}

// DecodePavilion turns a "padiglione" document into a Pavilion. The code is
// required because it keys the local table.
func DecodePavilion(doc Document) (Pavilion, error) {
	var w pavilionWire
	if err := decodeObject(doc, &w); err != nil {
		return Pavilion{}, err
	}
	code := firstNonEmpty(w.Codice, w.CodicePadiglione)
	if code == "" {
		return Pavilion{}, invalid(doc, "missing codice")
	}
	pos, err := decodePosition(w.Posizione)
	if err != nil {
		return Pavilion{}, invalid(doc, "posizione: %v", err)
	}
	return Pavilion{
		ID:          doc.ID,
		Code:        code,
		Description: w.Descrizione,
		OpensAt:     w.OraApertura,
		ClosesAt:    w.OraChiusura,
		Position:    pos,
	}, nil
}

func decodePosition(raw json.RawMessage) (*GeoPoint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ParseGeoPoint(s)
	}
	var p struct {
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Lat == nil {
		p.Lat = p.Latitude
	}
	if p.Lng == nil {
		p.Lng = p.Longitude
	}
	if p.Lat == nil || p.Lng == nil {
		return nil, fmt.Errorf("incomplete coordinate")
	}
	return &GeoPoint{Lat: *p.Lat, Lng: *p.Lng}, nil
}

// NewDocument marshals v into a Document with the given id.
func NewDocument(id string, v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Data: data}, nil
}
