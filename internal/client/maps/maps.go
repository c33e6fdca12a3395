// Package maps builds navigation links to campus pavilions.
package maps

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/insubria-survive/survive/internal/models"
)

var ErrNoPosition = errors.New("pavilion has no position")

type Links struct {
	// Geo is an RFC 5870 geo URI understood by mobile map apps.
	Geo string
	Web string
}

func label(p models.Pavilion) string {
	return "PADIGLIONE " + p.Code
}

// Link returns the navigation links for p.
func Link(p models.Pavilion) (Links, error) {
	if p.Position == nil {
		return Links{}, fmt.Errorf("%s: %w", p.Code, ErrNoPosition)
	}
	pos := p.Position.String()

	web := url.URL{
		Scheme:   "https",
		Host:     "www.google.com",
		Path:     "/maps/search/",
		RawQuery: url.Values{"api": {"1"}, "query": {pos}}.Encode(),
	}

	return Links{
		Geo: fmt.Sprintf("geo:%s?q=%s(%s)", pos, pos, url.PathEscape(label(p))),
		Web: web.String(),
	}, nil
}
