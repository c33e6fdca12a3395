package filesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func nextSnapshot(t *testing.T, ch <-chan models.Snapshot) models.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "snapshot channel closed")
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
		return models.Snapshot{}
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esame.json", `[{"id":"E1","corso":"Matematica","data":"2025-06-10 09:00"},{"corso":"senza id"}]`)

	docs, err := New(dir, logging.NewNopLogger()).Load("esame")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "E1", docs[0].ID)
	assert.JSONEq(t, `{"corso":"Matematica","data":"2025-06-10 09:00"}`, string(docs[0].Data))
	assert.Equal(t, "", docs[1].ID)
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "padiglione.yaml", `
- id: p1
  codice: MON
  descrizione: Monte Generoso
  posizione:
    lat: 45.8
    lng: 8.85
`)

	docs, err := New(dir, logging.NewNopLogger()).Load("padiglione")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	p, err := models.DecodePavilion(docs[0])
	require.NoError(t, err)
	assert.Equal(t, "MON", p.Code)
	assert.Equal(t, &models.GeoPoint{Lat: 45.8, Lng: 8.85}, p.Position)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	docs, err := New(t.TempDir(), logging.NewNopLogger()).Load("lezione")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esame.json", `{"not":"a list"}`)

	_, err := New(dir, logging.NewNopLogger()).Load("esame")
	assert.Error(t, err)
}

func TestSubscribe_EmitsInitialAndOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esame.json", `[{"id":"E1","corso":"A"}]`)

	src := New(dir, logging.NewNopLogger())
	src.debounce = 10 * time.Millisecond

	sub, err := src.Subscribe(context.Background(), "esame")
	require.NoError(t, err)
	defer sub.Close()

	first := nextSnapshot(t, sub.Snapshots())
	assert.Equal(t, "esame", first.Collection)
	assert.Len(t, first.Documents, 1)

	writeFile(t, dir, "esame.json", `[{"id":"E1","corso":"A"},{"id":"E2","corso":"B"}]`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-sub.Snapshots():
			if len(s.Documents) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("change was not picked up")
		}
	}
}

func TestSubscribe_MissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), logging.NewNopLogger()).Subscribe(context.Background(), "esame")
	assert.Error(t, err)
}
