// Package filesource serves remote collections from a local directory.
//
// Each collection lives in <dir>/<collection>.json, .yaml or .yml as a list
// of objects carrying an "id" field. A full snapshot is emitted when the
// subscription starts and again after every change to the file, which makes
// the directory usable as an offline remote and as a test fixture.
package filesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/insubria-survive/survive/internal/client/remote"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
	"gopkg.in/yaml.v3"
)

var extensions = []string{".json", ".yaml", ".yml"}

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

type Source struct {
	dir      string
	logger   logging.Logger
	debounce time.Duration
	now      func() time.Time
}

func New(dir string, l logging.Logger) *Source {
	return &Source{
		dir:      dir,
		logger:   l.With("module", "filesource"),
		debounce: DefaultDebounce,
		now:      time.Now,
	}
}

func (s *Source) Subscribe(ctx context.Context, collection string) (*remote.Subscription, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	return remote.Start(ctx, collection, func(ctx context.Context, emit remote.Emitter) {
		defer watcher.Close()
		s.watch(ctx, collection, watcher, emit)
	}), nil
}

func (s *Source) watch(ctx context.Context, collection string, w *fsnotify.Watcher, emit remote.Emitter) {
	if !s.publish(ctx, collection, emit) {
		return
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !s.isCollectionFile(ev.Name, collection) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(s.debounce)

		case <-pending:
			pending = nil
			if !s.publish(ctx, collection, emit) {
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			if !emit.Error(ctx, fmt.Errorf("watch %s: %w", s.dir, err)) {
				return
			}
		}
	}
}

func (s *Source) publish(ctx context.Context, collection string, emit remote.Emitter) bool {
	docs, err := s.Load(collection)
	if err != nil {
		return emit.Error(ctx, err)
	}
	s.logger.Debug(ctx, "collection loaded", "collection", collection, "documents", len(docs))
	return emit.Snapshot(ctx, models.Snapshot{Collection: collection, Documents: docs, At: s.now().UTC()})
}

func (s *Source) isCollectionFile(path, collection string) bool {
	base := filepath.Base(path)
	for _, ext := range extensions {
		if base == collection+ext {
			return true
		}
	}
	return false
}

// Load reads the current documents of collection. A missing file is an
// empty collection.
func (s *Source) Load(collection string) ([]models.Document, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, collection+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs, err := parse(data, ext)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return docs, nil
	}
	return []models.Document{}, nil
}

func parse(data []byte, ext string) ([]models.Document, error) {
	var records []map[string]any
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	}

	docs := make([]models.Document, 0, len(records))
	for _, rec := range records {
		id, _ := rec["id"].(string)
		delete(rec, "id")
		raw, err := json.Marshal(rec)
		if err != nil {
			raw = json.RawMessage("null")
		}
		docs = append(docs, models.Document{ID: id, Data: raw})
	}
	return docs, nil
}
