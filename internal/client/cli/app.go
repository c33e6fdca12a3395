package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/insubria-survive/survive/internal/client/calendar"
	"github.com/insubria-survive/survive/internal/client/config"
	"github.com/insubria-survive/survive/internal/client/repositories/metadata"
	"github.com/insubria-survive/survive/internal/client/services"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// runner is a synchronizer as seen by the App.
type runner interface {
	Collection() string
	Run(ctx context.Context) error
	Stop()
	Wait()
}

type App struct {
	config    *config.Config
	auth      services.AuthService
	prefs     services.PreferenceService
	timetable services.TimetableService
	exporter  calendar.Exporter
	metadata  metadata.Repository
	gatherer  prometheus.Gatherer
	loc       *time.Location
	logger    logging.Logger
	reader    *bufio.Reader
	out       io.Writer

	runners []runner
	closers []func() error
	wg      sync.WaitGroup

	modeMu sync.RWMutex
	mode   Mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	_, ok := a.auth.Current()
	return ok
}

// Run starts the synchronizers and the connectivity watcher, then blocks
// in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer a.Close()
	defer cancel()

	a.startSync(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.Root(ctx)
}

// startSync runs every synchronizer in its own goroutine.
func (a *App) startSync(ctx context.Context) {
	for _, r := range a.runners {
		a.wg.Add(1)
		go func(r runner) {
			defer a.wg.Done()
			if err := r.Run(ctx); err != nil {
				a.logger.Error(ctx, "synchronizer stopped", "collection", r.Collection(), "error", err)
			}
		}(r)
	}
}

// Close stops the synchronizers, waits for pending writes and releases
// the store, the connection and the log file.
func (a *App) Close() {
	for _, r := range a.runners {
		r.Stop()
	}
	a.wg.Wait()
	for _, r := range a.runners {
		r.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.auth.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func newApp(c *config.Config) *App {
	return &App{
		config: c,
		loc:    c.Location(),
		logger: logging.NewNopLogger(),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}
