// Package syncer mirrors remote collections into the local store.
//
// A Synchronizer owns one remote subscription. For every snapshot it
// decodes the documents (dropping and logging the ones that fail), sorts
// them, publishes the ordered slice to observers and then writes every
// entity to the local store in the background. Publishing never waits for
// storage. Run holds the subscription until its context is cancelled or
// Stop is called.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/insubria-survive/survive/internal/client/remote"
	"github.com/insubria-survive/survive/internal/client/repositories/metadata"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/insubria-survive/survive/internal/models"
)

const DefaultWorkers = 4

var (
	ErrAlreadyRunning = errors.New("synchronizer already running")
	ErrSourceClosed   = errors.New("remote subscription ended")
)

type Options struct {
	// Metadata records last_sync:<collection> after each stored snapshot.
	// Optional.
	Metadata metadata.Repository
	Logger   logging.Logger
	Metrics  *metrics.Sync
	// Workers bounds concurrent local writes. Defaults to DefaultWorkers.
	Workers int
}

// Hook runs after every entity of a snapshot has been written.
type Hook func(ctx context.Context, collection string)

type Synchronizer[T any] struct {
	kind    Kind[T]
	source  remote.Source
	meta    metadata.Repository
	logger  logging.Logger
	metrics *metrics.Sync
	now     func() time.Time

	sem      chan struct{}
	inflight sync.WaitGroup

	mu        sync.RWMutex
	latest    []T
	observers map[int]func([]T)
	nextObs   int
	hooks     []Hook
	cancel    context.CancelFunc
	done      chan struct{}
}

func New[T any](kind Kind[T], src remote.Source, opts Options) *Synchronizer[T] {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewSync(nil)
	}
	return &Synchronizer[T]{
		kind:      kind,
		source:    src,
		meta:      opts.Metadata,
		logger:    opts.Logger.With("module", "syncer", "collection", kind.Collection),
		metrics:   opts.Metrics,
		now:       time.Now,
		sem:       make(chan struct{}, opts.Workers),
		observers: make(map[int]func([]T)),
	}
}

func (s *Synchronizer[T]) Collection() string { return s.kind.Collection }

// Subscribe registers fn for every published sequence. The returned func
// removes it.
func (s *Synchronizer[T]) Subscribe(fn func([]T)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// OnSynced registers a hook run after each snapshot has been stored.
func (s *Synchronizer[T]) OnSynced(h Hook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Latest returns the last published sequence, or nil before the first
// snapshot. Remote errors do not clear it.
func (s *Synchronizer[T]) Latest() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.latest)
}

// Run subscribes to the collection and applies snapshots until ctx is
// cancelled, Stop is called, or the remote ends the subscription
// (ErrSourceClosed).
func (s *Synchronizer[T]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel, s.done = nil, nil
		s.mu.Unlock()
		close(done)
	}()

	sub, err := s.source.Subscribe(ctx, s.kind.Collection)
	if err != nil {
		s.metrics.RemoteErrors.WithLabelValues(s.kind.Collection).Inc()
		return fmt.Errorf("subscribe %s: %w", s.kind.Collection, err)
	}
	defer sub.Close()

	s.logger.Info(ctx, "synchronizer started")

	snapshots, errs := sub.Snapshots(), sub.Errors()
	for snapshots != nil || errs != nil {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "synchronizer stopped")
			return nil

		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			s.Apply(ctx, snap)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.metrics.RemoteErrors.WithLabelValues(s.kind.Collection).Inc()
			s.logger.Error(ctx, "remote error, keeping last known state", "error", err)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	s.logger.Warn(ctx, "remote subscription ended")
	return ErrSourceClosed
}

// Stop cancels a running Run and waits for it to release the
// subscription. Background writes already started keep going; use Wait.
func (s *Synchronizer[T]) Stop() {
	s.mu.RLock()
	cancel, done := s.cancel, s.done
	s.mu.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until every background write has finished.
func (s *Synchronizer[T]) Wait() {
	s.inflight.Wait()
}

// Apply processes one snapshot: decode, sort, publish, then store in the
// background. It returns the published sequence.
func (s *Synchronizer[T]) Apply(ctx context.Context, snap models.Snapshot) []T {
	s.metrics.Snapshots.WithLabelValues(s.kind.Collection).Inc()

	items := make([]T, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		v, err := s.kind.Decode(doc)
		if err != nil {
			s.metrics.Dropped.WithLabelValues(s.kind.Collection).Inc()
			s.logger.Warn(ctx, "dropping malformed document", "id", doc.ID, "error", err)
			continue
		}
		items = append(items, v)
	}
	s.metrics.Decoded.WithLabelValues(s.kind.Collection).Add(float64(len(items)))

	slices.SortStableFunc(items, s.kind.Compare)

	s.publish(items)
	s.store(ctx, items)

	return items
}

func (s *Synchronizer[T]) publish(items []T) {
	s.mu.Lock()
	s.latest = items
	observers := make([]func([]T), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(slices.Clone(items))
	}
}

// store upserts items in the background through the shared worker pool.
// Stores of consecutive snapshots are not ordered against each other, so a
// key present in both may end up with the older row; the next snapshot
// overwrites it again.
func (s *Synchronizer[T]) store(ctx context.Context, items []T) {
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		var wg sync.WaitGroup
		var failed int
		var failedMu sync.Mutex

		for _, item := range items {
			s.sem <- struct{}{}
			wg.Add(1)
			go func(v T) {
				defer func() {
					<-s.sem
					wg.Done()
				}()
				if err := s.kind.Upsert(ctx, v); err != nil {
					s.metrics.UpsertFailures.WithLabelValues(s.kind.Collection).Inc()
					s.logger.Error(ctx, "local upsert failed", "key", s.kind.Key(v), "error", err)
					failedMu.Lock()
					failed++
					failedMu.Unlock()
				}
			}(item)
		}
		wg.Wait()

		if s.meta != nil {
			if err := s.meta.SetLastSync(ctx, s.kind.Collection, s.now()); err != nil {
				s.logger.Warn(ctx, "could not record last sync", "error", err)
			}
		}
		s.logger.Debug(ctx, "snapshot stored", "entities", len(items), "failed", failed)

		s.mu.RLock()
		hooks := slices.Clone(s.hooks)
		s.mu.RUnlock()
		for _, h := range hooks {
			h(ctx, s.kind.Collection)
		}
	}()
}
