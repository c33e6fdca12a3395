// Package hub fans collection snapshots out to the gRPC subscribers and to
// NATS whenever the documents table changes.
//
// PostgreSQL announces changes with pg_notify('campus_documents',
// collection); Run waits on those notifications, reloads the collection
// and delivers the complete snapshot.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/insubria-survive/survive/internal/models"
)

// Channel is the PostgreSQL notification channel of the documents trigger.
const Channel = "campus_documents"

// Loader builds the current snapshot of a collection.
type Loader interface {
	Snapshot(ctx context.Context, collection string) (models.Snapshot, error)
}

// Listener yields the payload of each notification.
type Listener interface {
	WaitForNotification(ctx context.Context) (string, error)
}

// Publisher forwards snapshots to another transport.
type Publisher interface {
	Publish(ctx context.Context, snap models.Snapshot) error
}

// Subscriber receives the snapshots of one collection. Only the latest
// undelivered snapshot is kept.
type Subscriber struct {
	collection string
	ch         chan models.Snapshot
}

func (s *Subscriber) Collection() string { return s.collection }

func (s *Subscriber) Snapshots() <-chan models.Snapshot { return s.ch }

// offer replaces any pending snapshot with snap.
func (s *Subscriber) offer(snap models.Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

type Hub struct {
	loader     Loader
	publishers []Publisher
	logger     logging.Logger
	metrics    *metrics.Server

	// deliver serialises load+fan-out so subscribers never see an older
	// snapshot after a newer one.
	deliver sync.Mutex

	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

func New(loader Loader, l logging.Logger, m *metrics.Server, publishers ...Publisher) *Hub {
	return &Hub{
		loader:     loader,
		publishers: publishers,
		logger:     l.With("module", "hub"),
		metrics:    m,
		subs:       make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a subscriber for collection and primes it with the
// current snapshot.
func (h *Hub) Subscribe(ctx context.Context, collection string) (*Subscriber, error) {
	if !common.IsKnownCollection(collection) {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnknownCollection, collection)
	}

	h.deliver.Lock()
	defer h.deliver.Unlock()

	snap, err := h.loader.Snapshot(ctx, collection)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{collection: collection, ch: make(chan models.Snapshot, 1)}
	s.offer(snap)

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*Subscriber]struct{})
	}
	h.subs[collection][s] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.Subscribers.WithLabelValues(collection).Inc()
	}
	return s, nil
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.collection][s]
	delete(h.subs[s.collection], s)
	h.mu.Unlock()

	if ok && h.metrics != nil {
		h.metrics.Subscribers.WithLabelValues(s.collection).Dec()
	}
}

// Subscribers reports how many subscribers collection has.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

// Notify reloads collection and delivers it to every subscriber and
// publisher. Publisher failures are logged, not returned.
func (h *Hub) Notify(ctx context.Context, collection string) error {
	if !common.IsKnownCollection(collection) {
		return fmt.Errorf("%w: %s", common.ErrorUnknownCollection, collection)
	}

	h.deliver.Lock()
	defer h.deliver.Unlock()

	snap, err := h.loader.Snapshot(ctx, collection)
	if err != nil {
		return err
	}

	h.mu.Lock()
	for s := range h.subs[collection] {
		s.offer(snap)
	}
	h.mu.Unlock()

	for _, p := range h.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			h.logger.Warn(ctx, "publish failed", "collection", collection, "error", err)
		}
	}

	if h.metrics != nil {
		h.metrics.SnapshotsPublished.WithLabelValues(collection).Inc()
	}
	h.logger.Debug(ctx, "snapshot delivered", "collection", collection, "documents", len(snap.Documents))
	return nil
}

// Run turns notifications from l into Notify calls until ctx is done or
// the listener fails.
func (h *Hub) Run(ctx context.Context, l Listener) error {
	h.logger.Info(ctx, "listening for document changes", "channel", Channel)
	for {
		collection, err := l.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}
		if err := h.Notify(ctx, collection); err != nil {
			h.logger.Error(ctx, "snapshot not delivered", "collection", collection, "error", err)
		}
	}
}
