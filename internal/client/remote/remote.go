// Package remote defines how the client receives remote collections.
//
// A Source pushes full snapshots of a collection for as long as the
// returned Subscription is open. Subscriptions are owned by exactly one
// consumer which must Close them (or cancel the context passed to
// Subscribe); until then the producing goroutine stays alive.
package remote

import (
	"context"
	"sync"

	"github.com/insubria-survive/survive/internal/models"
)

// Source subscribes to remote collections.
type Source interface {
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Subscription is a live feed of snapshots for one collection. Snapshots
// arrive in the order the remote emitted them. Both channels are closed
// once the subscription ends.
type Subscription struct {
	collection string
	snapshots  chan models.Snapshot
	errs       chan error
	cancel     context.CancelFunc
	done       chan struct{}
	closeOnce  sync.Once
}

// Emitter is handed to producers started with Start.
type Emitter struct {
	s *Subscription
}

// Snapshot delivers snap to the consumer. It returns false once the
// subscription has been closed and the producer should stop.
func (e Emitter) Snapshot(ctx context.Context, snap models.Snapshot) bool {
	if snap.Collection == "" {
		snap.Collection = e.s.collection
	}
	select {
	case e.s.snapshots <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// Error reports a non-fatal remote error to the consumer.
func (e Emitter) Error(ctx context.Context, err error) bool {
	select {
	case e.s.errs <- err:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start runs produce in its own goroutine and returns the subscription
// feeding from it. produce must return when ctx is done.
func Start(ctx context.Context, collection string, produce func(ctx context.Context, emit Emitter)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		collection: collection,
		snapshots:  make(chan models.Snapshot),
		errs:       make(chan error, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.errs)
		defer close(s.snapshots)
		defer cancel()
		produce(ctx, Emitter{s: s})
	}()

	return s
}

func (s *Subscription) Collection() string { return s.collection }

func (s *Subscription) Snapshots() <-chan models.Snapshot { return s.snapshots }

func (s *Subscription) Errors() <-chan error { return s.errs }

// Done is closed after the producer has returned.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close cancels the subscription and waits for the producer to stop.
// It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}
