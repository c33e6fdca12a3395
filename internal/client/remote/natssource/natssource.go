// Package natssource receives collection snapshots that the campus server
// republishes on NATS (subject campus.snapshots.<collection>).
package natssource

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insubria-survive/survive/internal/client/remote"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/nats-io/nats.go"
)

// Conn is the part of a NATS connection the source needs.
type Conn interface {
	Subscribe(subject string, handler nats.MsgHandler) (func() error, error)
}

type natsConn struct {
	nc *nats.Conn
}

func (c natsConn) Subscribe(subject string, handler nats.MsgHandler) (func() error, error) {
	sub, err := c.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

type Source struct {
	conn   Conn
	logger logging.Logger
}

// New wraps an established NATS connection.
func New(nc *nats.Conn, l logging.Logger) *Source {
	return NewWithConn(natsConn{nc: nc}, l)
}

func NewWithConn(c Conn, l logging.Logger) *Source {
	return &Source{conn: c, logger: l.With("module", "natssource")}
}

// Connect dials url and returns a source over the new connection together
// with the connection, which the caller closes.
func Connect(url string, l logging.Logger) (*Source, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("survive-client"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(nc, l), nc, nil
}

func (s *Source) Subscribe(ctx context.Context, collection string) (*remote.Subscription, error) {
	subject := common.SnapshotSubject(collection)
	msgs := make(chan []byte, 8)
	stop := make(chan struct{})

	unsubscribe, err := s.conn.Subscribe(subject, func(m *nats.Msg) {
		select {
		case msgs <- m.Data:
		case <-stop:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	s.logger.Info(ctx, "subscribed", "subject", subject)

	return remote.Start(ctx, collection, func(ctx context.Context, emit remote.Emitter) {
		defer func() {
			close(stop)
			if err := unsubscribe(); err != nil {
				s.logger.Warn(context.Background(), "unsubscribe failed", "subject", subject, "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case data := <-msgs:
				var snap models.Snapshot
				if err := json.Unmarshal(data, &snap); err != nil {
					if !emit.Error(ctx, fmt.Errorf("malformed snapshot on %s: %w", subject, err)) {
						return
					}
					continue
				}
				if snap.Collection != "" && snap.Collection != collection {
					continue
				}
				if !emit.Snapshot(ctx, snap) {
					return
				}
			}
		}
	}), nil
}
