package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/nats-io/nats.go"
)

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher sends each snapshot as JSON on common.SnapshotSubject.
type NatsPublisher struct {
	conn Conn
}

func NewNatsPublisher(c Conn) *NatsPublisher {
	return &NatsPublisher{conn: c}
}

// ConnectNats dials url for publishing. The caller closes the connection.
func ConnectNats(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("survive-server"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return p.conn.Publish(common.SnapshotSubject(snap.Collection), data)
}
