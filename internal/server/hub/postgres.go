package hub

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PgListener is a dedicated pgx connection LISTENing on one channel.
type PgListener struct {
	conn *pgx.Conn
}

func ListenPostgres(ctx context.Context, dsn string, channel string) (*PgListener, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	return &PgListener{conn: conn}, nil
}

func (l *PgListener) WaitForNotification(ctx context.Context) (string, error) {
	n, err := l.conn.WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (l *PgListener) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}
