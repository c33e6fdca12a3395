package natssource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/insubria-survive/survive/internal/logging"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu           sync.Mutex
	subject      string
	handler      nats.MsgHandler
	unsubscribed bool
	err          error
}

func (f *fakeConn) Subscribe(subject string, h nats.MsgHandler) (func() error, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subject = subject
	f.handler = h
	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
		return nil
	}, nil
}

func (f *fakeConn) deliver(data string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(&nats.Msg{Data: []byte(data)})
}

func TestSubscribe_DeliversSnapshots(t *testing.T) {
	conn := &fakeConn{}
	src := NewWithConn(conn, logging.NewNopLogger())

	sub, err := src.Subscribe(context.Background(), "esame")
	require.NoError(t, err)
	assert.Equal(t, "campus.snapshots.esame", conn.subject)

	go conn.deliver(`{"collection":"esame","documents":[{"id":"E1","data":{"corso":"Matematica"}}]}`)

	select {
	case snap := <-sub.Snapshots():
		assert.Equal(t, "esame", snap.Collection)
		require.Len(t, snap.Documents, 1)
		assert.Equal(t, "E1", snap.Documents[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}

	sub.Close()
	conn.mu.Lock()
	assert.True(t, conn.unsubscribed)
	conn.mu.Unlock()
}

func TestSubscribe_MalformedPayloadIsReportedAsError(t *testing.T) {
	conn := &fakeConn{}
	sub, err := NewWithConn(conn, logging.NewNopLogger()).Subscribe(context.Background(), "lezione")
	require.NoError(t, err)
	defer sub.Close()

	go conn.deliver(`not json`)

	select {
	case err := <-sub.Errors():
		assert.ErrorContains(t, err, "malformed snapshot")
	case <-time.After(2 * time.Second):
		t.Fatal("no error")
	}
}

func TestSubscribe_ConnError(t *testing.T) {
	conn := &fakeConn{err: errors.New("no connection")}
	_, err := NewWithConn(conn, logging.NewNopLogger()).Subscribe(context.Background(), "esame")
	assert.ErrorContains(t, err, "no connection")
}
