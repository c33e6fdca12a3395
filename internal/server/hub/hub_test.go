package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	mu      sync.Mutex
	version int
	err     error
}

func (f *fakeLoader) bump() {
	f.mu.Lock()
	f.version++
	f.mu.Unlock()
}

func (f *fakeLoader) Snapshot(ctx context.Context, collection string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Snapshot{}, f.err
	}
	return models.Snapshot{
		Collection: collection,
		Documents:  []models.Document{{ID: fmt.Sprintf("v%d", f.version), Data: json.RawMessage(`{}`)}},
	}, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	snaps []models.Snapshot
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

type chanListener struct {
	ch  chan string
	err error
}

func (l *chanListener) WaitForNotification(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case p, ok := <-l.ch:
		if !ok {
			return "", l.err
		}
		return p, nil
	}
}

func newHub(t *testing.T, pubs ...Publisher) (*Hub, *fakeLoader, *metrics.Server) {
	t.Helper()
	loader := &fakeLoader{}
	m := metrics.NewServer(prometheus.NewRegistry())
	return New(loader, logging.NewNopLogger(), m, pubs...), loader, m
}

func recv(t *testing.T, s *Subscriber) models.Snapshot {
	t.Helper()
	select {
	case snap := <-s.Snapshots():
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return models.Snapshot{}
	}
}

func TestHub_SubscribePrimesWithCurrentSnapshot(t *testing.T) {
	h, _, m := newHub(t)

	s, err := h.Subscribe(context.Background(), common.CollectionExams)
	require.NoError(t, err)

	snap := recv(t, s)
	assert.Equal(t, common.CollectionExams, snap.Collection)
	assert.Equal(t, "v0", snap.Documents[0].ID)
	assert.Equal(t, 1, h.Subscribers(common.CollectionExams))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Subscribers.WithLabelValues(common.CollectionExams)))

	h.Unsubscribe(s)
	h.Unsubscribe(s)
	assert.Equal(t, 0, h.Subscribers(common.CollectionExams))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Subscribers.WithLabelValues(common.CollectionExams)))
}

func TestHub_SubscribeErrors(t *testing.T) {
	h, loader, _ := newHub(t)

	_, err := h.Subscribe(context.Background(), "aule")
	require.ErrorIs(t, err, common.ErrorUnknownCollection)

	loader.err = errors.New("db down")
	_, err = h.Subscribe(context.Background(), common.CollectionExams)
	require.Error(t, err)
	assert.Equal(t, 0, h.Subscribers(common.CollectionExams))
}

func TestHub_NotifyFansOutToCollectionOnly(t *testing.T) {
	pub := &fakePublisher{}
	h, loader, m := newHub(t, pub)
	ctx := context.Background()

	exams, err := h.Subscribe(ctx, common.CollectionExams)
	require.NoError(t, err)
	lessons, err := h.Subscribe(ctx, common.CollectionLessons)
	require.NoError(t, err)
	recv(t, exams)
	recv(t, lessons)

	loader.bump()
	require.NoError(t, h.Notify(ctx, common.CollectionExams))

	assert.Equal(t, "v1", recv(t, exams).Documents[0].ID)
	select {
	case <-lessons.Snapshots():
		t.Fatal("lessons subscriber must not get exam snapshots")
	default:
	}

	require.Equal(t, 1, pub.count())
	assert.Equal(t, common.CollectionExams, pub.snaps[0].Collection)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsPublished.WithLabelValues(common.CollectionExams)))
}

func TestHub_SlowSubscriberGetsLatest(t *testing.T) {
	h, loader, _ := newHub(t)
	ctx := context.Background()

	s, err := h.Subscribe(ctx, common.CollectionPavilions)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		loader.bump()
		require.NoError(t, h.Notify(ctx, common.CollectionPavilions))
	}

	assert.Equal(t, "v3", recv(t, s).Documents[0].ID)
	select {
	case <-s.Snapshots():
		t.Fatal("only the latest snapshot is kept")
	default:
	}
}

func TestHub_NotifyErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats down")}
	h, loader, _ := newHub(t, pub)

	require.ErrorIs(t, h.Notify(context.Background(), "aule"), common.ErrorUnknownCollection)

	require.NoError(t, h.Notify(context.Background(), common.CollectionExams), "publisher failures are logged")
	assert.Equal(t, 1, pub.count())

	loader.err = errors.New("db down")
	require.Error(t, h.Notify(context.Background(), common.CollectionExams))
	assert.Equal(t, 1, pub.count())
}

func TestHub_RunDeliversNotifications(t *testing.T) {
	pub := &fakePublisher{}
	h, _, _ := newHub(t, pub)
	l := &chanListener{ch: make(chan string, 3)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, l) }()

	l.ch <- common.CollectionExams
	l.ch <- "aule"
	l.ch <- common.CollectionLessons

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestHub_RunReturnsListenerError(t *testing.T) {
	h, _, _ := newHub(t)
	l := &chanListener{ch: make(chan string), err: errors.New("conn closed")}
	close(l.ch)

	err := h.Run(context.Background(), l)
	require.ErrorContains(t, err, "conn closed")
}

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.err
}

func TestNatsPublisher(t *testing.T) {
	c := &recordingConn{}
	p := NewNatsPublisher(c)

	snap := models.Snapshot{
		Collection: common.CollectionExams,
		Documents:  []models.Document{{ID: "E1", Data: json.RawMessage(`{"corso":"Analisi"}`)}},
		At:         time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), snap))

	assert.Equal(t, "campus.snapshots.esame", c.subject)
	var got models.Snapshot
	require.NoError(t, json.Unmarshal(c.data, &got))
	assert.Equal(t, snap.Collection, got.Collection)
	assert.Equal(t, "E1", got.Documents[0].ID)
	assert.True(t, snap.At.Equal(got.At))

	c.err = errors.New("nats down")
	require.Error(t, p.Publish(context.Background(), snap))
}
