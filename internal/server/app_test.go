package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestPurgeTokens_TicksUntilCancelled(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		purgeTokens(ctx, p, 10*time.Millisecond, logging.NewNopLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purgeTokens did not stop")
	}
}

func TestPurgeTokens_KeepsGoingAfterErrors(t *testing.T) {
	p := &countingPurger{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go purgeTokens(ctx, p, 5*time.Millisecond, logging.NewNopLogger())

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewServer(reg)
	m.Logins.WithLabelValues("ok").Inc()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveMetrics(ctx, lis, reg, logging.NewNopLogger()) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + lis.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, strings.Contains(body, `survive_server_logins_total{result="ok"} 1`), body)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestApp_CloseReleasesDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	app := &App{db: db}
	app.Close()

	require.NoError(t, mock.ExpectationsWereMet())
}
