// Package metrics declares the prometheus collectors of the client
// synchronizers and the campus server.
//
// Collectors are registered on the Registerer passed to the constructors so
// that tests can use a private prometheus.NewRegistry().
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "survive"

// Sync counts what the client synchronizers do, per collection.
type Sync struct {
	Snapshots      *prometheus.CounterVec
	Decoded        *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
	UpsertFailures *prometheus.CounterVec
	RemoteErrors   *prometheus.CounterVec
}

func NewSync(reg prometheus.Registerer) *Sync {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      name,
			Help:      help,
		}, []string{"collection"})
	}
	m := &Sync{
		Snapshots:      counter("snapshots_total", "Snapshots received from the remote."),
		Decoded:        counter("documents_decoded_total", "Documents decoded into entities."),
		Dropped:        counter("documents_dropped_total", "Documents dropped because they could not be decoded."),
		UpsertFailures: counter("upsert_failures_total", "Entities that could not be written to the local store."),
		RemoteErrors:   counter("remote_errors_total", "Errors reported by the remote subscription."),
	}
	if reg != nil {
		reg.MustRegister(m.Snapshots, m.Decoded, m.Dropped, m.UpsertFailures, m.RemoteErrors)
	}
	return m
}

// Server tracks the campus server.
type Server struct {
	Subscribers        *prometheus.GaugeVec
	SnapshotsPublished *prometheus.CounterVec
	Logins             *prometheus.CounterVec
}

func NewServer(reg prometheus.Registerer) *Server {
	m := &Server{
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "subscribers",
			Help:      "Open Subscribe streams.",
		}, []string{"collection"}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "snapshots_published_total",
			Help:      "Snapshots fanned out to subscribers and NATS.",
		}, []string{"collection"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Subscribers, m.SnapshotsPublished, m.Logins)
	}
	return m
}

// Handler serves the collectors gathered by g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
