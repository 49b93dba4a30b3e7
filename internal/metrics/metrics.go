// Package metrics provides Prometheus instrumentation for the relay: active
// websocket connections, user resolutions by outcome, and relayed message
// throughput.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	ResolutionAuthenticated = "authenticated"
	ResolutionAnonymous     = "anonymous"
	ResolutionError         = "error"
)

var (
	// ConnectionsActive tracks the current number of websocket connections.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsrelay_connections_active",
		Help: "Current number of active websocket connections",
	})

	// UserResolutions counts user resolutions for upgrade requests, labeled
	// by result: "authenticated", "anonymous", or "error".
	UserResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsrelay_user_resolutions_total",
		Help: "Total number of user resolutions for upgrade requests",
	}, []string{"result"})

	// MessagesTotal counts relayed messages, labeled by direction: "in" for
	// client frames published to the broker, "out" for broker messages
	// written to clients, "denied" for client frames that were dropped.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsrelay_messages_total",
		Help: "Total number of relayed messages",
	}, []string{"direction"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		UserResolutions,
		MessagesTotal,
	)
}

// Handler returns an HTTP handler that serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
