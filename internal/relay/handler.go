package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"go-ws-relay/internal/auth"
	"go-ws-relay/internal/config"
	"go-ws-relay/internal/logger"
	"go-ws-relay/internal/metrics"
	"go-ws-relay/internal/middleware"
	"go-ws-relay/internal/resolver"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Enforcer decides whether a subject may act on an object.
// *casbin.Enforcer satisfies it.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

// Handler serves websocket clients of the relay.
type Handler struct {
	settings  *resolver.Settings
	broker    Broker
	enforcer  Enforcer
	sanitizer *bluemonday.Policy
	cfg       config.RelayConfig
	log       logger.Logger
	active    atomic.Int64
	startedAt time.Time
}

// NewHandler creates a new Handler. A nil enforcer lets every signed-in user
// publish and nobody else.
func NewHandler(settings *resolver.Settings, broker Broker, enforcer Enforcer, cfg config.RelayConfig, log logger.Logger) *Handler {
	h := &Handler{
		settings:  settings,
		broker:    broker,
		enforcer:  enforcer,
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}
	if cfg.Sanitize {
		h.sanitizer = bluemonday.StrictPolicy()
	}
	return h
}

// connection serializes writes to one websocket client.
type connection struct {
	id      string
	conn    net.Conn
	writeMu sync.Mutex
}

func (c *connection) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.conn, ws.OpText, data)
}

// serveWS upgrades an identified request to a websocket and relays messages
// between the client and the broker until either side goes away.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	facility := chi.URLParam(r, "facility")

	id := middleware.GetIdentity(ctx)
	user := id.User
	reqLog := logger.FromContext(ctx, h.log)

	sessionKey := ""
	if id.Session != nil {
		if ok, err := id.Session.Exists(ctx); err == nil && ok {
			sessionKey = id.Session.Key()
		}
	}

	q := r.URL.Query()
	channels := Channels{Prefix: h.cfg.Prefix, Facility: facility}
	subscribeTo := channels.For(subscribeAudience(q), user, sessionKey)
	publishTo := channels.For(publishAudience(q), user, sessionKey)
	echo := q.Has("echo")

	sub, err := h.broker.Subscribe(ctx, subscribeTo...)
	if err != nil {
		reqLog.Error(err, "Failed to subscribe to broker")
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	defer sub.Close()

	netConn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		reqLog.Error(err, "Websocket upgrade failed")
		return
	}
	defer netConn.Close()

	c := &connection{id: uuid.New().String(), conn: netConn}
	log := reqLog.With(map[string]interface{}{
		"conn_id":  c.id,
		"facility": facility,
	})

	h.active.Add(1)
	metrics.ConnectionsActive.Inc()
	defer func() {
		h.active.Add(-1)
		metrics.ConnectionsActive.Dec()
	}()
	log.Debug(fmt.Sprintf("Websocket connected, subscribed to %d channels", len(subscribeTo)))

	done := make(chan struct{})
	go h.writeLoop(c, sub, done, log)
	h.readLoop(ctx, c, user, facility, publishTo, echo, log)
	close(done)

	log.Debug("Websocket disconnected")
}

// writeLoop forwards broker messages and heartbeats to the client until done
// is closed, the subscription ends, or a write fails.
func (h *Handler) writeLoop(c *connection, sub Subscription, done <-chan struct{}, log logger.Logger) {
	// An empty heartbeat message disables server heartbeats.
	var tick <-chan time.Time
	if h.cfg.Heartbeat > 0 && h.cfg.HeartbeatMessage != "" {
		ticker := time.NewTicker(h.cfg.Heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				c.conn.Close()
				return
			}
			if err := c.write(msg); err != nil {
				log.Debug(fmt.Sprintf("Write to client failed: %v", err))
				c.conn.Close()
				return
			}
			metrics.MessagesTotal.WithLabelValues("out").Inc()
		case <-tick:
			if err := c.write([]byte(h.cfg.HeartbeatMessage)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// readLoop handles client frames until the connection closes.
func (h *Handler) readLoop(ctx context.Context, c *connection, user *auth.User, facility string, publishTo []string, echo bool, log logger.Logger) {
	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		if h.cfg.HeartbeatMessage != "" && string(data) == h.cfg.HeartbeatMessage {
			if echo {
				if err := c.write(data); err != nil {
					return
				}
			}
			continue
		}
		h.publish(ctx, user, facility, publishTo, data, log)
	}
}

func (h *Handler) publish(ctx context.Context, user *auth.User, facility string, publishTo []string, data []byte, log logger.Logger) {
	if len(publishTo) == 0 {
		metrics.MessagesTotal.WithLabelValues("denied").Inc()
		return
	}
	allowed, err := h.allowPublish(user, facility)
	if err != nil {
		log.Error(err, "Publish authorization failed")
		return
	}
	if !allowed {
		metrics.MessagesTotal.WithLabelValues("denied").Inc()
		log.Debug("Publish denied")
		return
	}

	if h.sanitizer != nil {
		data = []byte(h.sanitizer.Sanitize(string(data)))
	}
	for _, ch := range publishTo {
		if err := h.broker.Publish(ctx, ch, data); err != nil {
			log.Error(err, fmt.Sprintf("Failed to publish to %s", ch))
			continue
		}
		metrics.MessagesTotal.WithLabelValues("in").Inc()
	}
}

// allowPublish reports whether user may publish to facility.
func (h *Handler) allowPublish(user *auth.User, facility string) (bool, error) {
	if h.enforcer == nil {
		return user.IsAuthenticated(), nil
	}
	return h.enforcer.Enforce(user.Subject, facility, auth.ActionPublish)
}

// ActiveConnections returns the number of connected clients.
func (h *Handler) ActiveConnections() int64 {
	return h.active.Load()
}

// handleHealth responds with the relay's health status as JSON, including
// the current connection count and uptime.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int64  `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: h.ActiveConnections(),
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}
