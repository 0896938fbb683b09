// Package stream implements the live corridor push feature that
// supplements spec.md's polling /api/v1/query_range surface: a WebSocket
// connection subscribes to a (query, fingerprint) cache key and receives a
// push whenever a query_range request produces a result for that key,
// whether the entry was recomputed or served from the cache.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/corridorproxy/corridor-proxy/internal/metrics"
)

// upgrader is shared across connections; CheckOrigin is permissive here the
// same way the teacher's own upgrader is, deferring origin policy to a
// reverse proxy in front of this service.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is one push sent to a subscribed connection. Payload carries
// whatever the caller of Publish serializes — internal/api marshals its own
// MatrixEntry into it, keeping this package free of a dependency on the
// HTTP response shape.
type Message struct {
	Type        string          `json:"type"`
	Query       string          `json:"query,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// subscription is one live WebSocket connection watching a single
// (query, fingerprint) cache key.
type subscription struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscription) send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	metrics.WebSocketMessagesTotal.WithLabelValues("outbound").Inc()
	return s.conn.WriteJSON(msg)
}

// Hub fans out corridor result pushes to every subscription watching the
// cache key a result belongs to. It is keyed by the same
// MD5(query||fingerprint) cache key internal/cachestore uses, so the
// query_range handler that already knows that key can publish without
// knowing which connections, if any, are listening.
type Hub struct {
	mu     sync.RWMutex
	byKey  map[string]map[string]*subscription
	logger *zap.Logger
}

// NewHub builds an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{byKey: make(map[string]map[string]*subscription), logger: logger}
}

// Publish pushes payload to every connection subscribed to key. A miss (no
// subscribers) is silent — most cache keys are never watched live.
func (h *Hub) Publish(key, query, fingerprint string, payload interface{}) {
	h.mu.RLock()
	subs := h.byKey[key]
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("dropping stream publish: marshal failed", zap.Error(err))
		return
	}

	msg := Message{
		Type:        "corridor_update",
		Query:       query,
		Fingerprint: fingerprint,
		Payload:     raw,
		Timestamp:   time.Now(),
	}

	for _, sub := range subs {
		if err := sub.send(msg); err != nil {
			h.logger.Warn("dropping unresponsive stream subscriber", zap.String("id", sub.id), zap.Error(err))
			h.remove(key, sub.id)
		}
	}
}

func (h *Hub) add(key string, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byKey[key] == nil {
		h.byKey[key] = make(map[string]*subscription)
	}
	h.byKey[key][sub.id] = sub
}

func (h *Hub) remove(key, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.byKey[key]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.byKey, key)
		}
	}
}

type subscribeRequest struct {
	Query       string `json:"query"`
	Fingerprint string `json:"fingerprint"`
}

// KeyFunc computes the cache key a subscribe request resolves to. It is
// injected by internal/api so this package does not need to know the exact
// hashing scheme internal/cachestore uses for cache keys.
type KeyFunc func(query, fingerprint string) string

// HandleWebSocket upgrades the connection and reads a single subscribe
// request identifying the (query, fingerprint) cache key to watch; every
// subsequent message from the client is ignored beyond keeping the
// connection alive.
func (h *Hub) HandleWebSocket(keyFn KeyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			conn.Close()
			return
		}

		key := keyFn(req.Query, req.Fingerprint)
		sub := &subscription{id: uuid.NewString(), conn: conn}
		h.add(key, sub)
		metrics.WebSocketConnections.Inc()

		defer func() {
			h.remove(key, sub.id)
			metrics.WebSocketConnections.Dec()
			conn.Close()
		}()

		sub.send(Message{Type: "subscribed", Query: req.Query, Fingerprint: req.Fingerprint, Timestamp: time.Now()})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
			metrics.WebSocketMessagesTotal.WithLabelValues("inbound").Inc()
		}
	}
}
