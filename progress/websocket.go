package progress

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Pattern is the route served by Handler.
	Pattern = "GET /ws/scan/{channel}"

	// EchoPrefix prefixes inbound messages echoed back to the client.
	EchoPrefix = "echo:"

	defaultWriteTimeout = 5 * time.Second
	maxInboundMessage   = 64 << 10
)

// ErrEndpointClosed is returned by Send after Close.
var ErrEndpointClosed = errors.New("endpoint closed")

// WebSocketEndpoint is an Endpoint backed by a gorilla/websocket connection.
// Writes are serialized; reads belong to the goroutine serving the connection.
type WebSocketEndpoint struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	closed       bool
}

// NewWebSocketEndpoint wraps conn.
func NewWebSocketEndpoint(conn *websocket.Conn) *WebSocketEndpoint {
	return &WebSocketEndpoint{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
	}
}

// Send writes message as a text frame.
func (e *WebSocketEndpoint) Send(message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEndpointClosed
	}
	if err := e.conn.SetWriteDeadline(time.Now().Add(e.writeTimeout)); err != nil {
		return err
	}
	return e.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// Close sends a normal-closure frame and closes the connection.
func (e *WebSocketEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return e.conn.Close()
}

// Handler serves progress subscriptions over WebSocket.
type Handler struct {
	registry *Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCheckOrigin overrides the origin check applied during the upgrade.
// The default accepts same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHandler creates a handler registering connections in registry.
func NewHandler(registry *Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the handler on mux at Pattern.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(Pattern, h)
}

// ServeHTTP upgrades the request, opens the channel named by the {channel}
// path value and echoes inbound text until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")
	if channelID == "" {
		http.Error(w, "missing channel", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "channel", channelID, "error", err)
		return
	}
	conn.SetReadLimit(maxInboundMessage)

	ep := NewWebSocketEndpoint(conn)
	if err := h.registry.Open(channelID, ep); err != nil {
		h.logger.Warn("progress channel open failed", "channel", channelID, "error", err)
		return
	}
	defer h.registry.Release(channelID, ep)

	h.logger.Debug("progress channel connected", "channel", channelID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("progress channel read failed", "channel", channelID, "error", err)
			}
			return
		}
		if err := ep.Send(EchoPrefix + string(data)); err != nil {
			return
		}
	}
}
