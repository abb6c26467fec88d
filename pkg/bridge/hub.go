package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/navigare/pkg/events"
	"github.com/vango-dev/navigare/pkg/page"
	"github.com/vango-dev/navigare/pkg/router"
)

// Router is the part of *router.Router the hub drives.
type Router interface {
	Visit(ctx context.Context, to any, opts ...router.VisitOption) (*page.Visit, error)
	Reload(ctx context.Context, opts ...router.VisitOption) (*page.Visit, error)
	Back(ctx context.Context, fallback any) error
	Cancel(id string)
	Page() *page.Page
	OnAny(fn events.Handler) func()
}

// Hub fans router events out to WebSocket clients and runs their commands.
type Hub struct {
	router   Router
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool

	ctx      context.Context
	stop     context.CancelFunc
	commands sync.WaitGroup
	off      func()
}

// client serializes writes; a gorilla connection allows one writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}

// WithCheckOrigin sets the upgrade origin check. All origins are accepted
// by default.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub subscribes a hub to r.
func NewHub(r Router, opts ...Option) *Hub {
	ctx, stop := context.WithCancel(context.Background())
	h := &Hub{
		router:  r,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		ctx:  ctx,
		stop: stop,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default().With("component", "bridge")
	}
	h.off = r.OnAny(func(e *events.Event) bool {
		h.broadcast(eventMessage(e))
		return false
	})
	return h
}

// ServeHTTP upgrades the request and serves the connection until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.logger.Debug("client connected", "remote", req.RemoteAddr)

	h.send(c, Message{Type: MessagePage, Page: h.router.Page()})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.send(c, Message{Type: MessageError, Error: "malformed command: " + err.Error()})
			continue
		}
		h.commands.Add(1)
		go func() {
			defer h.commands.Done()
			h.run(c, cmd)
		}()
	}

	h.drop(c)
	h.logger.Debug("client disconnected", "remote", req.RemoteAddr)
}

// run executes cmd and answers c.
func (h *Hub) run(c *client, cmd Command) {
	var (
		v   *page.Visit
		err error
	)
	switch cmd.Type {
	case CommandVisit:
		v, err = h.router.Visit(h.ctx, cmd.Href, cmd.visitOptions()...)
	case CommandReload:
		v, err = h.router.Reload(h.ctx, cmd.visitOptions()...)
	case CommandBack:
		var fallback any
		if cmd.Fallback != "" {
			fallback = cmd.Fallback
		}
		err = h.router.Back(h.ctx, fallback)
	case CommandCancel:
		h.router.Cancel(cmd.VisitID)
	default:
		h.send(c, Message{Type: MessageError, ID: cmd.ID, Error: "unknown command " + string(cmd.Type)})
		return
	}
	if err != nil {
		h.send(c, Message{Type: MessageError, ID: cmd.ID, Error: err.Error()})
		return
	}
	h.send(c, Message{Type: MessageAck, ID: cmd.ID, Visit: v})
}

func (cmd Command) visitOptions() []router.VisitOption {
	var opts []router.VisitOption
	if cmd.Method != "" {
		opts = append(opts, router.WithMethod(strings.ToUpper(cmd.Method)))
	}
	if cmd.Data != nil {
		opts = append(opts, router.WithData(cmd.Data))
	}
	if cmd.Replace {
		opts = append(opts, router.WithReplace())
	}
	if cmd.PreserveScroll {
		opts = append(opts, router.WithPreserveScroll(router.PreserveAlways))
	}
	if cmd.PreserveState {
		opts = append(opts, router.WithPreserveState(router.PreserveAlways))
	}
	if len(cmd.Only) > 0 {
		opts = append(opts, router.Only(cmd.Only...))
	}
	for k, v := range cmd.Headers {
		opts = append(opts, router.WithHeader(k, v))
	}
	if cmd.ErrorBag != "" {
		opts = append(opts, router.WithErrorBag(cmd.ErrorBag))
	}
	return opts
}

func (h *Hub) send(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("message encoding failed", "type", msg.Type, "error", err)
		return
	}
	if err := c.write(data); err != nil {
		h.drop(c)
	}
}

// broadcast sends a message to all connected clients.
func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("message encoding failed", "type", msg.Type, "event", msg.Event, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the router, cancels running commands, waits for
// them and closes all client connections.
func (h *Hub) Close() {
	h.off()
	h.stop()
	h.commands.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}
