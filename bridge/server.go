package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"convokit/core"
	"convokit/protocol"
	"convokit/store"
)

// Server is a WebSocket server that connects the orchestrator to an external presentation layer.
//
//   - Every IExternalOutputEvent passed to Broadcast is serialised as a WireEvent and sent to
//     every connected client.
//
//   - Incoming WireEvents are decoded by the intent table and invoked on the orchestrator.
//     A failed intent is answered with bridge.intent_rejected to the sender only.
type Server struct {
	config  Config
	intents IIntents
	logger  *core.Logger

	upgrader  websocket.Upgrader
	clients   map[*client]struct{}
	clientsMu sync.RWMutex

	handlers map[string]intentFunc
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func NewServer(config Config, intents IIntents, logger *core.Logger) *Server {
	defaults := DefaultConfig()
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = defaults.ClientBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	s := &Server{
		config:  config,
		intents: intents,
		logger:  logger.With(map[string]any{"component": "bridge"}),
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.handlers = intentTable(intents, config.AllowFilePaths)
	return s
}

// Broadcast forwards an orchestrator event to every client. It never blocks: a client whose
// buffer is full is disconnected.
func (s *Server) Broadcast(event core.IEvent) {
	if _, ok := event.(core.IExternalOutputEvent); !ok {
		return
	}
	data, err := protocol.MarshalPacket(core.NewEventPacket(event, "orchestrator"))
	if err != nil {
		s.logger.Errorf("bridge: marshal output event %q: %v", event.GetId(), err)
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		s.enqueue(c, data)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) enqueue(c *client, data []byte) {
	select {
	case c.send <- data:
	case <-c.closed:
	default:
		s.logger.Warn("client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		c.close()
	}
}

// checkOrigin accepts clients that send no Origin (not a browser), same-host pages and the
// configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	s.logger.Warn("rejected cross-origin client", "origin", origin)
	return false
}

// Handler serves the WebSocket endpoint at the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWS)
	return mux
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then closes every client.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("bridge WebSocket server listening on %s", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.closeClients()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		c.close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("bridge: upgrade: %v", err)
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, s.config.ClientBuffer),
		closed: make(chan struct{}),
	}
	defer c.close()

	// The snapshot goes first so a client never sees an event older than its state.
	s.clientsMu.Lock()
	if data, err := protocol.Marshal(protocol.EventSnapshot, s.snapshot()); err == nil {
		c.send <- data
	}
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
	}()

	s.logger.Infof("bridge: client connected (%s)", conn.RemoteAddr())
	go s.writePump(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, data)
	}
}

func (s *Server) snapshot() protocol.SnapshotPayload {
	if s.intents == nil {
		return protocol.SnapshotPayload{State: store.InitialState()}
	}
	return protocol.SnapshotPayload{State: s.intents.State(), Error: s.intents.Error()}
}

func (s *Server) writePump(c *client) {
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Errorf("bridge: write to client: %v", err)
				c.close()
				return
			}
		}
	}
}

func (s *Server) handleMessage(c *client, data []byte) {
	wire, err := protocol.Unmarshal(data)
	if err != nil {
		s.reject(c, "", err)
		return
	}
	handler, ok := s.handlers[wire.ID]
	if !ok {
		s.reject(c, wire.ID, errUnknownIntent)
		return
	}
	if err := handler(wire.Payload); err != nil {
		s.reject(c, wire.ID, err)
	}
}

func (s *Server) reject(c *client, intent string, err error) {
	s.logger.Debug("intent rejected", "intent", intent, "error", err)
	data, merr := protocol.Marshal(protocol.EventIntentRejected, protocol.IntentRejectedPayload{
		Intent: intent,
		Error:  err.Error(),
	})
	if merr != nil {
		return
	}
	s.enqueue(c, data)
}
