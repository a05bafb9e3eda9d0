package signaling

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventHandler is a typed callback registered against one EventType. This
// is the "signals/slots glue" replaced with an explicit dispatch table: a
// component registers what it wants to hear about instead of the hub
// switching on message type itself.
type EventHandler func(clientID string, env Envelope)

// Server is the server side of the signaling exchange: it accepts one
// websocket connection per client, assigns (or accepts) a client id,
// and dispatches every event it decodes to a registered EventHandler.
// It preserves the connect/disconnect ordering contract: OnConnected
// fires exactly once before any other event for a client id, and
// OnDisconnected fires exactly once after, with no further dispatch for
// that id afterward.
type Server struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	clients     map[string]*serverConn
	handlers    map[EventType]EventHandler
	onConnected func(clientID string)
	onDisconn   func(clientID string)

	consecutiveUpgradeFailures atomic.Int64
}

type serverConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewServer creates a Server. Register handlers with OnConnected,
// OnDisconnected and OnEvent before calling ServeHTTP for the first time.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:  make(map[string]*serverConn),
		handlers: make(map[EventType]EventHandler),
	}
}

// OnConnected registers the callback invoked once a client's websocket
// handshake completes and it has been assigned a client id.
func (s *Server) OnConnected(fn func(clientID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = fn
}

// OnDisconnected registers the callback invoked once after a client's
// connection closes, by any cause.
func (s *Server) OnDisconnected(fn func(clientID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconn = fn
}

// OnEvent registers the handler for one event type. Only offer, answer
// and candidate are expected from clients; ping is answered internally.
func (s *Server) OnEvent(t EventType, fn EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = fn
}

// Send delivers env to the named client's websocket, if still connected.
// Never blocks: a client whose send buffer is full is disconnected.
func (s *Server) Send(clientID string, env Envelope) {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- env.marshal():
	default:
		log.Printf("signaling: send buffer full for client %s, dropping connection", clientID)
		c.conn.Close()
	}
}

// ClientCount reports how many websocket connections are currently
// registered.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ConsecutiveUpgradeFailures reports how many websocket upgrades have
// failed in a row since the last success, so a health check can tell
// occasional client-side disconnects from a broken handshake path (bad
// proxy config, exhausted file descriptors, and the like).
func (s *Server) ConsecutiveUpgradeFailures() int64 {
	return s.consecutiveUpgradeFailures.Load()
}

// ServeHTTP upgrades the request to a websocket and registers the
// resulting connection as a new client. It never returns until the
// connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("signaling: upgrade failed: %v", err)
		s.consecutiveUpgradeFailures.Add(1)
		return
	}
	s.consecutiveUpgradeFailures.Store(0)

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	c := &serverConn{id: clientID, conn: conn, send: make(chan []byte, 32), done: make(chan struct{})}

	s.mu.Lock()
	s.clients[clientID] = c
	onConnected := s.onConnected
	s.mu.Unlock()

	if onConnected != nil {
		onConnected(clientID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.writePump(c) }()
	go func() { defer wg.Done(); s.readPump(c) }()
	wg.Wait()

	s.mu.Lock()
	delete(s.clients, clientID)
	onDisconn := s.onDisconn
	s.mu.Unlock()

	if onDisconn != nil {
		onDisconn(clientID)
	}
}

func (s *Server) readPump(c *serverConn) {
	defer c.close()

	c.conn.SetReadLimit(8192)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("signaling: read error for client %s: %v", c.id, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("signaling: malformed envelope from %s: %v", c.id, err)
			continue
		}

		if env.Type == EventPing {
			c.trySend(Envelope{Type: EventPong, Timestamp: time.Now().UnixMilli()}.marshal())
			continue
		}

		s.mu.RLock()
		handler := s.handlers[env.Type]
		s.mu.RUnlock()
		if handler == nil {
			log.Printf("signaling: no handler registered for event %q", env.Type)
			continue
		}
		handler(c.id, env)
	}
}

func (s *Server) writePump(c *serverConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *serverConn) trySend(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

func (c *serverConn) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
