package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is the client side of the signaling exchange: it dials the
// relay server's signaling endpoint, sends offer/answer/candidate
// envelopes, and dispatches whatever the server sends back to
// registered EventHandlers.
type Client struct {
	uri      string
	clientID string

	mu       sync.RWMutex
	conn     *websocket.Conn
	send     chan []byte
	handlers map[EventType]EventHandler
}

// NewClient creates a signaling Client. clientID may be empty; the server
// then assigns one, which it does not send back to the client. OnEvent
// callbacks receive the envelope's ClientID field, i.e. the sender's id.
func NewClient(uri, clientID string) *Client {
	return &Client{
		uri:      uri,
		clientID: clientID,
		send:     make(chan []byte, 32),
		handlers: make(map[EventType]EventHandler),
	}
}

// OnEvent registers the handler invoked for every decoded envelope of
// type t received from the server.
func (c *Client) OnEvent(t EventType, fn EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = fn
}

// Dial connects to the signaling server, retrying with exponential
// backoff (100ms, 200ms, 400ms, ... capped at 5 attempts). It blocks until
// connected or the context is done, then starts the read/write pumps in
// the background and returns.
func (c *Client) Dial(ctx context.Context) error {
	url := c.uri
	if c.clientID != "" {
		url = fmt.Sprintf("%s?client_id=%s", c.uri, c.clientID)
	}

	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, http.Header{})
		cancel()
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			go c.readPump()
			go c.writePump()
			return nil
		}

		lastErr = err
		backoff := time.Duration(100*(1<<attempt)) * time.Millisecond
		log.Printf("signaling: dial attempt %d/%d failed: %v, retrying in %s", attempt+1, maxAttempts, err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("signaling: dial %s: %w", c.uri, lastErr)
}

// Send delivers env to the server. Never blocks: if the outbound buffer
// is full the connection is torn down (the caller's reconnect logic, if
// any, is responsible for redialing).
func (c *Client) Send(env Envelope) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		log.Printf("signaling: send with no active connection, dropping %s", env.Type)
		return
	}
	select {
	case c.send <- env.marshal():
	default:
		log.Printf("signaling: outbound buffer full, closing connection")
		conn.Close()
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) readPump() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	conn.SetReadLimit(8192)
	conn.SetPongHandler(func(string) error { return nil })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("signaling: client read error: %v", err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("signaling: client received malformed envelope: %v", err)
			continue
		}

		c.mu.RLock()
		handler := c.handlers[env.Type]
		c.mu.RUnlock()
		if handler != nil {
			handler(env.ClientID, env)
		}
	}
}

func (c *Client) writePump() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
