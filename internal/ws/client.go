package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HTTP side already accepts cross-origin requests; the socket
	// endpoint matches it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live connection. It holds the raw session token from the
// cookie, never the resolved identity: the hub re-resolves the session
// before every inbound event.
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	token string

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, token string) *Client {
	return &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		token: token,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues an outbound event for the write pump. A connection whose
// buffer is full has the frame dropped rather than blocking the broadcaster.
func (c *Client) Send(event string, data any) {
	msg, err := envelope(event, data)
	if err != nil {
		c.hub.log.Error("failed to encode outbound event", "event", event, "err", err)
		return
	}
	c.enqueue(msg)
}

// SendError queues an error event with the {status, message} payload shape.
func (c *Client) SendError(status, message string) {
	msg, err := errorEnvelope(status, message)
	if err != nil {
		c.hub.log.Error("failed to encode error event", "err", err)
		return
	}
	c.enqueue(msg)
}

func (c *Client) enqueue(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("send buffer full, dropping frame", "conn", c.id)
	}
}

// closeAfterDrain closes the send channel. The write pump drains the frames
// already queued, sends a close frame, and only then closes the socket, so a
// final error event reaches the client before the disconnect. Idempotent.
func (c *Client) closeAfterDrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Close tears the connection down immediately. The read pump observes the
// closed socket and runs disconnect cleanup, so rooms are left exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("unexpected socket close", "conn", c.id, "err", err)
			}
			return
		}
		c.hub.dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and registers the connection with the hub.
// token may be empty: unauthenticated connections are allowed and can use
// the events that do not require auth.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, token string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("websocket upgrade failed", "err", err)
		return
	}

	client := newClient(hub, conn, token)
	hub.connect(client)

	go client.writePump()
	go client.readPump()
}
