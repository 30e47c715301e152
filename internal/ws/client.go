package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialnet/internal/auth"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum message size allowed from peer.

	sendBuffer = 256
)

// outFrame is a queued outbound write. A non-zero closeCode makes the frame
// terminal: the write pump sends the payload (if any), then the close frame
// with that code, then tears the connection down.
type outFrame struct {
	payload   []byte
	closeCode int
	reason    string
}

// Client is one admitted socket connection. Identity, Room and AddressedTo
// are fixed at construction: a connection is only built after authorization
// completes, never patched up afterwards.
type Client struct {
	Identity auth.Identity
	Room     string

	// AddressedTo restricts delivery to a single user. It is set only for
	// DM-before-first-message connections, where the room key is derived
	// from a username rather than an existing chat. Zero means no
	// restriction.
	AddressedTo uuid.UUID

	conn *websocket.Conn
	log  *zap.Logger

	mu     sync.Mutex
	out    chan outFrame
	closed bool
}

func NewClient(conn *websocket.Conn, identity auth.Identity, room string, addressedTo uuid.UUID, log *zap.Logger) *Client {
	return &Client{
		Identity:    identity,
		Room:        room,
		AddressedTo: addressedTo,
		conn:        conn,
		log:         log,
		out:         make(chan outFrame, sendBuffer),
	}
}

// Run starts the write pump. The read side stays with the caller's handler
// goroutine, since receive semantics differ per channel manager.
func (c *Client) Run() {
	go c.writePump()
}

// ReadMessage blocks for the next inbound frame.
func (c *Client) ReadMessage() ([]byte, error) {
	_, message, err := c.conn.ReadMessage()
	return message, err
}

// Deliver queues a broadcast frame without blocking. A peer whose buffer is
// full just misses the frame; delivery is best-effort and one slow peer must
// never stall a broadcast to the rest of the room.
func (c *Client) Deliver(payload []byte) bool {
	return c.enqueue(outFrame{payload: payload})
}

// Fail sends the structured error frame for e and closes the connection with
// e's close code. Frame ordering is preserved behind any queued broadcasts.
func (c *Client) Fail(e *SocketError) {
	payload, err := json.Marshal(e.frame())
	if err != nil {
		payload = nil
	}
	c.enqueue(outFrame{payload: payload, closeCode: e.Code, reason: e.Type})
}

func (c *Client) enqueue(f outFrame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- f:
		return true
	default:
		c.log.Warn("dropping frame for slow socket peer", zap.String("room", c.Room))
		return false
	}
}

// Close shuts the outbound queue. The write pump drains anything already
// queued (including a terminal error frame), sends a close frame, and tears
// down the transport. Safe to call more than once and concurrently with
// Deliver/Fail.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if f.payload != nil {
				if err := c.conn.WriteMessage(websocket.TextMessage, f.payload); err != nil {
					return
				}
			}
			if f.closeCode != 0 {
				msg := websocket.FormatCloseMessage(f.closeCode, f.reason)
				c.conn.WriteMessage(websocket.CloseMessage, msg)
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

// ConfigureRead applies read limits and pong-based keepalive. Call once
// before the receive loop starts.
func (c *Client) ConfigureRead() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}

// Reject writes one error frame and a close frame directly on a connection
// that has no pumps running yet (pre-admission failures: bad credential,
// failed membership validation). The connection is closed afterwards.
func Reject(conn *websocket.Conn, e *SocketError) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if payload, err := json.Marshal(e.frame()); err == nil {
		conn.WriteMessage(websocket.TextMessage, payload)
	}
	msg := websocket.FormatCloseMessage(e.Code, e.Type)
	conn.WriteMessage(websocket.CloseMessage, msg)
	conn.Close()
}
