package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Viewers never send data frames, so reads are capped small and only
// serve to detect a dropped connection.
const (
	readLimit    = 4 * 1024
	idleTimeout  = time.Minute
	pingInterval = 50 * time.Second
	writeTimeout = 10 * time.Second
)

// Conn is the part of a websocket connection a Client needs.
// *websocket.Conn satisfies it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket subscriber
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// NewClient creates a client for conn. It is not registered until Run.
func NewClient(h *Hub, conn Conn) *Client {
	return &Client{hub: h, conn: conn, send: make(chan Message, sendBuffer)}
}

// Run registers the client and serves it until the connection drops or the
// hub stops. It blocks, so call it from the websocket handler.
func (c *Client) Run() {
	if !c.hub.add(c) {
		c.conn.Close()
		return
	}
	go c.deliver()
	c.watch()
}

// watch drains inbound frames until the peer goes away.
func (c *Client) watch() {
	defer c.hub.remove(c)
	defer c.conn.Close()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	c.conn.SetReadLimit(readLimit)
	c.conn.SetPongHandler(extend)
	extend("")

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// deliver owns every write on the connection.
func (c *Client) deliver() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(msg.Type.frame(), msg.Data)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) write(frame int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(frame, data)
}

// frame maps a message type to its websocket opcode
func (t MessageType) frame() int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
