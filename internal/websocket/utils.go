package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serialises writes to a WebSocket connection. gorilla/websocket allows
// one concurrent writer only, and both the state stream and the request loop
// write.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap wraps an upgraded connection.
func Wrap(c *websocket.Conn) *Conn {
	return &Conn{Conn: c}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// WriteState sends the rendered screen.
func (c *Conn) WriteState(screen interface{}) error {
	return c.WriteTyped(StateResponse{Event: EventState, Screen: screen})
}

// ReadRequest reads and decodes a client message with a read deadline.
func (c *Conn) ReadRequest(v *RequestPayload) error {
	c.SetReadDeadline(time.Now().Add(readWait))
	return c.ReadJSON(v)
}
