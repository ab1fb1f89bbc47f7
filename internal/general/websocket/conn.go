package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Conn is a server-push connection. Writes are serialized; inbound frames are
// discarded and only used to notice the peer going away.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Upgrade switches the request to the websocket protocol and starts the
// reader and keepalive loops.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{ws: ws, done: make(chan struct{})}
	ws.SetReadLimit(4 << 10)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

// Done is closed once the peer disconnects or Close is called.
func (c *Conn) Done() <-chan struct{} { return c.done }

// WriteJSON marshals v and writes it as one text frame.
func (c *Conn) WriteJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame with code and reason and releases the socket.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(wsCloseAckWindow),
		)
		c.writeMu.Unlock()
		_ = c.ws.Close()
		close(c.done)
	})
}

func (c *Conn) readLoop() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.Close(websocket.CloseNormalClosure, "bye")
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.Close(websocket.CloseGoingAway, "ping failed")
				return
			}
		}
	}
}

// Close codes re-exported for callers that do not import gorilla directly.
const (
	CloseNormalClosure     = websocket.CloseNormalClosure
	CloseGoingAway         = websocket.CloseGoingAway
	CloseInternalServerErr = websocket.CloseInternalServerErr
)
