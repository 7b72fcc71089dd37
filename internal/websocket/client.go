package websocket

import (
	"net/http"
	"sync"
	"time"

	"OfficeSLAMonitor/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection with its own write queue.
type Client struct {
	ID string

	conn      *websocket.Conn
	send      chan Message
	onMessage func([]byte)
	done      chan struct{}
	closeOnce sync.Once
	log       *logger.Logger
}

// Upgrade turns the request into a Client and starts its pumps. onMessage,
// when set, receives every text frame read from the peer.
func Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger, onMessage func([]byte)) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WS upgrade error: %v", err)
		return nil, err
	}

	client := &Client{
		ID:        uuid.NewString(),
		conn:      conn,
		send:      make(chan Message, sendBuffer),
		onMessage: onMessage,
		done:      make(chan struct{}),
		log:       log,
	}

	go client.writePump()
	go client.readPump()

	return client, nil
}

// Send queues m without blocking. It reports false when the client is closed
// or its queue is full.
func (c *Client) Send(m Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("WS client %s read error: %v", c.ID, err)
			}
			return
		}
		if kind == websocket.TextMessage && c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
