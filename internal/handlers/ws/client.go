package ws

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Conn is the slice of a websocket connection the client writer needs.
// *websocket.Conn satisfies it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client serializes all outbound writes for one connection through a single
// writer goroutine. Events published to a group are enqueued in publish order,
// so per-publisher FIFO is preserved end to end.
type Client struct {
	conn Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(conn Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Enqueue hands a frame to the writer. A client whose queue is full is
// considered dead and gets closed rather than blocking the publisher.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		log.Printf("closing slow websocket client (send queue full)")
		c.Close()
		return false
	}
}

// Close shuts the writer down and closes the underlying connection. Safe to
// call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			log.Printf("websocket close failed: %v", err)
		}
	})
}

func (c *Client) writePump() {
	for {
		select {
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("websocket write failed: %v", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
