package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendQueueLen = 64
)

// PongWait is how long a reader may wait for any frame before giving up.
const PongWait = pongWait

type socket interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one attached client. Frames are queued and written by a single
// pump goroutine; a full queue drops the frame.
type Conn struct {
	ID      string
	ActorID string
	Kind    string

	sock    socket
	send    chan []byte
	limiter *rate.Limiter

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func newConn(id, actorID, kind string, sock socket, eventsPerSecond float64) *Conn {
	limit := rate.Inf
	burst := 0
	if eventsPerSecond > 0 {
		limit = rate.Limit(eventsPerSecond)
		burst = int(eventsPerSecond * 2)
		if burst < 1 {
			burst = 1
		}
	}
	return &Conn{
		ID:      id,
		ActorID: actorID,
		Kind:    kind,
		sock:    sock,
		send:    make(chan []byte, sendQueueLen),
		limiter: rate.NewLimiter(limit, burst),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// Allow reports whether another inbound event may be handled now.
func (c *Conn) Allow() bool {
	return c.limiter.Allow()
}

// Send queues an event for this connection only.
func (c *Conn) Send(event string, payload any) bool {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Error("failed to encode event", "channel_id", c.ID, "event", event, "error", err.Error())
		return false
	}
	return c.enqueue(frame)
}

func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		slog.Warn("send queue full, dropping event", "channel_id", c.ID)
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Wait blocks until the write pump has released the socket.
func (c *Conn) Wait() {
	<-c.exited
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
		close(c.exited)
	}()

	for {
		select {
		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("write failed", "channel_id", c.ID, "error", err.Error())
				c.close()
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
