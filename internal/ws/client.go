package ws

import (
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"

	"github.com/KhanMaytok/pixl-interview/internal/metrics"
)

// Client is one live websocket connection bound to an authenticated user.
// It implements hub.Sink.
type Client struct {
	ws       *websocket.Conn
	send     chan Outbound
	done     chan struct{}
	userID   int64
	socketID string
	limiter  *rate.Limiter
	closed   int32
}

func newClient(conn *websocket.Conn, userID int64, socketID string, buffer, rps int) *Client {
	return &Client{
		ws:       conn,
		send:     make(chan Outbound, buffer),
		done:     make(chan struct{}),
		userID:   userID,
		socketID: socketID,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Send queues a payload without blocking the publisher; a full buffer or a
// closing connection means the payload is dropped for this channel. The
// send channel itself is never closed, so a publisher racing the teardown
// at worst enqueues into a buffer nobody drains.
func (c *Client) Send(v any) bool {
	out, ok := v.(Outbound)
	if !ok {
		return false
	}
	if atomic.LoadInt32(&c.closed) == 1 {
		return false
	}
	select {
	case c.send <- out:
		return true
	default:
		metrics.MessagesDropped.Inc()
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
			return
		case out := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteJSON(out); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.done)
	}
}
