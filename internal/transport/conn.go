// Package transport is the websocket duplex endpoint (C13): it upgrades
// an HTTP request to a websocket connection, without authenticating it, and
// runs a dedicated read-pump/write-pump goroutine pair per connection,
// generalized from the teacher's internal/net.Server/Session split.
package transport

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mythosmud/mudserver/internal/broker"
	"go.uber.org/zap"
)

// Conn is a single connection's duplex channel. Game-state code (the
// command pipeline, the session manager) only ever calls Send/Close; the
// wire protocol lives entirely in the pump goroutines.
type Conn struct {
	id   uint64
	ws   *websocket.Conn
	lines chan string          // inbound command lines, read by the game loop
	out   chan broker.Envelope // outbound envelopes, read by the write pump

	writeTimeout time.Duration

	closeOnce sync.Once
	closeCh   chan struct{}
	closed    atomic.Bool

	log *zap.Logger
}

// NewConn wraps an already-upgraded websocket connection. inSize/outSize
// size the buffered channels; writeTimeout bounds each frame write.
func NewConn(id uint64, ws *websocket.Conn, inSize, outSize int, writeTimeout time.Duration, log *zap.Logger) *Conn {
	c := &Conn{
		id:           id,
		ws:           ws,
		lines:        make(chan string, inSize),
		out:          make(chan broker.Envelope, outSize),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint64("conn", id)),
	}
	return c
}

// ID returns the connection's server-assigned identifier.
func (c *Conn) ID() uint64 { return c.id }

// Lines returns the channel of inbound command lines; the game loop
// drains it until the channel closes (connection gone).
func (c *Conn) Lines() <-chan string { return c.lines }

// Start launches the read and write pump goroutines.
func (c *Conn) Start() {
	go c.readPump()
	go c.writePump()
}

// Send queues env for delivery as a JSON frame. Non-blocking: a slow
// reader whose out channel is full is disconnected rather than allowed
// to stall the broker's synchronous Publish fan-out (mirrors the
// teacher's Session.Send backpressure policy).
func (c *Conn) Send(env broker.Envelope) error {
	if c.closed.Load() {
		return nil
	}
	select {
	case c.out <- env:
		return nil
	default:
		c.log.Warn("transport: out queue full, disconnecting slow reader")
		c.Close("out_queue_full")
		return nil
	}
}

// Close shuts the connection down idempotently.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(time.Second))
		c.ws.Close()
	})
}

// readPump reads newline-delimited UTF-8 command lines from the wire and
// forwards them to Lines() until the connection closes.
func (c *Conn) readPump() {
	defer close(c.lines)
	defer c.Close("read_pump_exit")

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			select {
			case c.lines <- line:
			case <-c.closeCh:
				return
			}
		}
	}
}

// writePump drains out and writes each envelope as a JSON frame.
func (c *Conn) writePump() {
	defer c.Close("write_pump_exit")

	for {
		select {
		case env := <-c.out:
			payload, err := json.Marshal(env)
			if err != nil {
				c.log.Error("transport: marshal envelope failed", zap.Error(err))
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
