package transport

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Listener upgrades HTTP requests to websocket connections and hands
// each new Conn to the game loop over a channel, mirroring the teacher's
// Server.NewSessions()/AcceptLoop split.
type Listener struct {
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	newConns chan *Conn

	inSize       int
	outSize      int
	writeTimeout time.Duration
	readTimeout  time.Duration

	log *zap.Logger
}

// NewListener builds a Listener. inSize/outSize size each Conn's
// buffered channels; readTimeout/writeTimeout bound idle/slow peers.
func NewListener(inSize, outSize int, readTimeout, writeTimeout time.Duration, log *zap.Logger) *Listener {
	return &Listener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		newConns:     make(chan *Conn, 64),
		inSize:       inSize,
		outSize:      outSize,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		log:          log,
	}
}

// NewConns returns the channel of newly accepted connections.
func (l *Listener) NewConns() <-chan *Conn {
	return l.newConns
}

// ServeHTTP upgrades the request to a websocket connection. The upgrade
// is unconditional: the transport layer performs no authentication, and
// authenticating the connection is left to whoever reads it from
// NewConns.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Warn("transport: upgrade failed", zap.Error(err))
		return
	}
	if l.readTimeout > 0 {
		ws.SetReadDeadline(time.Now().Add(l.readTimeout))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(l.readTimeout))
			return nil
		})
	}

	id := l.nextID.Add(1)
	conn := NewConn(id, ws, l.inSize, l.outSize, l.writeTimeout, l.log)
	conn.Start()

	select {
	case l.newConns <- conn:
	default:
		l.log.Warn("transport: new-connection queue full, rejecting")
		conn.Close("listener_queue_full")
	}
}
