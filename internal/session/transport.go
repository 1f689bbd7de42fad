package session

import "github.com/mythosmud/mudserver/internal/broker"

// Transport is the duplex channel a connected session writes envelopes to.
// The concrete implementation (internal/transport) wraps a websocket
// connection with its own read/write pump goroutines; the connection
// manager never touches the wire directly.
type Transport interface {
	Send(env broker.Envelope) error
	Close(reason string)
}
