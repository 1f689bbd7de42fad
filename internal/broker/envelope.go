package broker

import "time"

// EventKind identifies what an Envelope carries, independent of the
// subject it is published on.
type EventKind string

// Envelope is the structured record carried on a subject.
type Envelope struct {
	Subject        string
	Kind           EventKind
	SequenceNumber uint64
	Timestamp      time.Time
	PlayerID       string
	RoomID         string
	Payload        any
}
