// Package broker is the message broker facade (C2): it publishes
// envelopes on a subject and fans them out to every matching in-process
// subscriber, with an optional best-effort external bus.
package broker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/subject"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExternalBus is the optional out-of-process forwarding path. A nil Bus
// field means "not connected"; forwarding failures are logged and never
// block local delivery.
type ExternalBus interface {
	Publish(subj string, data []byte) error
	IsConnected() bool
}

// Callback is a subscriber's handler. Callbacks must not block; long work
// is the callback's problem, not the broker's.
type Callback func(Envelope)

type subscription struct {
	id       uint64
	pattern  string
	callback Callback
}

// Broker is the facade. It is safe for concurrent Publish/Subscribe calls.
type Broker struct {
	registry *subject.Registry
	bus      ExternalBus
	log      *zap.Logger

	mu         sync.RWMutex
	subs       map[uint64]*subscription
	nextHandle uint64

	seq atomic.Uint64
}

// New builds a Broker bound to a subject registry. bus may be nil.
func New(registry *subject.Registry, bus ExternalBus, log *zap.Logger) *Broker {
	return &Broker{
		registry: registry,
		bus:      bus,
		log:      log,
		subs:     make(map[uint64]*subscription),
	}
}

// Handle is returned by Subscribe; Unsubscribe releases the subscription.
type Handle struct {
	b  *Broker
	id uint64
}

func (h *Handle) Unsubscribe() {
	h.b.mu.Lock()
	delete(h.b.subs, h.id)
	h.b.mu.Unlock()
}

// Subscribe registers a callback for every concrete subject matching
// pattern (which may contain "*" and a trailing ">").
func (b *Broker) Subscribe(pattern string, cb Callback) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	id := b.nextHandle
	b.subs[id] = &subscription{id: id, pattern: pattern, callback: cb}
	return &Handle{b: b, id: id}
}

// Publish validates subj through the registry, stamps sequence number and
// timestamp, and delivers to every matching local subscriber before
// returning — preserving "all matching local subscribers are delivered
// before the call returns" within a single Publish call. Across Publish
// calls from this Broker, delivery order follows publish order (the
// sequence number); no ordering is promised across different brokers.
func (b *Broker) Publish(subj string, kind EventKind, playerID, roomID string, payload any) (Envelope, error) {
	if !b.registry.Validate(subj) {
		return Envelope{}, apperr.New(apperr.PatternNotFound, "subject %q matches no registered pattern", subj)
	}

	env := Envelope{
		Subject:        subj,
		Kind:           kind,
		SequenceNumber: b.seq.Add(1),
		Timestamp:      time.Now(),
		PlayerID:       playerID,
		RoomID:         roomID,
		Payload:        payload,
	}

	b.deliverLocal(env)
	b.forwardExternal(env)

	return env, nil
}

func (b *Broker) deliverLocal(env Envelope) {
	b.mu.RLock()
	matching := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if subject.MatchSubscription(s.pattern, env.Subject) {
			matching = append(matching, s)
		}
	}
	b.mu.RUnlock()

	if len(matching) == 0 {
		return
	}

	// Each subscriber is delivered on its own task (no shared mutable
	// state with the publisher), but Publish waits for all of them so
	// the ordering guarantee in the doc comment above holds.
	var g errgroup.Group
	for _, s := range matching {
		s := s
		g.Go(func() error {
			s.callback(env)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Broker) forwardExternal(env Envelope) {
	if b.bus == nil || !b.bus.IsConnected() {
		return
	}
	go func() {
		data, err := marshalEnvelope(env)
		if err != nil {
			b.log.Warn("broker: external envelope marshal failed", zap.String("subject", env.Subject), zap.Error(err))
			return
		}
		if err := b.bus.Publish(env.Subject, data); err != nil {
			b.log.Warn("broker: external forward failed", zap.String("subject", env.Subject), zap.Error(err))
		}
	}()
}
