package mavlink

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// busCapacity mirrors the Rust side's broadcast channel capacity: a
// subscriber that falls this far behind is dropped forward (Lagged),
// never blocking the publisher.
const busCapacity = 10000

// Direction tags whether a Frame is inbound from the autopilot or
// outbound to it, the Go stand-in for the Rust connection::Message enum.
type Direction int

const (
	Received Direction = iota
	ToBeSent
)

// Frame is one bus message: a MAVLink message plus its header fields and
// direction.
type Frame struct {
	Direction   Direction
	SystemID    uint8
	ComponentID uint8
	Message     any
}

// Bus is a bounded, multi-subscriber fan-out of Frames. It never blocks the
// publisher: a subscriber whose queue fills is dropped a Lagged notice and
// its oldest pending frames, exactly like tokio::sync::broadcast.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan busItem
	nextID int
	log    *logrus.Entry
}

type busItem struct {
	frame  Frame
	lagged int
}

func NewBus(log *logrus.Entry) *Bus {
	return &Bus{subs: make(map[int]chan busItem), log: log}
}

// Subscription is a single consumer's view of the Bus.
type Subscription struct {
	id  int
	bus *Bus
	ch  chan busItem
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan busItem, busCapacity)
	b.subs[id] = ch
	return &Subscription{id: id, bus: b, ch: ch}
}

func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}

// Recv blocks for the next frame, logging and continuing past a lag
// notice rather than surfacing it as an error (degraded responsiveness,
// never termination).
func (s *Subscription) Recv() Frame {
	for {
		item := <-s.ch
		if item.lagged > 0 {
			s.bus.log.Warnf("subscriber lagged behind by %d frames; degraded responsiveness", item.lagged)
			continue
		}
		return item.frame
	}
}

// RecvChan exposes the raw channel for select-based consumers; lag
// notices still arrive as items with a non-zero lagged count and a
// zero-value frame, and must be filtered by callers that need the
// guarantee Recv gives. Prefer Recv unless you need to multiplex with other channels.
func (s *Subscription) RecvChan() <-chan busItem { return s.ch }

// Publish fans a frame out to every live subscriber. A full subscriber
// channel is treated as lag: its oldest item is dropped to make room and
// a lag marker is queued instead of blocking.
func (b *Bus) Publish(frame Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- busItem{frame: frame}:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- busItem{lagged: 1}:
			default:
			}
		}
	}
}
