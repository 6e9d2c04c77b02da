package lobby

import (
	"sync"
	"sync/atomic"
)

// BusCapacity is the default per-subscriber buffer depth, matching
// original_source/src/server.rs's broadcast channel capacity.
const BusCapacity = 100

// Bus is a hand-rolled multi-consumer broadcast fan-out with bounded
// per-subscriber queues (spec.md §5, §9). Both the coordinator and the
// client tasks publish; Publish holds the bus mutex for the whole
// fan-out, so concurrent producers are serialized. A slow consumer's
// queue fills, the oldest entry is dropped, and the drop count
// accumulates in that subscriber's Lagged counter rather than blocking
// the producer (spec.md §5 "slow consumers MAY lag but MUST not block
// producers").
//
// No example repo in the corpus ships a reusable broadcast-bus type —
// la2go's ClientManager.BroadcastToAll iterates connected clients and
// writes directly instead of publishing to a shared bus — so this is
// one of the few pieces of this codebase built on nothing but the
// standard library.
type Bus struct {
	mu   sync.Mutex
	subs map[int]*Subscription
	next int
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]*Subscription),
	}
}

// Subscription is one consumer's bounded view of the bus.
type Subscription struct {
	id     int
	ch     chan ClientCommand
	lagged atomic.Int64
	bus    *Bus
}

// C returns the channel to receive broadcast ClientCommands from.
func (s *Subscription) C() <-chan ClientCommand { return s.ch }

// TakeLagged returns and resets the number of messages dropped for this
// subscriber since the last call (spec.md §5 "Lagged(n) indication").
func (s *Subscription) TakeLagged() int64 { return s.lagged.Swap(0) }

// Close unsubscribes; the bus stops delivering to this subscription.
func (s *Subscription) Close() { s.bus.unsubscribe(s.id) }

// Subscribe registers a new consumer with a BusCapacity-deep queue.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{id: b.next, ch: make(chan ClientCommand, BusCapacity), bus: b}
	b.subs[sub.id] = sub
	b.next++
	return sub
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish fans cmd out to every current subscriber. Never blocks: a
// full subscriber queue has its oldest entry dropped to make room.
func (b *Bus) Publish(cmd ClientCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- cmd:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- cmd:
			default:
			}
			sub.lagged.Add(1)
		}
	}
}
