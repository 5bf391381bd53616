package events

import "sync"

// Subscription is one reader of the bus. Published events are staged in an
// unbounded queue and drained into the channel by a dedicated goroutine, so
// publishers never block on slow consumers and delivery order is preserved.
type Subscription struct {
	ch     chan Event
	done   chan struct{}
	cond   *sync.Cond
	queue  []Event
	closed bool
}

func newSubscription() *Subscription {
	sub := &Subscription{
		ch:   make(chan Event, 1),
		done: make(chan struct{}),
		cond: sync.NewCond(&sync.Mutex{}),
	}

	go func() {
		defer close(sub.ch)

		for {
			evt, ok := sub.pop()
			if !ok {
				return
			}

			// The consumer may be gone already; Close unblocks the send.
			select {
			case sub.ch <- evt:
			case <-sub.done:
				return
			}
		}
	}()

	return sub
}

// C returns the channel events are delivered on. It is closed when the
// subscription is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) push(evt Event) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()

	if s.closed {
		return
	}

	s.queue = append(s.queue, evt)
	s.cond.Broadcast()
}

func (s *Subscription) pop() (Event, bool) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()

	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}

	if len(s.queue) == 0 {
		return nil, false
	}

	evt := s.queue[0]
	s.queue = s.queue[1:]

	return evt, true
}

// Close stops delivery. Events still queued are dropped; the delivery
// channel is closed once the drain goroutine exits.
func (s *Subscription) Close() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	s.queue = nil
	close(s.done)
	s.cond.Broadcast()
}

// Bus is the in-process notification bus. The engine publishes storage and
// network events on it; each screen instance holds one subscription.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new reader receiving every event published after
// this call, in publish order.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscription()
	b.subs[sub] = struct{}{}

	return sub
}

// Unsubscribe removes and closes the subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()

	sub.Close()
}

// Publish fans the event out to all current subscriptions without blocking.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		sub.push(evt)
	}
}

// Close closes every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		sub.Close()
		delete(b.subs, sub)
	}
}
