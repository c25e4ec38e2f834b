package engine

import "sync"

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// EventBroker fans run events out to subscribers. It is safe for concurrent
// use.
//
// Closed topics are kept as markers so that a subscriber arriving after the
// run finished receives a closed channel instead of blocking forever.
type EventBroker struct {
	mu     sync.Mutex
	topics map[string]*eventTopic
}

type eventTopic struct {
	subs   map[int]chan string
	nextID int
	closed bool
}

// NewEventBroker creates an empty broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		topics: make(map[string]*eventTopic),
	}
}

// Subscribe returns a channel receiving the events of runID and an
// unsubscribe function. If the run already finished the channel is closed.
func (b *EventBroker) Subscribe(runID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok {
		t = &eventTopic{subs: make(map[int]chan string)}
		b.topics[runID] = t
	}

	ch := make(chan string, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to every subscriber of runID. Slow subscribers
// miss events rather than blocking the run.
func (b *EventBroker) Publish(runID, event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close ends the event stream of runID. Subscriber channels are closed and
// later Subscribe calls get a closed channel.
func (b *EventBroker) Close(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok {
		b.topics[runID] = &eventTopic{subs: make(map[int]chan string), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
