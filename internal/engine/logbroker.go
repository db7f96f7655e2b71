package engine

import "sync"

// subscriberBufferSize is the channel buffer for each log subscriber.
// Lines are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// LogBroker fans out per-chunk output lines to subscribers while a chunk
// runs. It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a run finishes) receive a closed channel instead of
// blocking forever. A chunk can run again, so Open clears the marker and the
// topic goes live once more.
type LogBroker struct {
	mu     sync.Mutex
	topics map[string]*logTopic
}

type logTopic struct {
	subs   map[int]chan string
	nextID int
	closed bool
}

// NewLogBroker creates a new log broker.
func NewLogBroker() *LogBroker {
	return &LogBroker{
		topics: make(map[string]*logTopic),
	}
}

// Open marks the topic for chunkID live, clearing any closed marker left by
// a previous run. Subscribers from before the reopen were already detached
// when their channels closed; they do not carry over.
func (b *LogBroker) Open(chunkID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[chunkID]
	if !ok {
		b.topics[chunkID] = &logTopic{subs: make(map[int]chan string)}
		return
	}
	t.closed = false
}

// Subscribe returns a channel that receives output lines for the given chunk
// and an unsubscribe function. If the chunk's last run has already finished
// (Close was called and no Open since), the returned channel is immediately
// closed.
func (b *LogBroker) Subscribe(chunkID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[chunkID]
	if !ok {
		t = &logTopic{subs: make(map[int]chan string)}
		b.topics[chunkID] = t
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

// Publish sends an output line to all subscribers of the given chunk.
// Lines are dropped for subscribers whose buffers are full.
func (b *LogBroker) Publish(chunkID string, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[chunkID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			// Drop line for slow subscribers to avoid blocking execution.
		}
	}
}

// Close signals that the current run of the given chunk has finished. All
// subscriber channels are closed and future Subscribe calls return a closed
// channel until the next Open.
func (b *LogBroker) Close(chunkID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[chunkID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[chunkID] = &logTopic{subs: make(map[int]chan string), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
