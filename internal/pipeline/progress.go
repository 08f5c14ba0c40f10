package pipeline

import (
	"sync"

	"github.com/jonathan/codex-pipeline/internal/batch"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind
// before further events are dropped for it
const subscriberBuffer = 16

// Broker fans batch progress events out to subscribers. A subscriber's
// channel is closed once its batch reaches a terminal status.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan batch.ProgressEvent]struct{}
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan batch.ProgressEvent]struct{})}
}

// Subscribe returns a channel of progress events for batchID and a function
// that cancels the subscription. Cancelling twice, or after the channel was
// closed, is a no-op.
func (b *Broker) Subscribe(batchID string) (<-chan batch.ProgressEvent, func()) {
	ch := make(chan batch.ProgressEvent, subscriberBuffer)
	b.mu.Lock()
	if b.subs[batchID] == nil {
		b.subs[batchID] = make(map[chan batch.ProgressEvent]struct{})
	}
	b.subs[batchID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[batchID][ch]; ok {
			delete(b.subs[batchID], ch)
			if len(b.subs[batchID]) == 0 {
				delete(b.subs, batchID)
			}
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of its batch
func (b *Broker) Publish(ev batch.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[ev.BatchID]
	for ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Status == types.BatchCompleted || ev.Status == types.BatchError {
		for ch := range subs {
			close(ch)
		}
		delete(b.subs, ev.BatchID)
	}
}

// Subscribers reports how many subscriptions are open for batchID
func (b *Broker) Subscribers(batchID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[batchID])
}
