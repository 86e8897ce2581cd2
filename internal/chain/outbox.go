package chain

import "sync"

// Delivery is one notice or event addressed to an account.
type Delivery struct {
	To     AccountID
	Notice *Notice
	Event  *Event
}

// Outbox is a Notifier and EventSink that buffers deliveries in order.
// It is safe for concurrent use.
type Outbox struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// NewOutbox returns an empty Outbox.
func NewOutbox() *Outbox { return &Outbox{} }

// Notify implements Notifier.
func (o *Outbox) Notify(to AccountID, n Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, Delivery{To: to, Notice: &n})
}

// Emit implements EventSink.
func (o *Outbox) Emit(to AccountID, e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, Delivery{To: to, Event: &e})
}

// Drain returns buffered deliveries and clears the buffer.
func (o *Outbox) Drain() []Delivery {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.deliveries
	o.deliveries = nil
	return out
}

// Truncate drops deliveries recorded after the first n.
func (o *Outbox) Truncate(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n < len(o.deliveries) {
		o.deliveries = o.deliveries[:n]
	}
}

// Len returns the number of buffered deliveries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.deliveries)
}

// Checkpoint implements Checkpointer so a failed step also retracts its messages.
func (o *Outbox) Checkpoint() (restore func()) {
	n := o.Len()
	return func() { o.Truncate(n) }
}
