package chain

// EventCode tags the first word of an outbound event tuple.
type EventCode int64

const (
	EventActiveToggled   EventCode = 600
	EventHit             EventCode = 601
	EventHealed          EventCode = 602
	EventCounterAttacked EventCode = 603
	EventDefeated        EventCode = 666
)

// String returns a lowercase label for the code.
func (c EventCode) String() string {
	switch c {
	case EventActiveToggled:
		return "active_toggled"
	case EventHit:
		return "hit"
	case EventHealed:
		return "healed"
	case EventCounterAttacked:
		return "counter_attacked"
	case EventDefeated:
		return "defeated"
	default:
		return "unknown"
	}
}

// Event is the fixed-size numeric tuple delivered to an event listener.
type Event [Slots]int64

// NewEvent builds an event with code in word 0.
func NewEvent(code EventCode, a, b, c int64) Event {
	return Event{int64(code), a, b, c}
}

// Code returns the event's tag.
func (e Event) Code() EventCode { return EventCode(e[0]) }

// Notice is a fire-and-forget text message, optionally carrying native currency.
type Notice struct {
	Text   string
	Amount int64
}

// Notifier delivers text notices to accounts.
type Notifier interface {
	Notify(to AccountID, n Notice)
}

// EventSink delivers structured events to an account.
type EventSink interface {
	Emit(to AccountID, e Event)
}
