package core

import (
	"fmt"
)

// SchedulerID identifies one scheduler inside a System. The main
// scheduler is always 0.
type SchedulerID int32

// EventType defines the kind of event delivered to an actor.
type EventType uint8

const (
	// EventNone is the zero value and never dispatched.
	EventNone EventType = iota

	// EventStart triggers StartUp after registration
	EventStart

	// EventStop triggers TearDown; generated by the scheduler while
	// destroying an actor
	EventStop

	// EventYield triggers Wakeup
	EventYield

	// EventHangup triggers Hangup, or HangupShared when a link token is set
	EventHangup

	// EventTimeout triggers TimeoutExpired
	EventTimeout

	// EventRaw carries an opaque payload to RawEvent
	EventRaw

	// EventCustom carries a closure executed in the actor's context
	EventCustom
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	case EventYield:
		return "yield"
	case EventHangup:
		return "hangup"
	case EventTimeout:
		return "timeout"
	case EventRaw:
		return "raw"
	case EventCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Event is a single unit of work delivered to an actor's mailbox.
type Event struct {
	// Type indicates which actor callback runs
	Type EventType

	// LinkToken distinguishes the logical sub-connection a Hangup
	// refers to; zero means none
	LinkToken uint64

	// Payload is the opaque data of an EventRaw
	Payload any

	// Fn is the closure of an EventCustom
	Fn func(*Context)
}

// StartEvent creates a Start event.
func StartEvent() Event { return Event{Type: EventStart} }

// StopEvent creates a Stop event.
func StopEvent() Event { return Event{Type: EventStop} }

// YieldEvent creates a Yield event.
func YieldEvent() Event { return Event{Type: EventYield} }

// HangupEvent creates a Hangup event.
func HangupEvent() Event { return Event{Type: EventHangup} }

// TimeoutEvent creates a Timeout event.
func TimeoutEvent() Event { return Event{Type: EventTimeout} }

// RawEvent creates an event carrying an opaque payload.
func RawEvent(payload any) Event { return Event{Type: EventRaw, Payload: payload} }

// CustomEvent creates an event carrying a closure to run in the target
// actor's context.
func CustomEvent(fn func(*Context)) Event { return Event{Type: EventCustom, Fn: fn} }

// WithLinkToken returns a copy of the event tagged with a link token.
func (e Event) WithLinkToken(token uint64) Event {
	e.LinkToken = token
	return e
}

// String returns a short description for logging.
func (e Event) String() string {
	if e.LinkToken != 0 {
		return fmt.Sprintf("%s(link=%d)", e.Type, e.LinkToken)
	}
	return e.Type.String()
}

// EventFull is an Event paired with its destination, used only when an
// event crosses a scheduler boundary through a queue.
//
// Three shapes travel through the cross-thread queues:
//   - Target set: deliver Event to that actor.
//   - Migrated set (Target empty): register the in-flight ActorInfo on
//     the receiving scheduler.
//   - zero value: a plain wakeup notice for the receiving scheduler.
type EventFull struct {
	Target   ActorID
	Event    Event
	Migrated *ActorInfo
}
