package core

// Actor is the behavior contract implemented by every concrete actor.
//
// All callbacks run on the owning scheduler's thread, never concurrently
// for the same actor, and are expected to return quickly; there is no
// suspension inside a callback. The Context argument is only valid for
// the duration of the call.
type Actor interface {
	// StartUp runs once, right after the actor is registered.
	StartUp(c *Context)

	// TearDown runs once, while the actor is being destroyed.
	TearDown(c *Context)

	// Wakeup responds to a Yield event.
	Wakeup(c *Context)

	// Hangup responds to a Hangup event without a link token.
	Hangup(c *Context)

	// HangupShared responds to a Hangup event carrying a link token.
	HangupShared(c *Context)

	// TimeoutExpired runs when the actor's armed timeout fires.
	TimeoutExpired(c *Context)

	// RawEvent receives an opaque payload.
	RawEvent(c *Context, payload any)
}

// ActorBase provides default implementations of every Actor callback.
// Concrete actors embed it and override what they need. The Hangup
// defaults request destruction, so an unhandled hangup stops the actor.
type ActorBase struct{}

// StartUp does nothing by default.
func (ActorBase) StartUp(c *Context) {}

// TearDown does nothing by default.
func (ActorBase) TearDown(c *Context) {}

// Wakeup does nothing by default.
func (ActorBase) Wakeup(c *Context) {}

// Hangup stops the actor by default.
func (ActorBase) Hangup(c *Context) {
	c.Stop()
}

// HangupShared stops the actor by default.
func (ActorBase) HangupShared(c *Context) {
	c.Stop()
}

// TimeoutExpired does nothing by default.
func (ActorBase) TimeoutExpired(c *Context) {}

// RawEvent does nothing by default.
func (ActorBase) RawEvent(c *Context, payload any) {}
