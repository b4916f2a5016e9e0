package core

import (
	"time"

	"github.com/molniya-im/molniya/logging"
)

// Dispatch-epilogue flags requested by the actor during a callback.
const (
	ctxStop uint8 = 1 << iota
	ctxMigrate
)

// Context is the explicit dispatch context passed to every actor
// callback. It identifies the executing scheduler and actor and collects
// the stop/migrate requests that the scheduler honors once the current
// event batch finishes. A Context is only valid for the duration of the
// callback it was passed to.
type Context struct {
	sched     *Scheduler
	info      *ActorInfo
	linkToken uint64
	flags     uint8
	dest      SchedulerID
}

// canRun reports whether dispatch of further mailbox events may continue.
func (c *Context) canRun() bool {
	return c.flags == 0
}

// Self returns the executing actor's reference.
func (c *Context) Self() ActorID {
	return c.info.id()
}

// Name returns the executing actor's debug name.
func (c *Context) Name() string {
	return c.info.name
}

// SchedulerID returns the id of the scheduler running this callback.
func (c *Context) SchedulerID() SchedulerID {
	return c.sched.id
}

// System returns the owning scheduler pool.
func (c *Context) System() *System {
	return c.sched.system
}

// LinkToken returns the link token of the event being dispatched.
func (c *Context) LinkToken() uint64 {
	return c.linkToken
}

// Logger returns the scheduler logger scoped to this actor.
func (c *Context) Logger() logging.Logger {
	return c.sched.logger.With(logging.String("actor", c.info.name))
}

// Send delivers an event to another actor, running it inline when the
// target is local, idle, and has an empty mailbox.
func (c *Context) Send(to ActorID, ev Event) {
	c.sched.SendImmediately(to, ev)
}

// SendLater delivers an event to another actor without the inline fast
// path; it always goes through the target's mailbox.
func (c *Context) SendLater(to ActorID, ev Event) {
	c.sched.SendLater(to, ev)
}

// CreateActor registers a new actor on the executing scheduler.
func (c *Context) CreateActor(name string, a Actor) ActorID {
	return c.sched.RegisterActor(name, a)
}

// CreateActorOn registers a new actor owned by the given scheduler.
func (c *Context) CreateActorOn(sched SchedulerID, name string, a Actor) ActorID {
	return c.sched.RegisterActorOn(sched, name, a)
}

// Yield schedules a Wakeup for the executing actor.
func (c *Context) Yield() {
	c.sched.SendLater(c.Self(), YieldEvent())
}

// Stop requests destruction of the executing actor once the current
// event batch finishes. TearDown runs as part of destruction.
func (c *Context) Stop() {
	c.flags |= ctxStop
}

// Migrate requests relocation of the executing actor to another
// scheduler once the current event batch finishes. Migrating to the
// current scheduler is a no-op; an out-of-range destination is fatal.
func (c *Context) Migrate(dest SchedulerID) {
	if dest == c.sched.id {
		return
	}
	if dest < 0 || int(dest) >= len(c.sched.outbound) {
		c.sched.logger.Fatal("migrate to invalid scheduler",
			logging.String("actor", c.info.name),
			logging.Int32("dest", int32(dest)))
	}
	c.flags |= ctxMigrate
	c.dest = dest
}

// SetTimeout arms (or re-arms) the actor's timeout to fire after d.
func (c *Context) SetTimeout(d time.Duration) {
	c.SetTimeoutAt(time.Now().Add(clampTimeout(d)))
}

// SetTimeoutAt arms (or re-arms) the actor's timeout at an absolute
// deadline.
func (c *Context) SetTimeoutAt(at time.Time) {
	c.sched.timeouts.set(c.info, at)
}

// CancelTimeout disarms the actor's timeout if one is armed.
func (c *Context) CancelTimeout() {
	c.sched.timeouts.cancel(c.info)
}

// HasTimeout reports whether a timeout is armed.
func (c *Context) HasTimeout() bool {
	return c.info.heapIndex >= 0
}

// TimeoutIn returns the remaining time until the armed timeout, or zero
// when none is armed.
func (c *Context) TimeoutIn() time.Duration {
	if c.info.heapIndex < 0 {
		return 0
	}
	return time.Until(c.info.deadline)
}

// maxTimeoutIn caps relative timeouts so arithmetic on deadlines stays
// well clear of time.Duration overflow.
const maxTimeoutIn = 10000 * time.Hour

func clampTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxTimeoutIn {
		return maxTimeoutIn
	}
	return d
}
