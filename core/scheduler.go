package core

import (
	"fmt"
	"time"

	"github.com/molniya-im/molniya/logging"
	"github.com/molniya-im/molniya/queue"
)

// idlePollInterval bounds the poll phase when no timeout is armed.
const idlePollInterval = 10000 * time.Second

// Scheduler is one cooperative event loop, typically pinned to one OS
// thread. It owns the actors resident on it: their mailboxes, the
// pending/ready bookkeeping, and the timeout heap are mutated only by
// the scheduler's own thread, so none of them is locked. The only
// cross-thread entry points are the inbound queue and Wakeup.
type Scheduler struct {
	id     SchedulerID
	system *System
	logger logging.Logger

	inbound  *queue.Pollable[EventFull]
	outbound []*queue.Pollable[EventFull]

	// pending holds resident actors with empty mailboxes; ready is the
	// FIFO of actors with events waiting to be drained. An actor is in
	// exactly one of the two unless it is running.
	pending map[*ActorInfo]struct{}
	ready   []*ActorInfo

	timeouts timeoutHeap

	// sideEvents buffers events for actors that are migrating to this
	// scheduler but whose migration notice has not been dequeued yet,
	// keyed by the in-flight record. Merged in registerMigratedActor.
	sideEvents map[*ActorInfo][]Event

	actorCount int
	yieldFlag  bool
	closing    bool

	serviceID ActorID
}

func newScheduler(id SchedulerID, queues []*queue.Pollable[EventFull], system *System, logger logging.Logger) *Scheduler {
	s := &Scheduler{
		id:         id,
		system:     system,
		logger:     logger.With(logging.Int32("sched", int32(id))),
		inbound:    queues[id],
		outbound:   queues,
		pending:    make(map[*ActorInfo]struct{}),
		sideEvents: make(map[*ActorInfo][]Event),
	}
	s.serviceID = s.RegisterActor(fmt.Sprintf("service-%d", id), &serviceActor{inbound: s.inbound})
	return s
}

// ID returns the scheduler's id within its System.
func (s *Scheduler) ID() SchedulerID {
	return s.id
}

// ActorCount returns the number of actors resident on this scheduler.
func (s *Scheduler) ActorCount() int {
	return s.actorCount
}

// RegisterActor creates an actor owned by this scheduler and delivers
// its Start event synchronously before returning the handle. Must be
// called on the scheduler's thread.
func (s *Scheduler) RegisterActor(name string, a Actor) ActorID {
	if s.closing {
		return ActorID{}
	}
	info := s.system.pool.alloc(name, a, s.id)
	s.actorCount++
	s.pending[info] = struct{}{}
	s.logger.Debug("create actor",
		logging.String("actor", name),
		logging.Int("actor_count", s.actorCount))

	id := info.id()
	s.dispatchOne(info, StartEvent())
	return id
}

// RegisterActorOn creates an actor owned by the given scheduler. For a
// foreign scheduler the Start event is queued in the mailbox and the
// record migrates immediately, so StartUp runs on the owning thread.
func (s *Scheduler) RegisterActorOn(sched SchedulerID, name string, a Actor) ActorID {
	if sched == s.id {
		return s.RegisterActor(name, a)
	}
	if s.closing {
		return ActorID{}
	}
	info := s.system.pool.alloc(name, a, s.id)
	s.actorCount++
	s.pending[info] = struct{}{}
	info.mailbox = append(info.mailbox, StartEvent())

	id := info.id()
	s.doMigrateActor(info, sched)
	return id
}

// SendImmediately delivers an event, running it inline when the target
// is resident here, idle, and has an empty mailbox. Must be called on
// the scheduler's thread.
func (s *Scheduler) SendImmediately(id ActorID, ev Event) {
	info := id.resolve()
	if info == nil || s.closing {
		return
	}
	dest, migrating := info.migrateDestFlag()
	onCurrent := !migrating && dest == s.id
	if onCurrent && !info.running && len(info.mailbox) == 0 {
		s.dispatchOne(info, ev)
		return
	}
	if onCurrent {
		s.addToMailbox(info, ev)
	} else {
		s.sendToScheduler(dest, id, ev)
	}
}

// SendLater delivers an event through the target's mailbox, never
// inline. Must be called on the scheduler's thread.
func (s *Scheduler) SendLater(id ActorID, ev Event) {
	info := id.resolve()
	if info == nil || s.closing {
		return
	}
	dest, migrating := info.migrateDestFlag()
	if !migrating && dest == s.id {
		s.addToMailbox(info, ev)
	} else {
		s.sendToScheduler(dest, id, ev)
	}
}

// Yield makes the current Run iteration return before its poll phase.
func (s *Scheduler) Yield() {
	s.yieldFlag = true
}

// Wakeup nudges the scheduler out of its poll phase. Safe to call from
// any thread.
func (s *Scheduler) Wakeup() {
	s.inbound.WriterPut(EventFull{})
}

// Run executes one loop iteration: drain mailboxes and fire timeouts
// until quiescent or the time budget is spent, block on the poll
// primitive until the next deadline, then drain once more.
func (s *Scheduler) Run(timeout time.Duration) {
	defer func() { s.yieldFlag = false }()

	deadline := time.Now().Add(timeout)
	wake := s.runEvents(deadline)
	if s.yieldFlag {
		return
	}
	if wake.After(deadline) {
		wake = deadline
	}
	s.runPoll(wake)
	s.runEvents(deadline)
}

// runEvents drains ready mailboxes and fires expired timeouts until the
// ready list is empty or the budget deadline passes. It returns the next
// wake-up time for the poll phase.
func (s *Scheduler) runEvents(deadline time.Time) time.Time {
	var wake time.Time
	for {
		s.runMailbox()
		wake = s.runTimeout()
		if len(s.ready) == 0 || time.Now().After(deadline) {
			return wake
		}
	}
}

// runMailbox drains every actor in the current ready snapshot. Actors
// made ready during the pass land in the live list and are picked up by
// the next runEvents iteration.
func (s *Scheduler) runMailbox() {
	snapshot := s.ready
	s.ready = nil
	for _, info := range snapshot {
		if !info.inReady {
			continue
		}
		info.inReady = false
		if len(info.mailbox) == 0 {
			s.pending[info] = struct{}{}
			continue
		}
		s.flushMailbox(info)
	}
}

// runTimeout fires every expired timeout in deadline order and returns
// the time the scheduler next needs to wake.
func (s *Scheduler) runTimeout() time.Time {
	now := time.Now()
	for {
		info := s.timeouts.popExpired(now)
		if info == nil {
			break
		}
		s.SendImmediately(info.id(), TimeoutEvent())
	}
	if len(s.ready) > 0 {
		return now
	}
	if s.timeouts.empty() {
		return now.Add(idlePollInterval)
	}
	return s.timeouts.top().deadline
}

// runPoll blocks until the inbound queue signals, until the wake
// deadline, or spuriously. Any pending cross-thread traffic is handed to
// the service actor.
func (s *Scheduler) runPoll(until time.Time) {
	// Local work left over from an exhausted budget: collect whatever
	// already arrived without blocking.
	if len(s.ready) > 0 {
		if s.inbound.ReaderWaitNonblock() > 0 {
			s.SendImmediately(s.serviceID, YieldEvent())
		}
		return
	}

	// Registers the scheduler as waiting when the queue is empty, so a
	// producer releases the wait handle.
	if s.inbound.ReaderWaitNonblock() > 0 {
		s.SendImmediately(s.serviceID, YieldEvent())
		return
	}

	d := time.Until(until)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.inbound.WaitChan():
	case <-timer.C:
	}
	if s.inbound.ReaderWaitNonblock() > 0 {
		s.SendImmediately(s.serviceID, YieldEvent())
	}
}

// flushMailbox drains the events currently in the actor's mailbox,
// stopping early if the actor requests stop or migration.
func (s *Scheduler) flushMailbox(info *ActorInfo) {
	n := len(info.mailbox)
	c := s.enterActor(info)
	i := 0
	for ; i < n && c.canRun(); i++ {
		s.doEvent(c, info.mailbox[i])
	}
	m := info.mailbox
	copy(m, m[i:])
	info.mailbox = m[:len(m)-i]
	s.exitActor(c)
}

// dispatchOne runs a single event that bypassed the mailbox.
func (s *Scheduler) dispatchOne(info *ActorInfo, ev Event) {
	c := s.enterActor(info)
	s.doEvent(c, ev)
	s.exitActor(c)
}

// enterActor marks the actor running and takes it out of the
// pending/ready bookkeeping for the duration of the dispatch.
func (s *Scheduler) enterActor(info *ActorInfo) *Context {
	if info.running || info.inReady {
		s.logger.Fatal("actor entered while already scheduled",
			logging.String("actor", info.name),
			logging.Bool("running", info.running),
			logging.Bool("in_ready", info.inReady))
	}
	info.running = true
	delete(s.pending, info)
	return &Context{sched: s, info: info}
}

// exitActor restores bookkeeping after a dispatch and applies the
// stop/migrate requests collected in the context.
func (s *Scheduler) exitActor(c *Context) {
	info := c.info
	info.running = false
	if c.flags&ctxStop != 0 {
		s.doStopActor(info)
		return
	}
	if c.flags&ctxMigrate != 0 {
		s.doMigrateActor(info, c.dest)
		return
	}
	if len(info.mailbox) > 0 {
		s.pushReady(info)
	} else {
		s.pending[info] = struct{}{}
	}
}

// doEvent invokes the actor callback matching the event type.
func (s *Scheduler) doEvent(c *Context, ev Event) {
	c.linkToken = ev.LinkToken
	a := c.info.actor
	switch ev.Type {
	case EventStart:
		a.StartUp(c)
	case EventStop:
		a.TearDown(c)
	case EventYield:
		a.Wakeup(c)
	case EventHangup:
		if c.linkToken != 0 {
			a.HangupShared(c)
		} else {
			a.Hangup(c)
		}
	case EventTimeout:
		a.TimeoutExpired(c)
	case EventRaw:
		a.RawEvent(c, ev.Payload)
	case EventCustom:
		ev.Fn(c)
	default:
		s.logger.Fatal("dispatch of invalid event",
			logging.String("actor", c.info.name),
			logging.String("event", ev.String()))
	}
}

// addToMailbox appends an event and makes the actor ready unless it is
// already being drained.
func (s *Scheduler) addToMailbox(info *ActorInfo, ev Event) {
	if !info.running {
		s.pushReady(info)
	}
	info.mailbox = append(info.mailbox, ev)
}

func (s *Scheduler) pushReady(info *ActorInfo) {
	if info.inReady {
		return
	}
	info.inReady = true
	delete(s.pending, info)
	s.ready = append(s.ready, info)
}

// sendToScheduler routes an event for an actor that is not resident
// here: either across a cross-thread queue, or into the side table when
// the actor is mid-migration toward this scheduler.
func (s *Scheduler) sendToScheduler(dest SchedulerID, id ActorID, ev Event) {
	if dest == s.id {
		// The migration notice has not arrived yet; buffer until
		// registerMigratedActor merges the side table.
		if info := id.resolve(); info != nil {
			s.sideEvents[info] = append(s.sideEvents[info], ev)
		}
		return
	}
	if dest < 0 || int(dest) >= len(s.outbound) {
		s.logger.Error("send to invalid scheduler",
			logging.Int32("dest", int32(dest)),
			logging.String("event", ev.String()))
		return
	}
	s.outbound[dest].WriterPut(EventFull{Target: id, Event: ev})
}

// doMigrateActor removes the actor from this scheduler's bookkeeping,
// publishes the migration atomically, and ships the record to the
// destination's inbound queue.
func (s *Scheduler) doMigrateActor(info *ActorInfo, dest SchedulerID) {
	if dest == s.id {
		return
	}
	if dest < 0 || int(dest) >= len(s.outbound) {
		s.logger.Fatal("migrate to invalid scheduler",
			logging.String("actor", info.name),
			logging.Int32("dest", int32(dest)))
	}
	s.actorCount--
	s.timeouts.cancel(info)
	delete(s.pending, info)
	info.inReady = false
	info.startMigrate(dest)
	s.logger.Debug("start migrate",
		logging.String("actor", info.name),
		logging.Int32("dest", int32(dest)),
		logging.Int("actor_count", s.actorCount))
	s.outbound[dest].WriterPut(EventFull{Migrated: info})
}

// registerMigratedActor adopts a record that arrived through the inbound
// queue: it clears the migrating flag, merges events that overtook the
// migration notice behind the travelled mailbox, and restores the actor
// into the pending/ready bookkeeping.
func (s *Scheduler) registerMigratedActor(info *ActorInfo) {
	dest, migrating := info.migrateDestFlag()
	if !migrating || dest != s.id {
		s.logger.Fatal("migrated actor arrived in wrong state",
			logging.String("actor", info.name),
			logging.Int32("dest", int32(dest)),
			logging.Bool("migrating", migrating))
	}
	s.actorCount++
	info.finishMigrate()
	if side, ok := s.sideEvents[info]; ok {
		info.mailbox = append(info.mailbox, side...)
		delete(s.sideEvents, info)
	}
	s.logger.Debug("register migrated actor",
		logging.String("actor", info.name),
		logging.Int("actor_count", s.actorCount))
	if len(info.mailbox) > 0 {
		s.pushReady(info)
	} else {
		s.pending[info] = struct{}{}
	}
}

// doStopActor dispatches TearDown and destroys the actor. Stop and
// migrate requests raised during TearDown are ignored.
func (s *Scheduler) doStopActor(info *ActorInfo) {
	if _, migrating := info.migrateDestFlag(); migrating {
		s.logger.Fatal("stop of migrating actor",
			logging.String("actor", info.name))
	}
	c := &Context{sched: s, info: info}
	info.running = true
	s.doEvent(c, StopEvent())
	info.running = false
	s.destroyActor(info)
}

// destroyActor releases the record; outstanding ActorIDs become stale.
func (s *Scheduler) destroyActor(info *ActorInfo) {
	s.timeouts.cancel(info)
	delete(s.pending, info)
	delete(s.sideEvents, info)
	info.inReady = false
	s.actorCount--
	s.logger.Debug("destroy actor",
		logging.String("actor", info.name),
		logging.Int("actor_count", s.actorCount))
	s.system.pool.release(info)
}

// clear stops every resident actor and refuses further sends: pending
// actors first, then ready actors, then the service actor. Must run on
// the scheduler's thread.
func (s *Scheduler) clear() {
	if s.closing {
		return
	}
	s.closing = true
	svc := s.serviceID.resolve()

	for info := range s.pending {
		if info == svc {
			continue
		}
		s.doStopActor(info)
	}
	for len(s.ready) > 0 {
		info := s.ready[0]
		s.ready = s.ready[1:]
		if !info.inReady || info == svc {
			continue
		}
		info.inReady = false
		s.doStopActor(info)
	}
	if svc != nil {
		svc.inReady = false
		s.doStopActor(svc)
	}
	for info := range s.sideEvents {
		delete(s.sideEvents, info)
	}
}

// serviceActor owns the scheduler's inbound queue. Its wakeup drains the
// queue: events are delivered, in-flight records are registered, and the
// empty notice just yields the scheduler loop.
type serviceActor struct {
	ActorBase
	inbound *queue.Pollable[EventFull]
}

func (sa *serviceActor) Wakeup(c *Context) {
	s := c.sched
	for {
		n := sa.inbound.ReaderWaitNonblock()
		if n == 0 {
			return
		}
		for ; n > 0; n-- {
			ef := sa.inbound.ReaderGetUnsafe()
			switch {
			case ef.Migrated != nil:
				s.registerMigratedActor(ef.Migrated)
			case ef.Target.Empty():
				s.Yield()
			default:
				s.SendImmediately(ef.Target, ef.Event)
			}
		}
		sa.inbound.ReaderFlush()
	}
}
