package core

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/molniya-im/molniya/config"
	"github.com/molniya-im/molniya/logging"
	"github.com/molniya-im/molniya/queue"
)

// MainSchedulerID is the id of the scheduler driven by the caller's own
// thread through RunMain.
const MainSchedulerID SchedulerID = 0

// System owns a fixed set of schedulers and the cross-thread queues
// between them. Scheduler 0 is the main scheduler, driven by the thread
// that calls RunMain; schedulers 1..Workers run on their own locked OS
// threads; an optional extra scheduler at the end is never driven and
// serves as a parking slot for actors created before a destination is
// chosen.
type System struct {
	cfg    config.SchedulerConfig
	logger logging.Logger

	pool       *infoPool
	queues     []*queue.Pollable[EventFull]
	schedulers []*Scheduler

	group   errgroup.Group
	started atomic.Bool
	stop    atomic.Bool
	done    atomic.Bool

	mu       sync.Mutex
	atFinish []func()
}

// NewSystem creates a system with 1+cfg.Workers schedulers, plus one
// more when cfg.ExtraScheduler is set. All schedulers exist after this
// call, but only Start spawns their threads.
func NewSystem(cfg config.SchedulerConfig) *System {
	cfg = cfg.Normalized()
	n := 1 + cfg.Workers
	if cfg.ExtraScheduler {
		n++
	}

	sys := &System{
		cfg:    cfg,
		logger: logging.Default(),
		pool:   newInfoPool(),
		queues: make([]*queue.Pollable[EventFull], n),
	}
	for i := range sys.queues {
		sys.queues[i] = queue.NewPollable[EventFull]()
	}
	sys.schedulers = make([]*Scheduler, n)
	for i := range sys.schedulers {
		sys.schedulers[i] = newScheduler(SchedulerID(i), sys.queues, sys, sys.logger)
	}
	return sys
}

// SchedulerCount returns the number of schedulers, the extra one
// included.
func (sys *System) SchedulerCount() int {
	return len(sys.schedulers)
}

// Scheduler returns the scheduler with the given id.
func (sys *System) Scheduler(id SchedulerID) *Scheduler {
	return sys.schedulers[id]
}

// CreateActor registers an actor on the main scheduler. Must be called
// before Start or from the main scheduler's thread.
func (sys *System) CreateActor(name string, a Actor) ActorID {
	return sys.schedulers[MainSchedulerID].RegisterActor(name, a)
}

// CreateActorOn registers an actor owned by the given scheduler. Must be
// called before Start or from the main scheduler's thread; for a foreign
// scheduler, StartUp runs on the owning thread after migration.
func (sys *System) CreateActorOn(sched SchedulerID, name string, a Actor) ActorID {
	return sys.schedulers[MainSchedulerID].RegisterActorOn(sched, name, a)
}

// Send delivers an event from outside any scheduler thread. It always
// routes through the owning scheduler's inbound queue, so it is safe to
// call from any goroutine. Sends to dead actors are dropped.
func (sys *System) Send(id ActorID, ev Event) {
	if sys.done.Load() {
		return
	}
	info := id.resolve()
	if info == nil {
		return
	}
	dest, _ := info.migrateDestFlag()
	sys.queues[dest].WriterPut(EventFull{Target: id, Event: ev})
}

// OnFinish registers a callback to run at the end of Finish, after all
// schedulers have stopped and drained. Callbacks run in registration
// order on the thread that calls Finish.
func (sys *System) OnFinish(fn func()) {
	sys.mu.Lock()
	sys.atFinish = append(sys.atFinish, fn)
	sys.mu.Unlock()
}

// Start spawns one locked OS thread per worker scheduler. The main
// scheduler stays with the caller, who drives it through RunMain.
func (sys *System) Start() {
	if !sys.started.CompareAndSwap(false, true) {
		return
	}
	sys.logger.Info("system start",
		logging.Int("schedulers", len(sys.schedulers)),
		logging.Int("workers", sys.cfg.Workers))

	for i := 1; i <= sys.cfg.Workers; i++ {
		s := sys.schedulers[i]
		sys.group.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if sys.cfg.CPUAffinity != 0 {
				if err := setAffinity(sys.cfg.CPUAffinity); err != nil {
					s.logger.Warn("set cpu affinity", logging.Err(err))
				}
			}
			for !sys.stop.Load() {
				s.Run(sys.cfg.PollTimeout)
			}
			s.clear()
			return nil
		})
	}
}

// RunMain drives one iteration of the main scheduler and reports whether
// the system is still running. Call in a loop from the thread that
// created the system.
func (sys *System) RunMain(timeout time.Duration) bool {
	if sys.stop.Load() {
		return false
	}
	sys.schedulers[MainSchedulerID].Run(timeout)
	return !sys.stop.Load()
}

// Stop requests shutdown. Worker threads leave their loops, the main
// RunMain loop returns false. Safe to call from any thread; only the
// first call has effect.
func (sys *System) Stop() {
	if !sys.stop.CompareAndSwap(false, true) {
		return
	}
	sys.logger.Info("system stop requested")
	for _, q := range sys.queues {
		q.WriterPut(EventFull{})
	}
}

// Finish completes shutdown: it waits for worker threads, stops every
// actor still registered on the main and extra schedulers, drains the
// cross-thread queues, and runs the OnFinish callbacks. Must be called
// from the main scheduler's thread after RunMain returned false.
func (sys *System) Finish() {
	if !sys.done.CompareAndSwap(false, true) {
		return
	}
	sys.Stop()
	if err := sys.group.Wait(); err != nil {
		sys.logger.Error("worker thread", logging.Err(err))
	}

	// Worker schedulers clear themselves on their own threads; without
	// Start there are no such threads and everything is cleared here.
	if sys.started.Load() {
		sys.schedulers[MainSchedulerID].clear()
		if sys.cfg.ExtraScheduler {
			sys.schedulers[len(sys.schedulers)-1].clear()
		}
	} else {
		for _, s := range sys.schedulers {
			s.clear()
		}
	}
	sys.drainQueues()

	sys.mu.Lock()
	callbacks := sys.atFinish
	sys.atFinish = nil
	sys.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	sys.logger.Info("system finished")
	_ = sys.logger.Sync()
}

// drainQueues empties every cross-thread queue after all schedulers have
// stopped. Plain events are dropped; actor records still in flight from
// an unfinished migration are stopped and released here, so no record
// leaks.
func (sys *System) drainQueues() {
	main := sys.schedulers[MainSchedulerID]
	for _, q := range sys.queues {
		for {
			n := q.ReaderWaitNonblock()
			if n == 0 {
				break
			}
			for ; n > 0; n-- {
				ef := q.ReaderGetUnsafe()
				if info := ef.Migrated; info != nil {
					info.finishMigrate()
					main.doStopActor(info)
				}
			}
			q.ReaderFlush()
		}
	}
}
