package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ActorID is an opaque, copyable reference to an actor. It never owns the
// actor: a send through a stale ActorID (the actor has been destroyed) is
// silently dropped. The zero value is the empty reference.
type ActorID struct {
	info *ActorInfo
	gen  uint32
	name string
}

// Empty reports whether the reference has no referent at all.
func (id ActorID) Empty() bool {
	return id.info == nil
}

// Valid reports whether the referenced actor is still alive.
func (id ActorID) Valid() bool {
	return id.resolve() != nil
}

// Name returns the actor's debug name, or "" for a dead or empty
// reference. The name is captured when the reference is taken, so Name
// never reads the live record and is safe from any thread.
func (id ActorID) Name() string {
	if id.resolve() == nil {
		return ""
	}
	return id.name
}

// resolve returns the ActorInfo behind the reference, or nil if the slot
// generation moved on since the reference was taken.
func (id ActorID) resolve() *ActorInfo {
	if id.info == nil || id.info.gen.Load() != id.gen {
		return nil
	}
	return id.info
}

// migratingBit marks an ActorInfo whose ownership is in flight between
// two schedulers.
const migratingBit uint64 = 1 << 32

// ActorInfo is the runtime record that exclusively owns one live actor:
// its behavior object, mailbox, and scheduling metadata. All fields
// except gen and migrateDest are owned by the scheduler the actor is
// resident on and must never be touched from another thread.
type ActorInfo struct {
	// gen is the slot generation; bumped on release so stale ActorIDs
	// become detectable instead of undefined behavior.
	gen atomic.Uint32

	// migrateDest packs the owning scheduler id with the migrating flag.
	// It is the only cross-thread readable scheduling field: senders use
	// it to decide between a local append and a queue crossing.
	migrateDest atomic.Uint64

	actor   Actor
	name    string
	mailbox []Event

	// running marks an actor whose mailbox is being drained right now.
	running bool

	// inReady marks membership in the owning scheduler's ready queue;
	// a registered actor not in ready and not running is pending.
	inReady bool

	// Timeout-heap slot; heapIndex is -1 while no timeout is armed.
	heapIndex int
	heapSeq   uint64
	deadline  time.Time
}

// id returns a generation-checked reference to this record. Must be
// called on the owning scheduler's thread, where name is stable.
func (info *ActorInfo) id() ActorID {
	return ActorID{info: info, gen: info.gen.Load(), name: info.name}
}

// migrateDestFlag atomically reads the owning scheduler and whether a
// migration is in flight.
func (info *ActorInfo) migrateDestFlag() (SchedulerID, bool) {
	v := info.migrateDest.Load()
	return SchedulerID(uint32(v)), v&migratingBit != 0
}

// setSched publishes the owning scheduler with the migrating flag clear.
func (info *ActorInfo) setSched(id SchedulerID) {
	info.migrateDest.Store(uint64(uint32(id)))
}

// startMigrate publishes the destination scheduler and raises the
// migrating flag, so concurrent senders route through the destination's
// queue instead of appending locally.
func (info *ActorInfo) startMigrate(dest SchedulerID) {
	info.migrateDest.Store(uint64(uint32(dest)) | migratingBit)
}

// finishMigrate clears the migrating flag, keeping the destination as
// the new owner.
func (info *ActorInfo) finishMigrate() {
	info.migrateDest.Store(info.migrateDest.Load() &^ migratingBit)
}

// String returns a debug representation.
func (info *ActorInfo) String() string {
	return fmt.Sprintf("%s#%d", info.name, info.gen.Load())
}

// infoPool recycles ActorInfo records. Releasing bumps the generation,
// which invalidates every outstanding ActorID for the old incarnation.
type infoPool struct {
	mu   sync.Mutex
	free []*ActorInfo
}

func newInfoPool() *infoPool {
	return &infoPool{}
}

// alloc returns a fresh record owned by the given scheduler.
func (p *infoPool) alloc(name string, a Actor, sched SchedulerID) *ActorInfo {
	p.mu.Lock()
	var info *ActorInfo
	if n := len(p.free); n > 0 {
		info = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if info == nil {
		info = &ActorInfo{}
	}
	info.actor = a
	info.name = name
	info.heapIndex = -1
	info.setSched(sched)
	return info
}

// release invalidates the record and returns it to the pool. Must only
// be called by the scheduler that owns the actor.
func (p *infoPool) release(info *ActorInfo) {
	info.gen.Add(1)
	info.actor = nil
	info.name = ""
	info.mailbox = nil
	info.running = false
	info.inReady = false
	info.heapIndex = -1
	info.heapSeq = 0
	info.deadline = time.Time{}

	p.mu.Lock()
	p.free = append(p.free, info)
	p.mu.Unlock()
}
