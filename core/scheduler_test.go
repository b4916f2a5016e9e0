package core

import (
	"testing"
	"time"

	"github.com/molniya-im/molniya/config"
)

func newTestSystem() *System {
	return NewSystem(config.SchedulerConfig{
		Workers:     0,
		PollTimeout: time.Millisecond,
	})
}

// traceActor records every callback it receives.
type traceActor struct {
	ActorBase
	trace  []string
	tokens []uint64
}

func (a *traceActor) StartUp(c *Context)        { a.trace = append(a.trace, "start") }
func (a *traceActor) TearDown(c *Context)       { a.trace = append(a.trace, "teardown") }
func (a *traceActor) Wakeup(c *Context)         { a.trace = append(a.trace, "wakeup") }
func (a *traceActor) TimeoutExpired(c *Context) { a.trace = append(a.trace, "timeout") }
func (a *traceActor) Hangup(c *Context) {
	a.trace = append(a.trace, "hangup")
	c.Stop()
}
func (a *traceActor) HangupShared(c *Context) {
	a.trace = append(a.trace, "hangup_shared")
	a.tokens = append(a.tokens, c.LinkToken())
}
func (a *traceActor) RawEvent(c *Context, payload any) {
	a.trace = append(a.trace, "raw")
}

// TestActorLifecycle tests synchronous start, stop and handle invalidation
func TestActorLifecycle(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	a := &traceActor{}
	id := sys.CreateActor("tracer", a)

	if len(a.trace) != 1 || a.trace[0] != "start" {
		t.Fatalf("Expected synchronous StartUp, got %v", a.trace)
	}
	if !id.Valid() {
		t.Fatal("Expected valid handle after registration")
	}
	if id.Name() != "tracer" {
		t.Errorf("Expected name 'tracer', got %q", id.Name())
	}

	sched.SendImmediately(id, CustomEvent(func(c *Context) { c.Stop() }))

	if a.trace[len(a.trace)-1] != "teardown" {
		t.Fatalf("Expected TearDown after stop, got %v", a.trace)
	}
	if id.Valid() {
		t.Fatal("Expected stale handle after stop")
	}
	if id.Name() != "" {
		t.Errorf("Expected empty name for stale handle, got %q", id.Name())
	}

	// Sends through a stale handle are dropped
	sched.SendImmediately(id, RawEvent("late"))
	for _, e := range a.trace {
		if e == "raw" {
			t.Fatal("Raw event delivered to a stopped actor")
		}
	}
}

// TestInlineDispatch tests that a send to an idle local actor runs inline
func TestInlineDispatch(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	count := 0
	id := sys.CreateActor("counter", &ActorBase{})
	sched.SendImmediately(id, CustomEvent(func(c *Context) { count++ }))
	if count != 1 {
		t.Fatalf("Expected inline dispatch without RunMain, count=%d", count)
	}
}

// TestSendLaterOrdering tests that queued events run in send order
func TestSendLaterOrdering(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	var got []int
	id := sys.CreateActor("collector", &ActorBase{})
	for i := 0; i < 10; i++ {
		i := i
		sched.SendLater(id, CustomEvent(func(c *Context) { got = append(got, i) }))
	}
	if len(got) != 0 {
		t.Fatalf("SendLater dispatched inline: %v", got)
	}

	sys.RunMain(time.Millisecond)

	if len(got) != 10 {
		t.Fatalf("Expected 10 events, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Event %d out of order: got %d", i, v)
		}
	}
}

// TestSendDuringDispatch tests that events sent to a busy actor queue up
func TestSendDuringDispatch(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	var got []int
	id := sys.CreateActor("reentrant", &ActorBase{})
	sched.SendImmediately(id, CustomEvent(func(c *Context) {
		got = append(got, 1)
		// The actor is running, so this lands in the mailbox
		c.Send(c.Self(), CustomEvent(func(c *Context) { got = append(got, 2) }))
		got = append(got, 3)
	}))

	sys.RunMain(time.Millisecond)

	want := []int{1, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

// TestHangupRouting tests link-token dispatch of hangup events
func TestHangupRouting(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	a := &traceActor{}
	id := sys.CreateActor("hang", a)

	sched.SendImmediately(id, HangupEvent().WithLinkToken(7))
	if a.trace[len(a.trace)-1] != "hangup_shared" {
		t.Fatalf("Expected HangupShared for tokened event, got %v", a.trace)
	}
	if len(a.tokens) != 1 || a.tokens[0] != 7 {
		t.Fatalf("Expected link token 7, got %v", a.tokens)
	}

	sched.SendImmediately(id, HangupEvent())
	if a.trace[len(a.trace)-2] != "hangup" {
		t.Fatalf("Expected Hangup for plain event, got %v", a.trace)
	}
	// traceActor.Hangup stops the actor
	if id.Valid() {
		t.Fatal("Expected actor stopped after hangup")
	}
}

// TestYield tests the self-wakeup path
func TestYield(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	a := &traceActor{}
	id := sys.CreateActor("yielder", a)
	sched.SendImmediately(id, CustomEvent(func(c *Context) { c.Yield() }))

	sys.RunMain(time.Millisecond)

	if a.trace[len(a.trace)-1] != "wakeup" {
		t.Fatalf("Expected Wakeup after yield, got %v", a.trace)
	}
}

// TestCreateActorFromCallback tests actor creation inside a dispatch
func TestCreateActorFromCallback(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	child := &traceActor{}
	var childID ActorID
	parent := sys.CreateActor("parent", &ActorBase{})
	sched.SendImmediately(parent, CustomEvent(func(c *Context) {
		childID = c.CreateActor("child", child)
	}))

	if len(child.trace) != 1 || child.trace[0] != "start" {
		t.Fatalf("Expected child StartUp, got %v", child.trace)
	}
	if !childID.Valid() {
		t.Fatal("Expected valid child handle")
	}
}

// TestTimeoutFires tests that an armed timeout delivers TimeoutExpired
// exactly once and never before its deadline
func TestTimeoutFires(t *testing.T) {
	const delay = 50 * time.Millisecond
	sys := newTestSystem()
	defer sys.Finish()

	a := &traceActor{}
	id := sys.CreateActor("timer", a)
	fireCount := func() int {
		n := 0
		for _, e := range a.trace {
			if e == "timeout" {
				n++
			}
		}
		return n
	}

	armed := time.Now()
	sys.Scheduler(MainSchedulerID).SendImmediately(id, CustomEvent(func(c *Context) {
		c.SetTimeout(delay)
		if !c.HasTimeout() {
			t.Error("Expected armed timeout")
		}
		if in := c.TimeoutIn(); in <= 0 || in > delay {
			t.Errorf("TimeoutIn out of range: %v", in)
		}
	}))

	deadline := time.Now().Add(2 * time.Second)
	for fireCount() == 0 && time.Now().Before(deadline) {
		sys.RunMain(5 * time.Millisecond)
	}
	if fireCount() == 0 {
		t.Fatal("Timeout did not fire within 2s")
	}
	if elapsed := time.Since(armed); elapsed < delay {
		t.Fatalf("Timeout fired after %v, before its %v deadline", elapsed, delay)
	}

	// A fired timeout is disarmed; keep running well past the deadline
	// and make sure it never fires again.
	end := time.Now().Add(3 * delay)
	for time.Now().Before(end) {
		sys.RunMain(5 * time.Millisecond)
	}
	if n := fireCount(); n != 1 {
		t.Fatalf("Expected exactly one firing, got %d", n)
	}
}

// TestTimeoutCancel tests that a cancelled timeout never fires
func TestTimeoutCancel(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	a := &traceActor{}
	id := sys.CreateActor("timer", a)
	sched.SendImmediately(id, CustomEvent(func(c *Context) {
		c.SetTimeout(20 * time.Millisecond)
		c.CancelTimeout()
		if c.HasTimeout() {
			t.Error("Expected disarmed timeout")
		}
		if c.TimeoutIn() != 0 {
			t.Error("Expected zero TimeoutIn when disarmed")
		}
	}))

	end := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(end) {
		sys.RunMain(5 * time.Millisecond)
	}
	for _, e := range a.trace {
		if e == "timeout" {
			t.Fatal("Cancelled timeout fired")
		}
	}
}

// TestRunPollPastDeadline tests that the poll phase does not sleep when
// its wake time has already passed
func TestRunPollPastDeadline(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	start := time.Now()
	for i := 0; i < 100; i++ {
		sched.runPoll(time.Now().Add(-time.Microsecond))
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("100 expired polls took %v, expected immediate returns", elapsed)
	}
}

// TestFinishStopsActors tests that Finish tears down everything left
func TestFinishStopsActors(t *testing.T) {
	sys := newTestSystem()

	actors := make([]*traceActor, 5)
	for i := range actors {
		actors[i] = &traceActor{}
		sys.CreateActor("leftover", actors[i])
	}

	finished := false
	sys.OnFinish(func() { finished = true })

	sys.Stop()
	sys.Finish()

	for i, a := range actors {
		if a.trace[len(a.trace)-1] != "teardown" {
			t.Errorf("Actor %d missing TearDown: %v", i, a.trace)
		}
	}
	if !finished {
		t.Error("OnFinish callback did not run")
	}
}

// TestSendAfterFinish tests that late sends are dropped quietly
func TestSendAfterFinish(t *testing.T) {
	sys := newTestSystem()

	a := &traceActor{}
	id := sys.CreateActor("gone", a)
	sys.Finish()

	sys.Send(id, RawEvent("late"))
	for _, e := range a.trace {
		if e == "raw" {
			t.Fatal("Event delivered after Finish")
		}
	}
	if id.Valid() {
		t.Fatal("Expected stale handle after Finish")
	}
}

// TestStopDuringBatch tests that queued events after a stop are dropped
func TestStopDuringBatch(t *testing.T) {
	sys := newTestSystem()
	defer sys.Finish()
	sched := sys.Scheduler(MainSchedulerID)

	var got []int
	id := sys.CreateActor("quitter", &ActorBase{})
	sched.SendLater(id, CustomEvent(func(c *Context) {
		got = append(got, 1)
		c.Stop()
	}))
	sched.SendLater(id, CustomEvent(func(c *Context) { got = append(got, 2) }))

	sys.RunMain(time.Millisecond)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("Expected only the first event before stop, got %v", got)
	}
}
