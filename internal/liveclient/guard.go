package liveclient

import "sync/atomic"

// Latch is a one-shot guard: TryFire reports true exactly once, no matter
// how many goroutines or event paths race on it.
type Latch struct {
	fired atomic.Bool
}

func (l *Latch) TryFire() bool {
	return l.fired.CompareAndSwap(false, true)
}

func (l *Latch) Fired() bool {
	return l.fired.Load()
}

// ActionGate serializes one owner action flow: while a request is in
// flight the gate stays held and repeat triggers are refused (the UI
// disables the button). Release reopens it once the response lands.
type ActionGate struct {
	busy atomic.Bool
}

func (g *ActionGate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *ActionGate) Release() {
	g.busy.Store(false)
}

func (g *ActionGate) Busy() bool {
	return g.busy.Load()
}

// LeaveIntent is what the owner asked for before the engine command was
// issued. When the terminal event later fires, the guard consults the
// recorded intent instead of guessing.
type LeaveIntent int

const (
	IntentLeaveOnly LeaveIntent = iota
	IntentEndForAll
)

// LeaveGuard enforces per-visit at-most-once semantics for the two
// externally visible effects of leaving a room: ending the session on the
// server and navigating away. Terminal engine events, explicit clicks and
// teardown can all trigger it; only the first trigger of each effect wins.
type LeaveGuard struct {
	isOwner  bool
	intent   atomic.Int32
	endOnce  Latch
	navOnce  Latch
	endFn    func() error
	navFn    func()
}

func NewLeaveGuard(isOwner bool, endFn func() error, navFn func()) *LeaveGuard {
	return &LeaveGuard{
		isOwner: isOwner,
		endFn:   endFn,
		navFn:   navFn,
	}
}

// SetIntent records the owner's choice before the engine command goes out.
// Non-owners cannot set IntentEndForAll.
func (g *LeaveGuard) SetIntent(intent LeaveIntent) {
	if intent == IntentEndForAll && !g.isOwner {
		return
	}
	g.intent.Store(int32(intent))
}

// OnTerminal handles a terminal engine event (conference left, forced
// close, teardown). The first call performs the recorded effects; repeats
// are no-ops. The end-call error is returned for surfacing but never
// blocks navigation.
func (g *LeaveGuard) OnTerminal() error {
	var endErr error

	if g.isOwner && LeaveIntent(g.intent.Load()) == IntentEndForAll {
		if g.endOnce.TryFire() && g.endFn != nil {
			endErr = g.endFn()
		}
	}

	if g.navOnce.TryFire() && g.navFn != nil {
		g.navFn()
	}

	return endErr
}

// EndForAll is the owner's explicit "end for all" action: it records the
// intent and fires the terminal path immediately.
func (g *LeaveGuard) EndForAll() error {
	g.SetIntent(IntentEndForAll)
	return g.OnTerminal()
}

// Leave is an explicit leave click for any participant.
func (g *LeaveGuard) Leave() error {
	return g.OnTerminal()
}
