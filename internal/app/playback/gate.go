package playback

import (
	"runtime"
	"sync/atomic"
)

const (
	gateIdle int32 = iota
	gateInTick
	gateMasked
)

// gate plays the role of the interrupt enable bit for the tick handler. A tick
// only runs if it can move the gate from idle to in-tick, so ticks never
// overlap and never run while the loop context has the gate masked.
type gate struct {
	state atomic.Int32
}

func (g *gate) enter() bool {
	return g.state.CompareAndSwap(gateIdle, gateInTick)
}

func (g *gate) leave() {
	g.state.Store(gateIdle)
}

// mask waits for an in-flight tick to finish and blocks further ticks until
// unmask. Ticks arriving meanwhile are dropped. Not reentrant.
func (g *gate) mask() {
	for !g.state.CompareAndSwap(gateIdle, gateMasked) {
		runtime.Gosched()
	}
}

func (g *gate) unmask() {
	g.state.Store(gateIdle)
}
