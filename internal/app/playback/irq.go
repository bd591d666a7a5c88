package playback

import "sync/atomic"

// There is one tick vector per process, so at most one Player can be bound to
// it. The output device calls HandleTick from its tick context.
var bound atomic.Pointer[Player]

// Bind attaches p to the tick vector.
func Bind(p *Player) error {
	if !bound.CompareAndSwap(nil, p) {
		return ErrAlreadyBound
	}
	return nil
}

// Unbind detaches p from the tick vector if it is bound.
func Unbind(p *Player) {
	bound.CompareAndSwap(p, nil)
}

// HandleTick forwards one tick to the bound player.
func HandleTick() {
	if p := bound.Load(); p != nil {
		p.Tick()
	}
}
