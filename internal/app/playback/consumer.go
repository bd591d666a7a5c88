package playback

// Tick is the sample consumer. It is called once per sample period from the
// tick context and must not block: it takes no locks, performs no I/O, does not
// log and does not allocate.
//
// With half-rate enabled only every second tick outputs, starting with the
// first tick after Initialize. When the buffer holds less than one unit the
// Underrun flag is set and the previous duty stays on the output.
func (p *Player) Tick() {
	if !p.gate.enter() {
		return
	}
	defer p.gate.leave()

	f := p.flags.Load()
	if f&FlagPlaying == 0 {
		return
	}
	if f&FlagHalfRate != 0 && p.flags.Toggle(FlagHalfRateAlternator)&FlagHalfRateAlternator == 0 {
		return
	}

	var unit [2]byte
	sample := unit[:p.unit]
	if !p.ring.TryConsume(sample) {
		p.flags.Set(FlagUnderrun)
		return
	}

	p.out.SetDuty(Channel1, sample[0])
	switch {
	case f&FlagStereo != 0:
		p.out.SetDuty(Channel2, sample[1])
	case f&FlagBridge != 0:
		p.out.SetDuty(Channel2, sample[0])
	}
}
