package playback

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Worker is the block producer. The host loop must call it continually: it
// moves at most one block from storage into the ring buffer per call, and it
// must keep up with the tick handler's drain rate or underruns occur.
//
// A failed read stops playback and records the storage error. Once the whole
// file was read and the buffer is drained to at most one byte, playback
// stops on its own.
func (p *Player) Worker() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ring == nil || !p.pos.Selected() {
		return
	}

	if !p.pos.Exhausted() {
		region, ok := p.ring.Reserve(BlockSize)
		if !ok {
			return
		}

		block := p.pos.Block
		if err := p.storage.ReadBlock(block, region); err != nil {
			p.stopLocked()
			_ = p.fail(errors.Wrapf(err, "read block %d", block))
			return
		}
		p.ring.Commit(int(p.pos.Advance()))
		return
	}

	if p.ring.Len() <= 1 && !p.flags.Has(FlagStopped) {
		p.stopLocked()
		zlog.Debug().Msgf("playback: end of stream: name=%s", p.pos.Track.Name)
	}
}
