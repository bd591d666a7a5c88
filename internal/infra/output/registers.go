// Package output provides the PWM output devices the player drives: an audio
// device, an offline WAV renderer and a recorder.
package output

import (
	"sync/atomic"

	"github.com/osa030/sdplay/internal/app/playback"
)

const numChannels = 4

// Device is a PWM output together with the timer that ticks it.
type Device interface {
	playback.Output
	playback.TickSource
	Close() error
}

// registers emulates the PWM duty registers and the timer enable bit.
type registers struct {
	duty    [numChannels]atomic.Uint32
	enabled atomic.Bool
}

func (r *registers) reset() {
	for ch := range r.duty {
		r.duty[ch].Store(uint32(playback.MidLevel))
	}
}

// SetDuty latches the duty for ch. It takes effect on the next frame.
func (r *registers) SetDuty(ch playback.Channel, duty uint8) {
	if ch < 0 || int(ch) >= numChannels {
		return
	}
	r.duty[ch].Store(uint32(duty))
}

// Enable starts ticking the player once per frame.
func (r *registers) Enable() {
	r.enabled.Store(true)
}

// Disable stops ticking. The last duty stays on the output.
func (r *registers) Disable() {
	r.enabled.Store(false)
}

// Enabled reports whether the timer is running.
func (r *registers) Enabled() bool {
	return r.enabled.Load()
}

// frame runs one PWM period: tick if the timer is enabled, then sample the
// duty of the two speaker channels. In mono the first channel feeds both.
func (r *registers) frame(tick func(), mono bool) (left, right uint8) {
	if tick != nil && r.enabled.Load() {
		tick()
	}
	left = uint8(r.duty[playback.Channel1].Load())
	if mono {
		return left, left
	}
	return left, uint8(r.duty[playback.Channel2].Load())
}

// pcm16 converts an 8-bit duty to a signed 16-bit sample.
func pcm16(duty uint8) int16 {
	return int16(int(duty)-128) << 8
}

// unit converts an 8-bit duty to a sample in [-1, 1].
func unit(duty uint8) float64 {
	return (float64(duty) - 127.5) / 127.5
}
