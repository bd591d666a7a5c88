package output

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"
)

// WAVConfig configures the offline renderer.
type WAVConfig struct {
	SampleRate int
	Mono       bool
}

// WAV renders the duty registers to an 8-bit WAV file instead of a device.
// There is no real timer: the encoder pulls frames, and each frame first
// advances the host loop one step and then ticks the player.
type WAV struct {
	registers

	tick   func()
	mono   bool
	rate   int
	frames int
}

// NewWAV creates an offline renderer.
func NewWAV(cfg WAVConfig, tick func()) *WAV {
	w := &WAV{tick: tick, mono: cfg.Mono, rate: cfg.SampleRate}
	w.reset()
	return w
}

// Format returns the format of the rendered file.
func (w *WAV) Format() beep.Format {
	channels := 2
	if w.mono {
		channels = 1
	}
	return beep.Format{
		SampleRate:  beep.SampleRate(w.rate),
		NumChannels: channels,
		Precision:   1,
	}
}

// Streamer returns a streamer of the rendered frames. It ends as soon as step
// returns false.
func (w *WAV) Streamer(step func() bool) beep.Streamer {
	return &renderStream{w: w, step: step}
}

// Render encodes frames to ws until step returns false.
func (w *WAV) Render(ws io.WriteSeeker, step func() bool) error {
	if err := wav.Encode(ws, w.Streamer(step), w.Format()); err != nil {
		return errors.Wrap(err, "failed to encode wav")
	}
	zlog.Debug().Msgf("wav rendered: frames=%d rate=%d", w.frames, w.rate)
	return nil
}

// Frames returns the number of frames rendered so far.
func (w *WAV) Frames() int {
	return w.frames
}

// Close is a no-op; the caller owns the file.
func (w *WAV) Close() error {
	w.Disable()
	return nil
}

type renderStream struct {
	w    *WAV
	step func() bool
	done bool
}

func (s *renderStream) Stream(samples [][2]float64) (n int, ok bool) {
	if s.done {
		return 0, false
	}
	for i := range samples {
		if !s.step() {
			s.done = true
			return i, i > 0
		}
		l, r := s.w.frame(s.w.tick, s.w.mono)
		samples[i][0] = unit(l)
		samples[i][1] = unit(r)
		s.w.frames++
	}
	return len(samples), true
}

func (s *renderStream) Err() error {
	return nil
}
