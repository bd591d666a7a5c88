package output

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/oto/v3"
	zlog "github.com/rs/zerolog/log"
)

// SpeakerConfig configures the audio device.
type SpeakerConfig struct {
	SampleRate int
	Latency    time.Duration
	Mono       bool
}

// Speaker plays the duty registers through the host audio device. The device
// pulls frames from its own goroutine, which serves as the tick context: every
// frame pulled ticks the player once, so the sample rate is the tick rate.
type Speaker struct {
	registers

	tick func()
	mono bool

	mu     sync.Mutex
	player *oto.Player
}

// NewSpeaker opens the audio device and starts pulling frames. Only one
// Speaker may exist per process.
func NewSpeaker(cfg SpeakerConfig, tick func()) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.Latency,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio device")
	}
	<-ready

	s := newSpeaker(tick, cfg.Mono)
	s.player = ctx.NewPlayer(s)
	s.player.Play()

	zlog.Debug().Msgf("speaker opened: rate=%d latency=%s mono=%t", cfg.SampleRate, cfg.Latency, cfg.Mono)
	return s, nil
}

func newSpeaker(tick func(), mono bool) *Speaker {
	s := &Speaker{tick: tick, mono: mono}
	s.reset()
	return s
}

// Read renders whole stereo frames of signed 16-bit PCM into p.
func (s *Speaker) Read(p []byte) (int, error) {
	n := len(p) &^ 3
	for i := 0; i < n; i += 4 {
		l, r := s.frame(s.tick, s.mono)
		binary.LittleEndian.PutUint16(p[i:], uint16(pcm16(l)))
		binary.LittleEndian.PutUint16(p[i+2:], uint16(pcm16(r)))
	}
	return n, nil
}

// Close stops the device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Disable()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}
