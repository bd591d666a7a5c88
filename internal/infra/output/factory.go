package output

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sdplay/internal/infra/config"
)

// New creates the output device described by cfg. mono makes the first
// channel feed both speaker channels. tick is called from the device's tick
// context.
func New(cfg *config.Config, mono bool, tick func()) (Device, error) {
	zlog.Debug().Msgf("creating output device: type=%s rate=%d", cfg.Output.Type, cfg.Output.SampleRate)

	switch cfg.Output.Type {
	case "speaker":
		s, err := NewSpeaker(SpeakerConfig{
			SampleRate: cfg.Output.SampleRate,
			Latency:    cfg.Latency(),
			Mono:       mono,
		}, tick)
		if err != nil {
			return nil, err
		}
		return s, nil

	case "wav":
		return NewWAV(WAVConfig{SampleRate: cfg.Output.SampleRate, Mono: mono}, tick), nil

	case "null":
		return &Null{}, nil

	default:
		return nil, errors.Newf("unsupported output type: %s", cfg.Output.Type)
	}
}
