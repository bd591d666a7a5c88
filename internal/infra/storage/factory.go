package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sdplay/internal/infra/config"
)

// New creates the device described by cfg.
func New(cfg config.StorageConfig) (Device, error) {
	zlog.Debug().Msgf("creating storage device: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "dir":
		var vc VolumeConfig
		if err := decodeSettings(cfg.Settings, &vc); err != nil {
			return nil, errors.Wrap(err, "dir storage")
		}
		return NewVolume(vc), nil

	case "image":
		var ic ImageConfig
		if err := decodeSettings(cfg.Settings, &ic); err != nil {
			return nil, errors.Wrap(err, "image storage")
		}
		return NewImage(ic), nil

	default:
		return nil, errors.Newf("unsupported storage type: %s", cfg.Type)
	}
}

// decodeSettings fills out from free-form settings, then applies defaults and
// validates it.
func decodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := dec.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		zlog.Error().Msgf("storage settings validation failed: %v", err)
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
