// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Host    HostConfig    `yaml:"host"`
}

// PlayerConfig represents the sound mode and work buffer configuration.
type PlayerConfig struct {
	Rate       string `yaml:"rate" default:"full" validate:"oneof=full half"`
	Layout     string `yaml:"layout" default:"mono" validate:"oneof=mono stereo bridge"`
	BufferSize int    `yaml:"buffer_size" validate:"omitempty,gte=1024,lte=1048576"` // 0 lets the player allocate
	ChipSelect uint8  `yaml:"chip_select" default:"4"`
}

// StorageConfig represents the block device configuration.
// Settings are decoded by the device named in Type.
type StorageConfig struct {
	Type     string         `yaml:"type" default:"dir" validate:"oneof=dir image"`
	Settings map[string]any `yaml:"settings"`
}

// OutputConfig represents the PWM output configuration.
type OutputConfig struct {
	Type       string `yaml:"type" default:"speaker" validate:"oneof=speaker wav null"`
	SampleRate int    `yaml:"sample_rate" default:"16000" validate:"gte=4000,lte=48000"`
	WAVPath    string `yaml:"wav_path"`
	LatencyMs  int    `yaml:"latency_ms" default:"50" validate:"gte=0,lte=1000"`
}

// HostConfig represents the host loop configuration.
type HostConfig struct {
	PollIntervalMs    int `yaml:"poll_interval_ms" default:"1" validate:"gte=0,lte=1000"`
	StatusIntervalSec int `yaml:"status_interval_sec" default:"5" validate:"gte=0"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SDPLAY_ROOT"); v != "" {
		if c.Storage.Settings == nil {
			c.Storage.Settings = make(map[string]any)
		}
		switch c.Storage.Type {
		case "image":
			c.Storage.Settings["path"] = v
		default:
			c.Storage.Settings["root"] = v
		}
	}
	if v := os.Getenv("SDPLAY_OUTPUT"); v != "" {
		c.Output.Type = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Output.Type == "wav" && c.Output.WAVPath == "" {
		return errors.New("output.wav_path is required for wav output")
	}

	return nil
}

// RenderPath returns path, or output.wav_path when path is empty.
func (c *Config) RenderPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if c.Output.WAVPath == "" {
		return "", errors.New("no output path: pass one or set output.wav_path")
	}
	return c.Output.WAVPath, nil
}

// PollInterval returns the host loop poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Host.PollIntervalMs) * time.Millisecond
}

// StatusInterval returns the status log interval. Zero disables status logs.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Host.StatusIntervalSec) * time.Second
}

// Latency returns the output device buffer length.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Output.LatencyMs) * time.Millisecond
}
