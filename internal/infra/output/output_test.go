package output

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sdplay/internal/app/playback"
	"github.com/osa030/sdplay/internal/infra/config"
)

func TestPCM16(t *testing.T) {
	tests := []struct {
		duty uint8
		want int16
	}{
		{0, -32768},
		{128, 0},
		{255, 32512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pcm16(tt.duty))
	}
}

func TestSpeaker_Read(t *testing.T) {
	ticks := 0
	var s *Speaker
	s = newSpeaker(func() {
		ticks++
		s.SetDuty(playback.Channel1, uint8(100+ticks))
		s.SetDuty(playback.Channel2, 200)
	}, false)

	buf := make([]byte, 4*3+2)

	// Disabled: no ticks, mid-level output
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, 0, ticks)
	assert.Equal(t, uint16(pcm16(playback.MidLevel)), binary.LittleEndian.Uint16(buf[0:]))

	s.Enable()
	_, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
	for i := 0; i < 3; i++ {
		l := int16(binary.LittleEndian.Uint16(buf[i*4:]))
		r := int16(binary.LittleEndian.Uint16(buf[i*4+2:]))
		assert.Equal(t, pcm16(uint8(101+i)), l)
		assert.Equal(t, pcm16(200), r)
	}

	s.Disable()
	_, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, pcm16(103), int16(binary.LittleEndian.Uint16(buf[0:])))
}

func TestSpeaker_MonoMirrors(t *testing.T) {
	s := newSpeaker(nil, true)
	s.SetDuty(playback.Channel1, 10)
	s.SetDuty(playback.Channel2, 250)

	buf := make([]byte, 4)
	_, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian.Uint16(buf[0:]), binary.LittleEndian.Uint16(buf[2:]))
	assert.Equal(t, pcm16(10), int16(binary.LittleEndian.Uint16(buf[2:])))
}

func TestRegisters_IgnoresUnknownChannel(t *testing.T) {
	var r registers
	r.reset()
	r.SetDuty(playback.Channel(7), 1)
	r.SetDuty(playback.Channel(-1), 1)
	l, rt := r.frame(nil, false)
	assert.Equal(t, playback.MidLevel, l)
	assert.Equal(t, playback.MidLevel, rt)
}

func TestWAV_Streamer(t *testing.T) {
	var w *WAV
	w = NewWAV(WAVConfig{SampleRate: 8000}, func() {
		w.SetDuty(playback.Channel1, 255)
		w.SetDuty(playback.Channel2, 0)
	})
	w.Enable()

	steps := 0
	s := w.Streamer(func() bool {
		steps++
		return steps <= 5
	})

	samples := make([][2]float64, 4)
	n, ok := s.Stream(samples)
	assert.Equal(t, 4, n)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, samples[0][0], 1e-9)
	assert.InDelta(t, -1.0, samples[0][1], 1e-9)

	n, ok = s.Stream(samples)
	assert.Equal(t, 1, n)
	assert.True(t, ok)

	n, ok = s.Stream(samples)
	assert.Equal(t, 0, n)
	assert.False(t, ok)
	assert.Equal(t, 5, w.Frames())
	assert.NoError(t, s.Err())
}

func TestWAV_Render(t *testing.T) {
	w := NewWAV(WAVConfig{SampleRate: 8000, Mono: true}, nil)
	assert.Equal(t, 1, w.Format().NumChannels)
	assert.Equal(t, 1, w.Format().Precision)

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	frames := 0
	err = w.Render(f, func() bool {
		frames++
		return frames <= 100
	})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, 44+100, len(data))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.SetDuty(playback.Channel1, 1)
	r.SetDuty(playback.Channel2, 2)
	r.SetDuty(playback.Channel1, 3)
	r.Enable()
	r.Enable()
	r.Disable()

	assert.Equal(t, []byte{1, 3}, r.Writes(playback.Channel1))
	assert.Equal(t, []byte{2}, r.Writes(playback.Channel2))
	assert.False(t, r.Enabled())
	assert.Equal(t, 2, r.Enables())

	r.Reset()
	assert.Empty(t, r.Writes(playback.Channel1))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		want    any
		wantErr bool
	}{
		{name: "wav", typ: "wav", want: &WAV{}},
		{name: "null", typ: "null", want: &Null{}},
		{name: "unknown", typ: "hdmi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Output: config.OutputConfig{Type: tt.typ, SampleRate: 16000}}
			dev, err := New(cfg, false, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, dev)
			assert.NoError(t, dev.Close())
		})
	}
}
