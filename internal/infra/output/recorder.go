package output

import (
	"sync"

	"github.com/osa030/sdplay/internal/app/playback"
)

// Recorder captures every duty write. It never ticks on its own; the caller
// drives the player.
type Recorder struct {
	mu      sync.Mutex
	writes  [numChannels][]byte
	enabled bool
	enables int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetDuty(ch playback.Channel, duty uint8) {
	if ch < 0 || int(ch) >= numChannels {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[ch] = append(r.writes[ch], duty)
}

func (r *Recorder) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
	r.enables++
}

func (r *Recorder) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
}

// Enabled reports whether the tick source is enabled.
func (r *Recorder) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Enables returns how many times the tick source was enabled.
func (r *Recorder) Enables() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enables
}

// Writes returns a copy of the duties written to ch.
func (r *Recorder) Writes(ch playback.Channel) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.writes[ch]...)
}

// Reset forgets all captured writes.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = [numChannels][]byte{}
}

func (r *Recorder) Close() error {
	return nil
}

// Null discards duty writes. Nothing ticks the player.
type Null struct {
	registers
}

func (*Null) Close() error {
	return nil
}
