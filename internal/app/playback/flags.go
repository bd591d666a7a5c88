package playback

import (
	"strings"
	"sync/atomic"
)

// Flag is a single playback flag bit.
type Flag uint32

const (
	FlagPlaying            Flag = 1 << iota // Tick handler outputs samples
	FlagStopped                             // Stopped or end of stream reached
	FlagUnderrun                            // Sticky: a tick found no data
	FlagHalfRate                            // Only every second tick outputs
	FlagHalfRateAlternator                  // Tick phase; owned by the tick handler
	FlagStereo                              // Channel 2 carries the second sample
	FlagBridge                              // Channel 2 mirrors channel 1
)

var flagNames = []struct {
	f    Flag
	name string
}{
	{FlagPlaying, "playing"},
	{FlagStopped, "stopped"},
	{FlagUnderrun, "underrun"},
	{FlagHalfRate, "halfrate"},
	{FlagHalfRateAlternator, "alternator"},
	{FlagStereo, "stereo"},
	{FlagBridge, "bridge"},
}

// String returns the set flag names joined by "|".
func (f Flag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Flags is a flag set shared by the tick handler and the loop context. Every
// operation is a single indivisible update, so neither side ever observes a
// partially applied change.
type Flags struct {
	v atomic.Uint32
}

// Load returns a snapshot of all flags.
func (f *Flags) Load() Flag {
	return Flag(f.v.Load())
}

// Has returns true if every bit of m is set.
func (f *Flags) Has(m Flag) bool {
	return f.Load()&m == m
}

// Set sets the bits of m.
func (f *Flags) Set(m Flag) {
	f.v.Or(uint32(m))
}

// Clear clears the bits of m.
func (f *Flags) Clear(m Flag) {
	f.v.And(^uint32(m))
}

// TestAndClear clears the bits of m and returns true if any was set.
func (f *Flags) TestAndClear(m Flag) bool {
	return Flag(f.v.And(^uint32(m)))&m != 0
}

// Toggle flips the bits of m and returns the new flag set.
func (f *Flags) Toggle(m Flag) Flag {
	for {
		old := f.v.Load()
		next := old ^ uint32(m)
		if f.v.CompareAndSwap(old, next) {
			return Flag(next)
		}
	}
}

// Update clears the bits of clear, then sets the bits of set, as one step.
func (f *Flags) Update(clear, set Flag) {
	for {
		old := f.v.Load()
		next := (old &^ uint32(clear)) | uint32(set)
		if f.v.CompareAndSwap(old, next) {
			return
		}
	}
}
