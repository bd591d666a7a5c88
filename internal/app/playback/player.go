package playback

import (
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sdplay/internal/domain/ring"
	"github.com/osa030/sdplay/internal/domain/track"
)

const (
	// BlockSize is the storage block size in bytes.
	BlockSize = ring.BlockSize
	// DefaultBufferSize is the size of a library-allocated work buffer.
	DefaultBufferSize = 1024
	// DefaultChipSelect is the storage chip-select used unless overridden.
	DefaultChipSelect uint8 = 4
	// MidLevel is the idle duty written to every active channel on Initialize.
	MidLevel uint8 = 127
)

// Channel identifies a PWM output channel.
type Channel int

const (
	Channel1 Channel = iota
	Channel2
	Channel3
	Channel4
)

// Storage is the block storage the producer reads from.
type Storage interface {
	// Init brings up the storage device behind the given chip-select.
	Init(chipSelect uint8) error
	// Release shuts the storage device down.
	Release() error
	// ReadBlock reads one BlockSize block into dst.
	ReadBlock(block uint32, dst []byte) error
	// Lookup locates a file by name.
	Lookup(name string) (track.Track, error)
	// List calls fn once per file name.
	List(fn func(name string)) error
}

// Output is the PWM peripheral. A duty write takes effect at the next PWM
// period.
type Output interface {
	SetDuty(ch Channel, duty uint8)
}

// TickSource is the periodic timer that drives Tick.
type TickSource interface {
	Enable()
	Disable()
}

// Option configures a Player.
type Option func(*Player)

// WithAllocator sets the function used to obtain a work buffer when none was
// supplied. Returning nil makes Initialize fail with CodeNullBuffer.
func WithAllocator(fn func(size int) []byte) Option {
	return func(p *Player) {
		p.alloc = fn
	}
}

// Player streams a file from storage to the output through a ring buffer.
//
// Tick runs in the tick context and takes no locks. Every other method runs in
// the loop context and is serialized by mu.
type Player struct {
	mu sync.Mutex

	// Collaborators
	storage Storage
	out     Output
	ticks   TickSource
	alloc   func(size int) []byte

	// Work buffer
	mem     []byte
	ownsMem bool
	ring    *ring.Buffer // nil while uninitialized

	chipSelect uint8
	mode       Mode
	unit       int // bytes per output tick

	pos track.Position

	flags Flags
	gate  gate

	lastErr error
}

// New creates a player bound to its collaborators. It starts uninitialized.
func New(storage Storage, out Output, ticks TickSource, opts ...Option) *Player {
	p := &Player{
		storage:    storage,
		out:        out,
		ticks:      ticks,
		alloc:      func(size int) []byte { return make([]byte, size) },
		chipSelect: DefaultChipSelect,
		unit:       1,
	}
	p.flags.Set(FlagStopped)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetChipSelect sets the storage chip-select used by the next Initialize.
func (p *Player) SetChipSelect(cs uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chipSelect = cs
}

// SetWorkBuffer supplies the work buffer used by the next Initialize instead
// of a library-allocated one. Its length is truncated to a multiple of
// BlockSize and must be at least 1024. Passing nil reverts to allocation.
func (p *Player) SetWorkBuffer(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mem = buf
	p.ownsMem = false
}

// Initialize acquires the work buffer, brings up storage and applies mode.
// On failure the code is also recorded for LastError.
func (p *Player) Initialize(mode Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := mode.Validate(); err != nil {
		return err
	}

	p.ticks.Disable()
	wasLive := p.ring != nil

	if p.mem == nil {
		mem := p.alloc(DefaultBufferSize)
		if mem == nil {
			p.teardownLocked(wasLive)
			return p.fail(ErrNullBuffer)
		}
		p.mem = mem
		p.ownsMem = true
	}
	if len(p.mem) < ring.MinCapacity {
		p.teardownLocked(wasLive)
		return p.fail(errors.Wrapf(ErrBufferTooSmall, "size=%d min=%d", len(p.mem), ring.MinCapacity))
	}

	size := len(p.mem) &^ (BlockSize - 1)
	rb, err := ring.New(p.mem[:size])
	if err != nil {
		p.teardownLocked(wasLive)
		return p.fail(errors.Mark(err, ErrBufferTooSmall))
	}

	if err := p.storage.Init(p.chipSelect); err != nil {
		p.teardownLocked(false)
		p.releaseBufferLocked()
		return p.fail(errors.Wrapf(err, "storage init (cs=%d)", p.chipSelect))
	}

	set := FlagStopped
	if mode.Rate == RateHalf {
		set |= FlagHalfRate
	}
	switch mode.Layout {
	case LayoutStereo:
		set |= FlagStereo
	case LayoutBridge:
		set |= FlagBridge
	}

	p.gate.mask()
	p.ring = rb
	p.mode = mode
	p.unit = mode.UnitSize()
	p.pos.Clear()
	p.flags.Update(FlagPlaying|FlagUnderrun|FlagHalfRate|FlagHalfRateAlternator|FlagStereo|FlagBridge, set)
	p.gate.unmask()

	for ch := 0; ch < mode.Channels(); ch++ {
		p.out.SetDuty(Channel(ch), MidLevel)
	}

	zlog.Debug().Msgf("playback: initialized: mode=%s buffer=%d cs=%d", mode, size, p.chipSelect)
	return nil
}

// Deinitialize stops playback, disables the tick source, shuts storage down
// and drops a library-allocated work buffer. A caller-supplied buffer is kept
// for the next Initialize.
func (p *Player) Deinitialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.ticks.Disable()

	var err error
	if p.ring != nil {
		if rerr := p.storage.Release(); rerr != nil {
			err = errors.Wrap(rerr, "storage release")
		}
	}

	p.gate.mask()
	p.ring = nil
	p.pos.Clear()
	p.gate.unmask()

	p.releaseBufferLocked()
	zlog.Debug().Msg("playback: deinitialized")
	return err
}

// SelectFile stops playback and selects name for the next Play. On lookup
// failure no file remains selected.
func (p *Player) SelectFile(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ring == nil {
		return p.fail(ErrNotInitialized)
	}

	p.stopLocked()
	p.pos.Clear()

	t, err := p.storage.Lookup(name)
	if err != nil {
		return p.fail(errors.Wrapf(err, "lookup %q", name))
	}
	p.pos = track.NewPosition(t)

	zlog.Debug().Msgf("playback: file selected: name=%s start=%d size=%d", t.Name, t.StartBlock, t.Size)
	return nil
}

// Dir stops playback and calls fn once per file on storage.
func (p *Player) Dir(fn func(name string)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ring == nil {
		return p.fail(ErrNotInitialized)
	}

	p.stopLocked()
	if err := p.storage.List(fn); err != nil {
		return p.fail(errors.Wrap(err, "list"))
	}
	return nil
}

// Play starts playback of the selected file. If already playing, playback
// restarts from the beginning.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pos.Selected() {
		return ErrNoFile
	}
	if p.flags.Has(FlagPlaying) {
		p.stopLocked()
	}
	p.flags.Update(FlagStopped, FlagPlaying)
	p.ticks.Enable()

	zlog.Debug().Msgf("playback: play: name=%s", p.pos.Track.Name)
	return nil
}

// Pause suspends output if playing and resumes it if paused. It has no effect
// while stopped. The buffer is left untouched.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.flags.Has(FlagStopped) {
		return
	}
	f := p.flags.Toggle(FlagPlaying)
	zlog.Debug().Msgf("playback: pause toggled: playing=%t", f&FlagPlaying != 0)
}

// Stop stops playback and rewinds to the start of the selected file. Once it
// returns, ticks see an empty buffer.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked resets the buffering state with the tick handler masked.
// Must be called with lock held.
func (p *Player) stopLocked() {
	p.gate.mask()
	p.flags.Update(FlagPlaying, FlagStopped)
	if p.ring != nil {
		p.ring.Reset()
	}
	if p.pos.Selected() {
		p.pos.Rewind()
	}
	p.gate.unmask()
}

// IsPlaying returns true while output is active.
func (p *Player) IsPlaying() bool {
	return p.flags.Has(FlagPlaying)
}

// IsStopped returns true when stopped, including after end of stream.
func (p *Player) IsStopped() bool {
	return p.flags.Has(FlagStopped)
}

// IsPaused returns true when paused mid-stream.
func (p *Player) IsPaused() bool {
	f := p.flags.Load()
	return f&(FlagPlaying|FlagStopped) == 0
}

// UnderrunOccurred reports whether a tick found the buffer empty since the
// last call, and clears the condition.
func (p *Player) UnderrunOccurred() bool {
	return p.flags.TestAndClear(FlagUnderrun)
}

// LastError returns and clears the last recorded failure.
func (p *Player) LastError() (Code, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.lastErr
	p.lastErr = nil
	return CodeOf(err), err
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stateLocked()
}

// stateLocked derives the state from the flags.
// Must be called with lock held.
func (p *Player) stateLocked() State {
	if p.ring == nil {
		return StateUninitialized
	}
	f := p.flags.Load()
	switch {
	case f&FlagPlaying != 0:
		return StatePlaying
	case f&FlagStopped != 0:
		return StateStopped
	default:
		return StatePaused
	}
}

// Status is a snapshot of the player for display.
type Status struct {
	State    State
	Mode     Mode
	File     string
	Size     uint32
	Consumed uint32 // Bytes read from storage
	Buffered int    // Bytes waiting in the ring buffer
	Capacity int
	Flags    Flag
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		State:    p.stateLocked(),
		Mode:     p.mode,
		File:     p.pos.Track.Name,
		Size:     p.pos.Track.Size,
		Consumed: p.pos.Consumed,
		Flags:    p.flags.Load(),
	}
	if p.ring != nil {
		s.Buffered = p.ring.Len()
		s.Capacity = p.ring.Cap()
	}
	return s
}

// fail records err for LastError and returns it.
// Must be called with lock held.
func (p *Player) fail(err error) error {
	p.lastErr = err
	zlog.Debug().Msgf("playback: error recorded: code=%s err=%v", CodeOf(err), err)
	return err
}

// teardownLocked returns a player whose Initialize failed to the
// uninitialized state. release shuts down storage left up by an earlier
// Initialize.
// Must be called with lock held.
func (p *Player) teardownLocked(release bool) {
	p.stopLocked()

	p.gate.mask()
	p.ring = nil
	p.pos.Clear()
	p.gate.unmask()

	if release {
		if err := p.storage.Release(); err != nil {
			zlog.Debug().Msgf("playback: storage release failed: %v", err)
		}
	}
}

// releaseBufferLocked drops the work buffer if the player allocated it.
// Must be called with lock held.
func (p *Player) releaseBufferLocked() {
	if p.ownsMem {
		p.mem = nil
		p.ownsMem = false
	}
}
