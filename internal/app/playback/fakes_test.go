package playback

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sdplay/internal/domain/track"
)

// codedError mimics a storage error carrying its own code.
type codedError struct {
	code uint8
}

func (e *codedError) Error() string    { return "storage failure" }
func (e *codedError) ErrorCode() uint8 { return e.code }

// fakeStorage is a flat volume held in memory.
type fakeStorage struct {
	mu       sync.Mutex
	image    []byte
	files    []track.Track
	initCode uint8
	failAt   map[uint32]uint8
	reads    []uint32
	inits    []uint8
	released int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{failAt: make(map[uint32]uint8)}
}

// add appends a file on the next block boundary and returns its content.
func (s *fakeStorage) add(name string, data []byte) track.Track {
	start := uint32(len(s.image) / BlockSize)
	t := track.Track{Name: name, StartBlock: start, Size: uint32(len(data))}
	padded := make([]byte, int(t.Blocks())*BlockSize)
	copy(padded, data)
	s.image = append(s.image, padded...)
	s.files = append(s.files, t)
	return t
}

func (s *fakeStorage) Init(cs uint8) error {
	s.inits = append(s.inits, cs)
	if s.initCode != 0 {
		return &codedError{code: s.initCode}
	}
	return nil
}

func (s *fakeStorage) Release() error {
	s.released++
	return nil
}

func (s *fakeStorage) ReadBlock(block uint32, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, block)
	if code, ok := s.failAt[block]; ok {
		return &codedError{code: code}
	}
	off := int(block) * BlockSize
	if off+BlockSize > len(s.image) {
		return &codedError{code: 0x21}
	}
	copy(dst, s.image[off:off+BlockSize])
	return nil
}

func (s *fakeStorage) Lookup(name string) (track.Track, error) {
	for _, t := range s.files {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return track.Track{}, errors.WithStack(&codedError{code: 0x30})
}

func (s *fakeStorage) List(fn func(name string)) error {
	for _, t := range s.files {
		fn(t.Name)
	}
	return nil
}

func (s *fakeStorage) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reads)
}

// recorder captures duty writes per channel.
type recorder struct {
	mu     sync.Mutex
	writes [4][]byte
}

func (r *recorder) SetDuty(ch Channel, duty uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes[ch] = append(r.writes[ch], duty)
}

func (r *recorder) channel(ch Channel) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.writes[ch]...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = [4][]byte{}
}

// fakeTicks records the enable state of the tick source.
type fakeTicks struct {
	mu      sync.Mutex
	enabled bool
	enables int
}

func (f *fakeTicks) Enable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
	f.enables++
}

func (f *fakeTicks) Disable() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
}

func (f *fakeTicks) isEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// pattern returns n bytes of a repeating, position-dependent pattern.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}
