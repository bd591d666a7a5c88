package storage

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sdplay/internal/domain/track"
)

// Memory is a volume held in memory. Files are packed back-to-back on block
// boundaries in the order they are added.
type Memory struct {
	mu sync.Mutex

	catalog
	image  []byte
	failAt map[uint32]uint8
	ready  bool

	chipSelect uint8
	reads      int
}

// NewMemory creates an empty in-memory volume.
func NewMemory() *Memory {
	return &Memory{failAt: make(map[uint32]uint8)}
}

// Add stores data as a new file and returns its table entry.
func (m *Memory) Add(name string, data []byte) track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := track.Track{Name: name, StartBlock: m.nextBlock(), Size: uint32(len(data))}
	padded := make([]byte, int(t.Blocks())*BlockSize)
	copy(padded, data)
	m.image = append(m.image, padded...)
	m.add(t)
	return t
}

// FailAt makes every read of block fail with code. A zero code clears it.
func (m *Memory) FailAt(block uint32, code uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if code == 0 {
		delete(m.failAt, block)
		return
	}
	m.failAt[block] = code
}

// Init marks the volume ready.
func (m *Memory) Init(chipSelect uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chipSelect = chipSelect
	m.ready = true
	return nil
}

// Release marks the volume not ready. The stored files are kept.
func (m *Memory) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ready = false
	return nil
}

// ReadBlock copies one block into dst.
func (m *Memory) ReadBlock(block uint32, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return newError(CodeInit, "read", ErrNotReady)
	}
	m.reads++
	if code, ok := m.failAt[block]; ok {
		return newError(code, "read", errors.Newf("injected fault at block %d", block))
	}
	off := int(block) * BlockSize
	if off+BlockSize > len(m.image) {
		return newError(CodeOutOfRange, "read", errors.Newf("block %d", block))
	}
	copy(dst[:BlockSize], m.image[off:off+BlockSize])
	return nil
}

// Lookup finds a file by name, ignoring case.
func (m *Memory) Lookup(name string) (track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(name)
}

// List calls fn once per stored file.
func (m *Memory) List(fn func(name string)) error {
	m.mu.Lock()
	files := append([]track.Track(nil), m.files...)
	m.mu.Unlock()

	for _, t := range files {
		fn(t.Name)
	}
	return nil
}

// Reads returns the number of block reads attempted since creation.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// ChipSelect returns the chip-select passed to the last Init.
func (m *Memory) ChipSelect() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chipSelect
}
