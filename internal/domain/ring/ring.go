// Package ring provides the byte ring shared between the tick handler and the
// block producer.
//
// Exactly one producer and one consumer may use a Buffer concurrently. The
// producer owns the write cursor, the consumer owns the read cursor, and the
// occupancy counter is the only field both touch: the producer only adds to
// it, the consumer only subtracts from it, each with a single atomic add.
package ring

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// BlockSize is the storage I/O unit. Capacities are always a multiple of it.
const BlockSize = 512

// MinCapacity is the smallest usable buffer.
const MinCapacity = 2 * BlockSize

// Errors
var (
	ErrTooSmall  = errors.New("ring buffer smaller than minimum capacity")
	ErrUnaligned = errors.New("ring buffer capacity is not a multiple of the block size")
)

// Buffer is a fixed-capacity single-producer/single-consumer byte queue.
type Buffer struct {
	buf []byte

	rd int // consumer only
	wr int // producer only

	occupied atomic.Int32
}

// New wraps mem as a ring buffer. len(mem) must be a multiple of BlockSize and
// at least MinCapacity.
func New(mem []byte) (*Buffer, error) {
	if len(mem) < MinCapacity {
		return nil, errors.Wrapf(ErrTooSmall, "size=%d", len(mem))
	}
	if len(mem)%BlockSize != 0 {
		return nil, errors.Wrapf(ErrUnaligned, "size=%d", len(mem))
	}
	return &Buffer{buf: mem}, nil
}

// Cap returns the capacity in bytes.
func (b *Buffer) Cap() int { return len(b.buf) }

// Len returns the number of bytes ready for the consumer.
func (b *Buffer) Len() int { return int(b.occupied.Load()) }

// Free returns the number of bytes the producer may still commit.
func (b *Buffer) Free() int { return len(b.buf) - b.Len() }

// TryConsume copies len(dst) bytes out of the buffer, advancing the read
// cursor. It reports false, consuming nothing, when fewer bytes are occupied.
// Consumer only.
func (b *Buffer) TryConsume(dst []byte) bool {
	n := len(dst)
	if n == 0 {
		return true
	}
	if int(b.occupied.Load()) < n {
		return false
	}

	first := len(b.buf) - b.rd
	if first >= n {
		copy(dst, b.buf[b.rd:b.rd+n])
	} else {
		copy(dst, b.buf[b.rd:])
		copy(dst[first:], b.buf[:n-first])
	}

	b.rd += n
	if b.rd >= len(b.buf) {
		b.rd -= len(b.buf)
	}
	b.occupied.Add(int32(-n))
	return true
}

// Reserve returns the n-byte region at the write cursor for the producer to
// fill. It returns false when less than n bytes are free or when the region
// would wrap past the end of the buffer; reservations of BlockSize never wrap
// while the write cursor stays block aligned. Producer only.
func (b *Buffer) Reserve(n int) ([]byte, bool) {
	if n <= 0 || n > b.Free() {
		return nil, false
	}
	if b.wr+n > len(b.buf) {
		return nil, false
	}
	return b.buf[b.wr : b.wr+n], true
}

// Commit publishes n bytes written into the last reserved region. Producer
// only; n must not exceed the reserved length.
func (b *Buffer) Commit(n int) {
	if n <= 0 {
		return
	}
	b.wr += n
	if b.wr >= len(b.buf) {
		b.wr -= len(b.buf)
	}
	b.occupied.Add(int32(n))
}

// Reset empties the buffer and moves both cursors to the start. The caller
// must ensure neither the producer nor the consumer runs concurrently.
func (b *Buffer) Reset() {
	b.rd = 0
	b.wr = 0
	b.occupied.Store(0)
}
