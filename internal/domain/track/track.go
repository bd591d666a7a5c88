// Package track provides the audio file entity and its read position on block
// storage.
package track

// BlockSize is the storage block size in bytes.
const BlockSize = 512

// Track represents an audio file located on block storage.
// Contains only what the storage lookup returns.
type Track struct {
	Name       string // File name as looked up
	StartBlock uint32 // First storage block of the file
	Size       uint32 // File length in bytes
}

// Blocks returns the number of storage blocks the file spans.
func (t Track) Blocks() uint32 {
	return (t.Size + BlockSize - 1) / BlockSize
}

// Position is the producer's read cursor within a Track, in storage
// coordinates. The zero value means "no file selected".
type Position struct {
	Track    Track
	Block    uint32 // Next block to read
	Consumed uint32 // Bytes already taken from storage
}

// NewPosition creates a position at the start of t.
func NewPosition(t Track) Position {
	return Position{Track: t, Block: t.StartBlock}
}

// Selected returns true if a non-empty file is selected.
func (p *Position) Selected() bool {
	return p.Track.Size > 0
}

// Remaining returns the number of bytes not yet read from storage.
func (p *Position) Remaining() uint32 {
	if p.Consumed >= p.Track.Size {
		return 0
	}
	return p.Track.Size - p.Consumed
}

// Exhausted returns true once every byte of the file was read from storage.
func (p *Position) Exhausted() bool {
	return p.Consumed >= p.Track.Size
}

// Advance moves to the next block and returns how many bytes of the block just
// read belong to the file: BlockSize, or less for the tail block.
func (p *Position) Advance() uint32 {
	n := p.Remaining()
	if n > BlockSize {
		n = BlockSize
	}
	p.Block++
	p.Consumed += n
	return n
}

// Rewind moves the position back to the first block of the file.
func (p *Position) Rewind() {
	p.Block = p.Track.StartBlock
	p.Consumed = 0
}

// Clear forgets the selected file.
func (p *Position) Clear() {
	*p = Position{}
}
