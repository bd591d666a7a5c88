// Package storage provides the block devices the player streams from: a
// directory volume, a raw image file and an in-memory volume.
package storage

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/sdplay/internal/domain/track"
)

// BlockSize is the device block size in bytes.
const BlockSize = track.BlockSize

// Device is a block device holding a flat file table.
type Device interface {
	Init(chipSelect uint8) error
	Release() error
	ReadBlock(block uint32, dst []byte) error
	Lookup(name string) (track.Track, error)
	List(fn func(name string)) error
}

// ErrNotReady is returned when a device is used before Init.
var ErrNotReady = errors.New("device not initialized")

// catalog is the file table of a device, ordered by start block.
type catalog struct {
	files []track.Track
}

func (c *catalog) add(t track.Track) {
	c.files = append(c.files, t)
	sort.SliceStable(c.files, func(i, j int) bool {
		return c.files[i].StartBlock < c.files[j].StartBlock
	})
}

func (c *catalog) reset() {
	c.files = nil
}

// lookup matches name case-insensitively.
func (c *catalog) lookup(name string) (track.Track, error) {
	for _, t := range c.files {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return track.Track{}, newError(CodeNotFound, "lookup "+name, nil)
}

func (c *catalog) list(fn func(name string)) {
	for _, t := range c.files {
		fn(t.Name)
	}
}

// locate returns the index of the file spanning block, or -1.
func (c *catalog) locate(block uint32) int {
	i := sort.Search(len(c.files), func(i int) bool {
		return c.files[i].StartBlock > block
	}) - 1
	if i < 0 {
		return -1
	}
	t := c.files[i]
	if block >= t.StartBlock+t.Blocks() {
		return -1
	}
	return i
}

// nextBlock returns the first block past the last file.
func (c *catalog) nextBlock() uint32 {
	if len(c.files) == 0 {
		return 0
	}
	last := c.files[len(c.files)-1]
	return last.StartBlock + last.Blocks()
}
