package storage

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sdplay/internal/domain/track"
)

// VolumeConfig configures a directory volume.
type VolumeConfig struct {
	Root      string        `mapstructure:"root" validate:"required"`
	ReadDelay time.Duration `mapstructure:"read_delay" validate:"gte=0"`
}

// Volume exposes the regular files of a host directory as a flat block
// volume. Files are laid out back-to-back on block boundaries in name order,
// the way a freshly formatted card lays out files copied onto it.
type Volume struct {
	config VolumeConfig

	catalog
	ready      bool
	chipSelect uint8

	// Open handle of the file read last
	open    *os.File
	openIdx int
}

// NewVolume creates a volume over cfg.Root. Nothing is scanned until Init.
func NewVolume(cfg VolumeConfig) *Volume {
	return &Volume{config: cfg, openIdx: -1}
}

// Init scans the root directory and builds the file table.
func (v *Volume) Init(chipSelect uint8) error {
	v.closeOpen()
	v.reset()

	fi, err := os.Stat(v.config.Root)
	if err != nil {
		return newError(CodeInit, "init", err)
	}
	if !fi.IsDir() {
		return newError(CodeInit, "init", errors.Newf("%s is not a directory", v.config.Root))
	}

	entries, err := os.ReadDir(v.config.Root)
	if err != nil {
		return newError(CodeInit, "init", err)
	}

	var next uint32
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return newError(CodeInit, "init", err)
		}
		if info.Size() == 0 {
			continue
		}
		if info.Size() > math.MaxUint32 {
			zlog.Warn().Msgf("storage: skipping %s: size %d exceeds the 4 GiB file limit", e.Name(), info.Size())
			continue
		}
		t := track.Track{Name: e.Name(), StartBlock: next, Size: uint32(info.Size())}
		v.add(t)
		next += t.Blocks()
	}

	v.chipSelect = chipSelect
	v.ready = true
	zlog.Debug().Msgf("storage: volume ready: root=%s files=%d blocks=%d cs=%d", v.config.Root, len(v.files), next, chipSelect)
	return nil
}

// Release closes any open file and forgets the file table.
func (v *Volume) Release() error {
	err := v.closeOpen()
	v.reset()
	v.ready = false
	return err
}

// ReadBlock reads one block. The tail of the last block of a file reads as
// zeros.
func (v *Volume) ReadBlock(block uint32, dst []byte) error {
	if !v.ready {
		return newError(CodeInit, "read", ErrNotReady)
	}
	if v.config.ReadDelay > 0 {
		time.Sleep(v.config.ReadDelay)
	}

	i := v.locate(block)
	if i < 0 {
		return newError(CodeOutOfRange, "read", errors.Newf("block %d", block))
	}
	f, err := v.file(i)
	if err != nil {
		return newError(CodeRead, "read", err)
	}

	dst = dst[:BlockSize]
	off := int64(block-v.files[i].StartBlock) * BlockSize
	n, err := f.ReadAt(dst, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return newError(CodeRead, "read", err)
	}
	clear(dst[n:])
	return nil
}

// Lookup finds a file by name, ignoring case.
func (v *Volume) Lookup(name string) (track.Track, error) {
	if !v.ready {
		return track.Track{}, newError(CodeInit, "lookup", ErrNotReady)
	}
	return v.lookup(name)
}

// List calls fn once per file, in layout order.
func (v *Volume) List(fn func(name string)) error {
	if !v.ready {
		return newError(CodeInit, "list", ErrNotReady)
	}
	v.list(fn)
	return nil
}

// file returns an open handle for the i-th file, reusing the last one.
func (v *Volume) file(i int) (*os.File, error) {
	if v.open != nil && v.openIdx == i {
		return v.open, nil
	}
	v.closeOpen()

	f, err := os.Open(filepath.Join(v.config.Root, v.files[i].Name))
	if err != nil {
		return nil, err
	}
	v.open = f
	v.openIdx = i
	return f, nil
}

func (v *Volume) closeOpen() error {
	if v.open == nil {
		return nil
	}
	err := v.open.Close()
	v.open = nil
	v.openIdx = -1
	return err
}
