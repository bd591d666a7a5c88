package storage

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/sdplay/internal/domain/track"
)

// ImageEntry is one file of an image manifest.
type ImageEntry struct {
	Name       string `mapstructure:"name" validate:"required"`
	StartBlock uint32 `mapstructure:"start_block"`
	Size       uint32 `mapstructure:"size" validate:"gt=0"`
}

// ImageConfig configures a raw image volume.
type ImageConfig struct {
	Path  string       `mapstructure:"path" validate:"required"`
	Files []ImageEntry `mapstructure:"files" validate:"required,min=1,dive"`
}

// Image is a raw block image with an external file table.
type Image struct {
	config ImageConfig

	catalog
	f      *os.File
	blocks uint32
}

// NewImage creates an image volume. The image is opened on Init.
func NewImage(cfg ImageConfig) *Image {
	return &Image{config: cfg}
}

// Init opens the image and checks that every manifest entry fits inside it.
func (im *Image) Init(chipSelect uint8) error {
	if im.f != nil {
		_ = im.f.Close()
		im.f = nil
	}
	im.reset()

	f, err := os.Open(im.config.Path)
	if err != nil {
		return newError(CodeInit, "init", err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return newError(CodeInit, "init", err)
	}
	blocks := uint32((fi.Size() + BlockSize - 1) / BlockSize)

	for _, e := range im.config.Files {
		t := track.Track{Name: e.Name, StartBlock: e.StartBlock, Size: e.Size}
		if t.StartBlock+t.Blocks() > blocks {
			_ = f.Close()
			im.reset()
			return newError(CodeInit, "init", errors.Newf("%s extends past end of image", e.Name))
		}
		im.add(t)
	}

	im.f = f
	im.blocks = blocks
	zlog.Debug().Msgf("storage: image ready: path=%s files=%d blocks=%d cs=%d", im.config.Path, len(im.files), blocks, chipSelect)
	return nil
}

// Release closes the image.
func (im *Image) Release() error {
	im.reset()
	if im.f == nil {
		return nil
	}
	err := im.f.Close()
	im.f = nil
	return err
}

// ReadBlock reads one block of the image. Bytes past the end of the image
// read as zeros.
func (im *Image) ReadBlock(block uint32, dst []byte) error {
	if im.f == nil {
		return newError(CodeInit, "read", ErrNotReady)
	}
	if block >= im.blocks {
		return newError(CodeOutOfRange, "read", errors.Newf("block %d of %d", block, im.blocks))
	}
	dst = dst[:BlockSize]
	n, err := im.f.ReadAt(dst, int64(block)*BlockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return newError(CodeRead, "read", err)
	}
	clear(dst[n:])
	return nil
}

// Lookup finds a manifest entry by name, ignoring case.
func (im *Image) Lookup(name string) (track.Track, error) {
	if im.f == nil {
		return track.Track{}, newError(CodeInit, "lookup", ErrNotReady)
	}
	return im.lookup(name)
}

// List calls fn once per manifest entry, in block order.
func (im *Image) List(fn func(name string)) error {
	if im.f == nil {
		return newError(CodeInit, "list", ErrNotReady)
	}
	im.list(fn)
	return nil
}
