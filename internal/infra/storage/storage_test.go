package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sdplay/internal/domain/track"
	"github.com/osa030/sdplay/internal/infra/config"
)

func fill(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%253)
	}
	return b
}

func writeFiles(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func TestVolume_Layout(t *testing.T) {
	a := fill(700, 1)
	b := fill(512, 9)
	dir := writeFiles(t, map[string][]byte{
		"A.RAW":  a,
		"B.RAW":  b,
		"C.RAW":  {},
		"zz.txt": []byte("x"),
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "SUB"), 0o755))

	v := NewVolume(VolumeConfig{Root: dir})
	require.NoError(t, v.Init(4))

	var names []string
	require.NoError(t, v.List(func(name string) { names = append(names, name) }))
	assert.Equal(t, []string{"A.RAW", "B.RAW", "zz.txt"}, names)

	tests := []struct {
		lookup string
		want   track.Track
	}{
		{"a.raw", track.Track{Name: "A.RAW", StartBlock: 0, Size: 700}},
		{"B.raw", track.Track{Name: "B.RAW", StartBlock: 2, Size: 512}},
		{"ZZ.TXT", track.Track{Name: "zz.txt", StartBlock: 3, Size: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.lookup, func(t *testing.T) {
			got, err := v.Lookup(tt.lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := v.Lookup("missing.raw")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, codeOf(err))
}

func TestVolume_SkipsFilesOver4GiB(t *testing.T) {
	a := fill(700, 1)
	dir := writeFiles(t, map[string][]byte{"A.RAW": a, "HUGE.RAW": {1}})
	if err := os.Truncate(filepath.Join(dir, "HUGE.RAW"), 1<<32); err != nil {
		t.Skipf("sparse file not supported: %v", err)
	}

	v := NewVolume(VolumeConfig{Root: dir})
	require.NoError(t, v.Init(4))
	defer v.Release()

	var names []string
	require.NoError(t, v.List(func(name string) { names = append(names, name) }))
	assert.Equal(t, []string{"A.RAW"}, names)

	_, err := v.Lookup("HUGE.RAW")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, codeOf(err))
}

func TestVolume_ReadBlock(t *testing.T) {
	a := fill(700, 1)
	b := fill(512, 9)
	dir := writeFiles(t, map[string][]byte{"A.RAW": a, "B.RAW": b})

	v := NewVolume(VolumeConfig{Root: dir})
	require.NoError(t, v.Init(4))
	defer v.Release()

	dst := make([]byte, BlockSize)

	require.NoError(t, v.ReadBlock(0, dst))
	assert.Equal(t, a[:512], dst)

	// Tail block of A is zero-filled past EOF
	require.NoError(t, v.ReadBlock(1, dst))
	assert.Equal(t, a[512:], dst[:188])
	assert.Equal(t, make([]byte, 512-188), dst[188:])

	require.NoError(t, v.ReadBlock(2, dst))
	assert.Equal(t, b, dst)

	err := v.ReadBlock(3, dst)
	require.Error(t, err)
	assert.Equal(t, CodeOutOfRange, codeOf(err))
}

func TestVolume_InitErrors(t *testing.T) {
	v := NewVolume(VolumeConfig{Root: filepath.Join(t.TempDir(), "missing")})
	err := v.Init(4)
	require.Error(t, err)
	assert.Equal(t, CodeInit, codeOf(err))

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	v = NewVolume(VolumeConfig{Root: file})
	err = v.Init(4)
	require.Error(t, err)
	assert.Equal(t, CodeInit, codeOf(err))
}

func TestVolume_NotReady(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"A.RAW": fill(10, 0)})
	v := NewVolume(VolumeConfig{Root: dir})

	assert.Equal(t, CodeInit, codeOf(v.ReadBlock(0, make([]byte, BlockSize))))
	_, err := v.Lookup("A.RAW")
	assert.Equal(t, CodeInit, codeOf(err))

	require.NoError(t, v.Init(4))
	require.NoError(t, v.Release())
	assert.ErrorIs(t, v.List(func(string) {}), ErrNotReady)
}

func TestImage(t *testing.T) {
	img := append(fill(1024, 3), fill(100, 50)...)
	path := filepath.Join(t.TempDir(), "card.img")
	require.NoError(t, os.WriteFile(path, img, 0o644))

	im := NewImage(ImageConfig{
		Path: path,
		Files: []ImageEntry{
			{Name: "TAIL.RAW", StartBlock: 2, Size: 100},
			{Name: "HEAD.RAW", StartBlock: 0, Size: 1024},
		},
	})
	require.NoError(t, im.Init(1))
	defer im.Release()

	var names []string
	require.NoError(t, im.List(func(name string) { names = append(names, name) }))
	assert.Equal(t, []string{"HEAD.RAW", "TAIL.RAW"}, names)

	tr, err := im.Lookup("tail.raw")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tr.StartBlock)

	dst := make([]byte, BlockSize)
	require.NoError(t, im.ReadBlock(1, dst))
	assert.Equal(t, img[512:1024], dst)

	require.NoError(t, im.ReadBlock(2, dst))
	assert.Equal(t, img[1024:], dst[:100])
	assert.True(t, bytes.Equal(make([]byte, 412), dst[100:]))

	assert.Equal(t, CodeOutOfRange, codeOf(im.ReadBlock(3, dst)))
}

func TestImage_EntryPastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.img")
	require.NoError(t, os.WriteFile(path, fill(512, 0), 0o644))

	im := NewImage(ImageConfig{
		Path:  path,
		Files: []ImageEntry{{Name: "BIG.RAW", StartBlock: 0, Size: 513}},
	})
	err := im.Init(4)
	require.Error(t, err)
	assert.Equal(t, CodeInit, codeOf(err))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	first := m.Add("ONE.RAW", fill(600, 0))
	second := m.Add("TWO.RAW", fill(10, 7))
	assert.Equal(t, uint32(0), first.StartBlock)
	assert.Equal(t, uint32(2), second.StartBlock)

	dst := make([]byte, BlockSize)
	assert.Equal(t, CodeInit, codeOf(m.ReadBlock(0, dst)))

	require.NoError(t, m.Init(3))
	assert.Equal(t, uint8(3), m.ChipSelect())

	require.NoError(t, m.ReadBlock(2, dst))
	assert.Equal(t, fill(10, 7), dst[:10])

	m.FailAt(1, CodeRead)
	err := m.ReadBlock(1, dst)
	require.Error(t, err)
	assert.Equal(t, CodeRead, codeOf(err))

	m.FailAt(1, 0)
	require.NoError(t, m.ReadBlock(1, dst))
	assert.Equal(t, 3, m.Reads())

	assert.Equal(t, CodeOutOfRange, codeOf(m.ReadBlock(3, dst)))
}

func TestError(t *testing.T) {
	err := newError(CodeRead, "read", os.ErrPermission)
	assert.Equal(t, CodeRead, codeOf(err))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "code 0x20")

	var coder interface{ ErrorCode() uint8 }
	require.ErrorAs(t, err, &coder)
	assert.Equal(t, CodeRead, coder.ErrorCode())
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr bool
	}{
		{
			name: "dir",
			cfg: config.StorageConfig{
				Type:     "dir",
				Settings: map[string]any{"root": "/media/card", "read_delay": "3ms"},
			},
			want: &Volume{},
		},
		{
			name: "image",
			cfg: config.StorageConfig{
				Type: "image",
				Settings: map[string]any{
					"path": "card.img",
					"files": []any{
						map[string]any{"name": "A.RAW", "start_block": 0, "size": 10},
					},
				},
			},
			want: &Image{},
		},
		{
			name:    "dir without root",
			cfg:     config.StorageConfig{Type: "dir"},
			wantErr: true,
		},
		{
			name: "image entry without size",
			cfg: config.StorageConfig{
				Type: "image",
				Settings: map[string]any{
					"path":  "card.img",
					"files": []any{map[string]any{"name": "A.RAW"}},
				},
			},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			cfg:     config.StorageConfig{Type: "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, dev)
		})
	}
}

func TestNew_ReadDelay(t *testing.T) {
	dev, err := New(config.StorageConfig{
		Type:     "dir",
		Settings: map[string]any{"root": "/media/card", "read_delay": "3ms"},
	})
	require.NoError(t, err)
	v, ok := dev.(*Volume)
	require.True(t, ok)
	assert.Equal(t, "3ms", v.config.ReadDelay.String())
}

// codeOf returns the storage code carried by err, or 0 if there is none.
func codeOf(err error) uint8 {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
