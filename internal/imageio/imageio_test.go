package imageio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSRGB8ProducesReadablePNG(t *testing.T) {
	img := NewImage(2, 2)
	img.Set(0, 0, RISEColor{R: 1, G: 0, B: 0, A: 1})
	img.Set(1, 1, RISEColor{R: 0, G: 1, B: 0, A: 1})

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, WriteSRGB8(img, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestProPhoto16RoundTrips(t *testing.T) {
	img := NewImage(3, 2)
	img.Set(2, 1, RISEColor{R: 0.5, G: 0.25, B: 0.75, A: 1})

	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "out.rpp")
	require.NoError(t, WriteProPhoto16(img, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = buf.ReadFrom(f)
	require.NoError(t, err)

	decoded, err := ReadProPhoto16(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Width)
	assert.Equal(t, 2, decoded.Height)

	got := decoded.At(2, 1)
	assert.InDelta(t, 0.5, got.R, 1.0/65535)
	assert.InDelta(t, 0.25, got.G, 1.0/65535)
	assert.InDelta(t, 0.75, got.B, 1.0/65535)
}
