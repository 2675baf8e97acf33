// Package imageio writes the two on-disk image variants named in §4.13: an
// 8-bit sRGB preview via the standard library's image/png encoder, and a
// 16-bit-per-channel ProPhoto-gamut file for downstream high-bitdepth
// tooling. Gamut mapping itself (linear → sRGB, linear → ProPhoto) is named
// explicitly out of scope in §1 ("tone/gamut mapping"); the conversions
// here are the simplest possible placeholders — a clamp-and-scale — so the
// two writers have something well-defined to encode.
package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/surface"
)

// RISEColor is the pixel unit named in §4.13 ("finished reads ... RISEColors,
// writes them into the output image"); it aliases the shading core's linear
// Color so task completion can hand shader output straight to an image
// buffer without a conversion step.
type RISEColor = surface.Color

// Image is a rectangular linear-radiance buffer, the task's output image
// named in §3 ("Task ... output image buffer").
type Image struct {
	Width, Height int
	Pixels        []RISEColor
}

// NewImage allocates a zeroed width×height buffer.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pixels: make([]RISEColor, width*height)}
}

func (img *Image) index(x, y int) int { return y*img.Width + x }

// Set writes one pixel, used by tiled and per-frame task completion.
func (img *Image) Set(x, y int, c RISEColor) {
	img.Pixels[img.index(x, y)] = c
}

// At reads one pixel.
func (img *Image) At(x, y int) RISEColor {
	return img.Pixels[img.index(x, y)]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func linearToSRGB(v float64) float64 {
	v = clamp01(v)
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// WriteSRGB8 encodes img as an 8-bit sRGB PNG at path.
func WriteSRGB8(img *Image, path string) error {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := img.At(x, y)
			out.Set(x, y, color.NRGBA{
				R: uint8(linearToSRGB(c.R) * 255),
				G: uint8(linearToSRGB(c.G) * 255),
				B: uint8(linearToSRGB(c.B) * 255),
				A: uint8(clamp01(c.A) * 255),
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	return w.Flush()
}

// proPhotoMagic identifies the 16-bit raw ProPhoto file format this writer
// emits: no third-party or standard-library codec in the corpus speaks
// ProPhoto RGB, so a minimal flat header-plus-samples layout stands in for
// it (§9 notes gamut mapping itself is out of scope).
var proPhotoMagic = [4]byte{'R', 'P', 'P', '1'}

// WriteProPhoto16 encodes img as 16-bit-per-channel little-endian RGBA
// samples (clamped, linear-to-[0,65535] scaled) behind a tiny fixed header.
func WriteProPhoto16(img *Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.Write(proPhotoMagic[:]); err != nil {
		return err
	}
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(img.Width))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(img.Height))
	if _, err := w.Write(dims[:]); err != nil {
		return err
	}

	var sample [2]byte
	writeChannel := func(v float64) error {
		binary.LittleEndian.PutUint16(sample[:], uint16(clamp01(v)*65535))
		_, err := w.Write(sample[:])
		return err
	}
	for _, c := range img.Pixels {
		if err := writeChannel(c.R); err != nil {
			return err
		}
		if err := writeChannel(c.G); err != nil {
			return err
		}
		if err := writeChannel(c.B); err != nil {
			return err
		}
		if err := writeChannel(c.A); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadProPhoto16 is the inverse of WriteProPhoto16, used by tests to verify
// round-tripping without depending on an external viewer.
func ReadProPhoto16(r io.Reader) (*Image, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != proPhotoMagic {
		return nil, fmt.Errorf("imageio: bad magic %v", magic)
	}
	var dims [8]byte
	if _, err := io.ReadFull(r, dims[:]); err != nil {
		return nil, err
	}
	width := int(binary.LittleEndian.Uint32(dims[0:4]))
	height := int(binary.LittleEndian.Uint32(dims[4:8]))
	img := NewImage(width, height)
	var sample [2]byte
	readChannel := func() (float64, error) {
		if _, err := io.ReadFull(r, sample[:]); err != nil {
			return 0, err
		}
		return float64(binary.LittleEndian.Uint16(sample[:])) / 65535, nil
	}
	for i := range img.Pixels {
		var c RISEColor
		var err error
		if c.R, err = readChannel(); err != nil {
			return nil, err
		}
		if c.G, err = readChannel(); err != nil {
			return nil, err
		}
		if c.B, err = readChannel(); err != nil {
			return nil, err
		}
		if c.A, err = readChannel(); err != nil {
			return nil, err
		}
		img.Pixels[i] = c
	}
	return img, nil
}
