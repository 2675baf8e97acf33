package jobengine

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/imageio"
)

// colorWireSize is the encoded size of one RISEColor: four little-endian
// float32 channels (R, G, B, A).
const colorWireSize = 16

func encodeColor(c imageio.RISEColor, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(c.R)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(c.G)))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(c.B)))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(float32(c.A)))
}

func decodeColor(buf []byte) imageio.RISEColor {
	return imageio.RISEColor{
		R: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))),
		G: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))),
		B: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))),
		A: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16]))),
	}
}

// EncodeColors serializes a slice of RISEColors for a CompTaskAction
// payload.
func EncodeColors(colors []imageio.RISEColor) []byte {
	buf := make([]byte, len(colors)*colorWireSize)
	for i, c := range colors {
		encodeColor(c, buf[i*colorWireSize:(i+1)*colorWireSize])
	}
	return buf
}

// DecodeColors parses exactly count RISEColors out of buf.
func DecodeColors(buf []byte, count int) ([]imageio.RISEColor, error) {
	want := count * colorWireSize
	if len(buf) != want {
		return nil, fmt.Errorf("jobengine: expected %d color bytes, got %d", want, len(buf))
	}
	out := make([]imageio.RISEColor, count)
	for i := range out {
		out[i] = decodeColor(buf[i*colorWireSize : (i+1)*colorWireSize])
	}
	return out, nil
}
