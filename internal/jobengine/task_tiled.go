package jobengine

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/imageio"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/rlog"
)

// ActionKindTiled/ActionKindAnimation tag the one-byte action-payload kind
// field distinguishing the two task kinds of §4.13.
const (
	ActionKindTiled     byte = 0
	ActionKindAnimation byte = 1
)

// TileActionID packs a tile origin into the 32-bit action ID of §3:
// ((y & 0xFFFF) << 16) | (x & 0xFFFF).
func TileActionID(x, y int) uint32 {
	return (uint32(y)&0xFFFF)<<16 | (uint32(x) & 0xFFFF)
}

func clampEnd(start, size, extent int) int {
	end := start + size - 1
	if end > extent-1 {
		end = extent - 1
	}
	return end
}

// TiledImageTask walks the image in Gx×Gy tiles, x first then y, per
// §4.13 "TiledImage task".
type TiledImageTask struct {
	Scene          string
	Rx, Ry         int
	OutputBase     string
	Gx, Gy         int
	log            *rlog.Logger

	image           *imageio.Image
	issuedCount     int
	completedCount  int
	finishedIssuing bool
	startedAt       time.Time
	nextX, nextY    int
}

// NewTiledImageTask constructs a task ready to issue its first tile.
func NewTiledImageTask(scene string, rx, ry int, outputBase string, gx, gy int, log *rlog.Logger) *TiledImageTask {
	return &TiledImageTask{
		Scene:      scene,
		Rx:         rx,
		Ry:         ry,
		OutputBase: outputBase,
		Gx:         gx,
		Gy:         gy,
		log:        log,
		image:      imageio.NewImage(rx, ry),
		startedAt:  time.Now(),
	}
}

func (t *TiledImageTask) NextAction() (actionID uint32, payload []byte, ok bool) {
	if t.nextY >= t.Ry {
		t.finishedIssuing = true
		return 0, nil, false
	}
	x, y := t.nextX, t.nextY
	xend := clampEnd(x, t.Gx, t.Rx)
	yend := clampEnd(y, t.Gy, t.Ry)

	t.nextX += t.Gx
	if t.nextX >= t.Rx {
		t.nextX = 0
		t.nextY += t.Gy
	}
	if t.nextY >= t.Ry {
		t.finishedIssuing = true
	}

	payload = encodeTilePayload(t.Scene, x, xend, y, yend)
	t.issuedCount++
	return TileActionID(x, y), payload, true
}

func encodeTilePayload(scene string, xstart, xend, ystart, yend int) []byte {
	buf := make([]byte, 1+protocol.FixedStringSize+16)
	buf[0] = ActionKindTiled
	name := protocol.PutFixedString(scene)
	copy(buf[1:1+protocol.FixedStringSize], name[:])
	off := 1 + protocol.FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(xstart))
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(xend))
	binary.LittleEndian.PutUint32(buf[off+8:off+12], uint32(ystart))
	binary.LittleEndian.PutUint32(buf[off+12:off+16], uint32(yend))
	return buf
}

// DecodeTilePayload parses a TiledImage action payload, used by worker-side
// code that actually renders the tile.
func DecodeTilePayload(buf []byte) (scene string, xstart, xend, ystart, yend int, err error) {
	want := 1 + protocol.FixedStringSize + 16
	if len(buf) != want || buf[0] != ActionKindTiled {
		return "", 0, 0, 0, 0, fmt.Errorf("jobengine: malformed tiled action payload")
	}
	scene = protocol.FixedStringValue(buf[1 : 1+protocol.FixedStringSize])
	off := 1 + protocol.FixedStringSize
	xstart = int(binary.LittleEndian.Uint32(buf[off : off+4]))
	xend = int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
	ystart = int(binary.LittleEndian.Uint32(buf[off+8 : off+12]))
	yend = int(binary.LittleEndian.Uint32(buf[off+12 : off+16]))
	return
}

// Finished reads a tile result — (xstart,xend,ystart,yend) then the tile's
// RISEColors — writes them into the output image, and on the final tile
// flushes both on-disk variants (§4.13).
func (t *TiledImageTask) Finished(actionID uint32, results []byte) (bool, error) {
	if len(results) < 16 {
		return false, fmt.Errorf("jobengine: tile result too short")
	}
	xstart := int(binary.LittleEndian.Uint32(results[0:4]))
	xend := int(binary.LittleEndian.Uint32(results[4:8]))
	ystart := int(binary.LittleEndian.Uint32(results[8:12]))
	yend := int(binary.LittleEndian.Uint32(results[12:16]))

	width := xend - xstart + 1
	height := yend - ystart + 1
	colors, err := DecodeColors(results[16:], width*height)
	if err != nil {
		return false, err
	}
	i := 0
	for y := ystart; y <= yend; y++ {
		for x := xstart; x <= xend; x++ {
			t.image.Set(x, y, colors[i])
			i++
		}
	}
	t.completedCount++

	if t.completedCount == t.issuedCount && t.finishedIssuing {
		if err := imageio.WriteSRGB8(t.image, t.OutputBase+"-sRGB"); err != nil {
			return false, err
		}
		if err := imageio.WriteProPhoto16(t.image, t.OutputBase+"-ProPhoto"); err != nil {
			return false, err
		}
		if t.log != nil {
			t.log.Info("tiled task %q finished in %s", t.OutputBase, time.Since(t.startedAt))
		}
		return true, nil
	}
	return false, nil
}
