package jobengine

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/imageio"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/rlog"
)

// AnimationTask issues one action per frame, per §4.13 "Animation task".
type AnimationTask struct {
	Scene      string
	Rx, Ry     int
	OutputBase string
	Frames     int
	log        *rlog.Logger

	completedCount int
	startedAt      time.Time
	nextFrame      int
}

// NewAnimationTask constructs a task ready to issue its first frame.
func NewAnimationTask(scene string, rx, ry int, outputBase string, frames int, log *rlog.Logger) *AnimationTask {
	return &AnimationTask{
		Scene:      scene,
		Rx:         rx,
		Ry:         ry,
		OutputBase: outputBase,
		Frames:     frames,
		log:        log,
		startedAt:  time.Now(),
	}
}

func (t *AnimationTask) NextAction() (actionID uint32, payload []byte, ok bool) {
	if t.nextFrame >= t.Frames {
		return 0, nil, false
	}
	frame := t.nextFrame
	t.nextFrame++
	return uint32(frame), encodeFramePayload(t.Scene, frame), true
}

func encodeFramePayload(scene string, frame int) []byte {
	buf := make([]byte, 1+protocol.FixedStringSize+4)
	buf[0] = ActionKindAnimation
	name := protocol.PutFixedString(scene)
	copy(buf[1:1+protocol.FixedStringSize], name[:])
	off := 1 + protocol.FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(frame))
	return buf
}

// DecodeFramePayload parses an Animation action payload.
func DecodeFramePayload(buf []byte) (scene string, frame int, err error) {
	want := 1 + protocol.FixedStringSize + 4
	if len(buf) != want || buf[0] != ActionKindAnimation {
		return "", 0, fmt.Errorf("jobengine: malformed animation action payload")
	}
	scene = protocol.FixedStringValue(buf[1 : 1+protocol.FixedStringSize])
	off := 1 + protocol.FixedStringSize
	frame = int(binary.LittleEndian.Uint32(buf[off : off+4]))
	return
}

// Finished reads one frame's worth of RISEColors, writes that frame to disk
// in ProPhoto 16-bit as `<base>_<frame%05d>` (§4.13), and reports whether
// every frame has now been rendered.
func (t *AnimationTask) Finished(actionID uint32, results []byte) (bool, error) {
	colors, err := DecodeColors(results, t.Rx*t.Ry)
	if err != nil {
		return false, err
	}
	frame := imageio.NewImage(t.Rx, t.Ry)
	copy(frame.Pixels, colors)

	path := fmt.Sprintf("%s_%05d", t.OutputBase, actionID)
	if err := imageio.WriteProPhoto16(frame, path); err != nil {
		return false, err
	}

	t.completedCount++
	if t.completedCount == t.Frames {
		if t.log != nil {
			t.log.Info("animation task %q finished in %s", t.OutputBase, time.Since(t.startedAt))
		}
		return true, nil
	}
	return false, nil
}
