package jobengine

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/imageio"
)

type fakeTask struct {
	actions []uint32
	next    int
	done    bool
}

func (f *fakeTask) NextAction() (uint32, []byte, bool) {
	if f.next >= len(f.actions) {
		return 0, nil, false
	}
	id := f.actions[f.next]
	f.next++
	return id, nil, true
}

func (f *fakeTask) Finished(actionID uint32, results []byte) (bool, error) {
	f.done = true
	return true, nil
}

func TestGetNewActionIteratesInsertionOrder(t *testing.T) {
	e := New(nil)
	a := &fakeTask{actions: []uint32{1}}
	b := &fakeTask{actions: []uint32{2}}
	idA := e.AddTask(a)
	idB := e.AddTask(b)

	gotTask, gotAction, _, ok := e.GetNewAction()
	require.True(t, ok)
	assert.Equal(t, idA, gotTask)
	assert.Equal(t, uint32(1), gotAction)

	gotTask2, gotAction2, _, ok := e.GetNewAction()
	require.True(t, ok)
	assert.Equal(t, idB, gotTask2)
	assert.Equal(t, uint32(2), gotAction2)

	_, _, _, ok = e.GetNewAction()
	assert.False(t, ok, "both tasks exhausted their single action")
}

func TestFinishedActionRemovesCompletedTask(t *testing.T) {
	e := New(nil)
	task := &fakeTask{actions: []uint32{1}}
	id := e.AddTask(task)
	_, actionID, _, _ := e.GetNewAction()

	require.NoError(t, e.FinishedAction(id, actionID, nil))
	assert.True(t, task.done)
	assert.Equal(t, 0, e.PendingTaskCount())
}

func TestFinishedActionOnUnknownTaskIsNotAnError(t *testing.T) {
	e := New(nil)
	err := e.FinishedAction(999, 1, nil)
	assert.NoError(t, err, "a dropped worker's lost action must not be reported as an error")
}

func TestTileActionIDPacksTileOrigin(t *testing.T) {
	assert.Equal(t, uint32(0), TileActionID(0, 0))
	assert.Equal(t, uint32(1), TileActionID(1, 0))
	assert.Equal(t, uint32(1<<16), TileActionID(0, 1))
	assert.Equal(t, uint32((5<<16)|3), TileActionID(3, 5))
}

func TestTiledImageTaskWalksXThenY(t *testing.T) {
	task := NewTiledImageTask("scene.rsc", 64, 64, "/tmp/out", 32, 32, nil)

	id1, p1, ok := task.NextAction()
	require.True(t, ok)
	assert.Equal(t, TileActionID(0, 0), id1)
	scene, xs, xe, ys, ye, err := DecodeTilePayload(p1)
	require.NoError(t, err)
	assert.Equal(t, "scene.rsc", scene)
	assert.Equal(t, 0, xs)
	assert.Equal(t, 31, xe)
	assert.Equal(t, 0, ys)
	assert.Equal(t, 31, ye)

	id2, _, ok := task.NextAction()
	require.True(t, ok)
	assert.Equal(t, TileActionID(32, 0), id2)

	id3, _, ok := task.NextAction()
	require.True(t, ok)
	assert.Equal(t, TileActionID(0, 32), id3)

	id4, _, ok := task.NextAction()
	require.True(t, ok)
	assert.Equal(t, TileActionID(32, 32), id4)

	_, _, ok = task.NextAction()
	assert.False(t, ok)
}

func TestTiledImageTaskFinishesAfterAllTilesComplete(t *testing.T) {
	dir := t.TempDir()
	task := NewTiledImageTask("scene.rsc", 2, 2, dir+"/out", 2, 2, nil)

	actionID, _, ok := task.NextAction()
	require.True(t, ok)
	_, _, ok = task.NextAction()
	require.False(t, ok, "a single 2x2 tile covers the whole 2x2 image")

	header := make([]byte, 16) // xstart=0 xend=1 ystart=0 yend=1
	binary.LittleEndian.PutUint32(header[4:8], 1)
	binary.LittleEndian.PutUint32(header[12:16], 1)
	results := append(header, EncodeColors(make([]imageio.RISEColor, 4))...)
	done, err := task.Finished(actionID, results)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = os.Stat(dir + "/out-sRGB")
	assert.NoError(t, err)
	_, err = os.Stat(dir + "/out-ProPhoto")
	assert.NoError(t, err)
}

func TestAnimationTaskWritesOneFramePerFinish(t *testing.T) {
	dir := t.TempDir()
	task := NewAnimationTask("scene.rsc", 2, 2, dir+"/anim", 2, nil)

	frame0, p0, ok := task.NextAction()
	require.True(t, ok)
	assert.Equal(t, uint32(0), frame0)
	scene, frame, err := DecodeFramePayload(p0)
	require.NoError(t, err)
	assert.Equal(t, "scene.rsc", scene)
	assert.Equal(t, 0, frame)

	done, err := task.Finished(frame0, EncodeColors(make([]imageio.RISEColor, 4)))
	require.NoError(t, err)
	assert.False(t, done)
	_, err = os.Stat(dir + "/anim_00000")
	assert.NoError(t, err)

	frame1, _, ok := task.NextAction()
	require.True(t, ok)
	done, err = task.Finished(frame1, EncodeColors(make([]imageio.RISEColor, 4)))
	require.NoError(t, err)
	assert.True(t, done, "second of two frames completes the task")
}
