package dispatch

import (
	"fmt"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/jobengine"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
)

// runSubmitterVariant implements §4.14's submitter sub-protocol: receive
// one job submission, register it with the engine, acknowledge, and close.
func (s *Server) runSubmitterVariant(c *protocol.Connection) error {
	kind, payload, err := c.Recv()
	if err != nil {
		return err
	}

	var taskID uint32
	switch kind {
	case protocol.KindSubmitJobBasic:
		job, err := protocol.DecodeSubmitJobBasic(payload)
		if err != nil {
			return err
		}
		task := jobengine.NewTiledImageTask(job.Filename, int(job.Rx), int(job.Ry), job.Output, int(job.Gx), int(job.Gy), s.Log)
		taskID = s.Engine.AddTask(task)
	case protocol.KindSubmitJobAnim:
		job, err := protocol.DecodeSubmitJobAnim(payload)
		if err != nil {
			return err
		}
		task := jobengine.NewAnimationTask(job.Filename, int(job.Rx), int(job.Ry), job.Output, int(job.Frames), s.Log)
		taskID = s.Engine.AddTask(task)
	default:
		return fmt.Errorf("dispatch: expected SubmitJobBasic or SubmitJobAnim, got %s", kind)
	}

	if s.Log != nil {
		s.Log.Info("submitted task %d", taskID)
	}
	if err := c.Send(protocol.KindSubmitOK, nil); err != nil {
		return err
	}
	return c.Send(protocol.KindDisconnect, nil)
}
