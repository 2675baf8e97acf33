package dispatch

import (
	"encoding/binary"
	"fmt"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
)

// runWorkerVariant implements §4.14's worker sub-protocol: drain completed
// jobs, then hand out as many new actions as the worker asks for.
func (s *Server) runWorkerVariant(c *protocol.Connection) error {
	if err := s.drainCompletedJobs(c); err != nil {
		return err
	}
	if err := s.dispatchRequestedActions(c); err != nil {
		return err
	}
	if err := c.Send(protocol.KindDisconnect, nil); err != nil {
		return err
	}
	return nil
}

func (s *Server) drainCompletedJobs(c *protocol.Connection) error {
	if err := c.Send(protocol.KindGetCompJobs, nil); err != nil {
		return err
	}
	payload, err := c.RecvExpect(protocol.KindCompletedJobs)
	if err != nil {
		return err
	}
	if len(payload) != 4 {
		return fmt.Errorf("dispatch: CompletedJobs payload must be 4 bytes, got %d", len(payload))
	}
	count := binary.LittleEndian.Uint32(payload)

	for i := uint32(0); i < count; i++ {
		idsPayload, err := c.RecvExpect(protocol.KindTaskIDs)
		if err != nil {
			return err
		}
		ids, err := protocol.DecodeTaskIDs(idsPayload)
		if err != nil {
			return err
		}
		result, err := c.RecvExpect(protocol.KindCompTaskAction)
		if err != nil {
			return err
		}
		if err := s.Engine.FinishedAction(ids.TaskID, ids.ActionID, result); err != nil {
			if s.Log != nil {
				s.Log.Error("finished_action %d/%d: %v", ids.TaskID, ids.ActionID, err)
			}
		} else if s.Log != nil {
			s.Log.Info("action %d/%d complete, checksum %x", ids.TaskID, ids.ActionID, protocol.DiagnosticChecksum(result))
		}
	}
	return nil
}

func (s *Server) dispatchRequestedActions(c *protocol.Connection) error {
	if err := c.Send(protocol.KindHowMuchAction, nil); err != nil {
		return err
	}
	payload, err := c.RecvExpect(protocol.KindActionCount)
	if err != nil {
		return err
	}
	if len(payload) != 1 {
		return fmt.Errorf("dispatch: ActionCount payload must be 1 byte, got %d", len(payload))
	}
	n := int(payload[0])

	for j := 0; j < n; j++ {
		taskID, actionID, actionPayload, ok := s.Engine.GetNewAction()
		if !ok {
			break
		}
		if err := c.Send(protocol.KindTaskIDs, protocol.TaskIDs{TaskID: taskID, ActionID: actionID}.Encode()); err != nil {
			return err
		}
		if err := c.Send(protocol.KindTaskAction, actionPayload); err != nil {
			return err
		}
	}
	return nil
}
