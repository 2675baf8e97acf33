package dispatch

import (
	"fmt"
	"net"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
)

// SubmitterClient drives the client side of §4.14's submitter sub-protocol:
// dial, handshake, announce as a submitter, send exactly one job, wait for
// SubmitOK.
type SubmitterClient struct {
	Secret  string
	Version protocol.Version
}

// SubmitTiled connects to addr and submits a single tiled-image job.
func (s SubmitterClient) SubmitTiled(addr string, job protocol.SubmitJobBasic) error {
	return s.submit(addr, func(c *protocol.Connection) error {
		return c.Send(protocol.KindSubmitJobBasic, job.Encode())
	})
}

// SubmitAnimation connects to addr and submits a single animation job.
func (s SubmitterClient) SubmitAnimation(addr string, job protocol.SubmitJobAnim) error {
	return s.submit(addr, func(c *protocol.Connection) error {
		return c.Send(protocol.KindSubmitJobAnim, job.Encode())
	})
}

func (s SubmitterClient) submit(addr string, send func(*protocol.Connection) error) error {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dispatch: dial %s: %w", addr, err)
	}
	c := protocol.NewConnection(netConn)
	defer c.Close()

	if err := protocol.ClientHandshake(c, s.Secret, s.Version); err != nil {
		return fmt.Errorf("dispatch: handshake: %w", err)
	}
	if err := protocol.AnnounceClientType(c, protocol.ClientSubmitter); err != nil {
		return fmt.Errorf("dispatch: announce client type: %w", err)
	}
	if err := send(c); err != nil {
		return fmt.Errorf("dispatch: send job: %w", err)
	}
	if _, err := c.RecvExpect(protocol.KindSubmitOK); err != nil {
		return fmt.Errorf("dispatch: awaiting SubmitOK: %w", err)
	}
	return nil
}
