// Package dispatch implements the server dispatcher and worker/submitter
// sub-protocols of §4.14: a single listener accepting TCP connections,
// spawning one handler per connection, performing the handshake and
// client-type negotiation, then running the worker or submitter variant.
package dispatch

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/jobengine"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/rlog"
)

// MaxConnections bounds the number of simultaneously active handler
// goroutines, admission-controlled the same way netutil.LimitListener was
// built for: excess accept()s block until a slot frees rather than
// spawning unboundedly.
const MaxConnections = 256

// Server is the single listener of §4.14.
type Server struct {
	Secret  string
	Version protocol.Version
	Engine  *jobengine.Engine
	Log     *rlog.Logger

	listener net.Listener
}

// controlReuseAddr sets SO_REUSEADDR on the raw listener socket before
// bind, the same socket-tuning the teacher's PolyCallClient never needed
// (it only dials) but that a long-lived server restarting across crashes
// does: without it a quick server restart fails to rebind the port while
// the prior socket sits in TIME_WAIT.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Listen binds the server's listener to addr (e.g. ":41337") and wraps it
// with a connection-count limiter.
func (s *Server) Listen(ctx context.Context, addr string) error {
	lc := net.ListenConfig{Control: controlReuseAddr}
	raw, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dispatch: listen %s: %w", addr, err)
	}
	s.listener = netutil.LimitListener(raw, MaxConnections)
	return nil
}

// Addr returns the bound listener's address, useful for tests that bind to
// port 0.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

// Serve accepts connections until the listener closes or ctx is canceled,
// running each connection's handler in its own goroutine under an
// errgroup whose limit caps concurrent handlers (§5: "one handler thread
// per open client connection"). Handlers log their own failures; Serve
// returns only accept errors.
func (s *Server) Serve(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(MaxConnections)

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("dispatch: accept: %w", err)
		}
		group.Go(func() error {
			s.handleConnection(conn)
			return nil
		})
	}
}

func (s *Server) handleConnection(netConn net.Conn) {
	c := protocol.NewConnection(netConn)
	defer c.Close()

	if err := protocol.ServerHandshake(c, s.Secret, s.Version); err != nil {
		if s.Log != nil {
			s.Log.Error("handshake with %s failed: %v", netConn.RemoteAddr(), err)
		}
		return
	}

	clientType, err := protocol.NegotiateClientType(c)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("client type negotiation with %s failed: %v", netConn.RemoteAddr(), err)
		}
		return
	}

	switch clientType {
	case protocol.ClientWorker:
		if err := s.runWorkerVariant(c); err != nil && s.Log != nil {
			s.Log.Error("worker session %s ended: %v", netConn.RemoteAddr(), err)
		}
	case protocol.ClientSubmitter:
		if err := s.runSubmitterVariant(c); err != nil && s.Log != nil {
			s.Log.Error("submitter session %s ended: %v", netConn.RemoteAddr(), err)
		}
	case protocol.ClientMCP:
		if s.Log != nil {
			s.Log.Info("MCP client %s connected; MCP is reserved, closing", netConn.RemoteAddr())
		}
	default:
		if s.Log != nil {
			s.Log.Warn("unknown client type %d from %s", clientType, netConn.RemoteAddr())
		}
	}
}
