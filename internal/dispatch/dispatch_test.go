package dispatch

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindkrishnaswamy/RISE-sub000/internal/imageio"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/jobengine"
	"github.com/aravindkrishnaswamy/RISE-sub000/internal/protocol"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := &Server{
		Secret:  "testsecret",
		Version: protocol.Version{Major: 1},
		Engine:  jobengine.New(nil),
	}
	require.NoError(t, s.Listen(context.Background(), "127.0.0.1:0"))
	addr := s.Addr().String()

	go s.Serve(context.Background())
	t.Cleanup(func() { s.Close() })
	return s, addr
}

func TestSubmitterSessionRegistersTiledTask(t *testing.T) {
	s, addr := startTestServer(t)
	client := SubmitterClient{Secret: "testsecret", Version: protocol.Version{Major: 1}}

	err := client.SubmitTiled(addr, protocol.SubmitJobBasic{
		Filename: "scene.rsc", Rx: 64, Ry: 64, Output: "out", Gx: 32, Gy: 32,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Engine.PendingTaskCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSubmitterSessionRejectsWrongSecret(t *testing.T) {
	_, addr := startTestServer(t)
	client := SubmitterClient{Secret: "wrong", Version: protocol.Version{Major: 1}}

	err := client.SubmitTiled(addr, protocol.SubmitJobBasic{Filename: "x", Rx: 1, Ry: 1, Output: "o", Gx: 1, Gy: 1})
	assert.Error(t, err)
}

// dialWorker performs the handshake and client-type announcement a worker
// needs before running the rest of §4.14's worker sub-protocol by hand.
func dialWorker(t *testing.T, addr string) *protocol.Connection {
	t.Helper()
	netConn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	c := protocol.NewConnection(netConn)
	require.NoError(t, protocol.ClientHandshake(c, "testsecret", protocol.Version{Major: 1}))
	require.NoError(t, protocol.AnnounceClientType(c, protocol.ClientWorker))
	return c
}

func TestWorkerSessionDispatchesAnAction(t *testing.T) {
	_, addr := startTestServer(t)
	submitter := SubmitterClient{Secret: "testsecret", Version: protocol.Version{Major: 1}}
	require.NoError(t, submitter.SubmitTiled(addr, protocol.SubmitJobBasic{
		Filename: "scene.rsc", Rx: 32, Ry: 32, Output: "out", Gx: 32, Gy: 32,
	}))

	c := dialWorker(t, addr)
	defer c.Close()

	// Step 1: server asks GetCompJobs, we have nothing to report.
	_, err := c.RecvExpect(protocol.KindGetCompJobs)
	require.NoError(t, err)
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, 0)
	require.NoError(t, c.Send(protocol.KindCompletedJobs, countBuf))

	// Step 2: server asks HowMuchAction, we ask for one.
	_, err = c.RecvExpect(protocol.KindHowMuchAction)
	require.NoError(t, err)
	require.NoError(t, c.Send(protocol.KindActionCount, []byte{1}))

	idsPayload, err := c.RecvExpect(protocol.KindTaskIDs)
	require.NoError(t, err)
	ids, err := protocol.DecodeTaskIDs(idsPayload)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ids.TaskID)

	actionPayload, err := c.RecvExpect(protocol.KindTaskAction)
	require.NoError(t, err)
	scene, xs, xe, ys, ye, err := jobengine.DecodeTilePayload(actionPayload)
	require.NoError(t, err)
	assert.Equal(t, "scene.rsc", scene)
	assert.Equal(t, 0, xs)
	assert.Equal(t, 31, xe)
	assert.Equal(t, 0, ys)
	assert.Equal(t, 31, ye)

	_, err = c.RecvExpect(protocol.KindDisconnect)
	require.NoError(t, err)
}

func TestWorkerSessionReportsCompletedAction(t *testing.T) {
	s, addr := startTestServer(t)
	submitter := SubmitterClient{Secret: "testsecret", Version: protocol.Version{Major: 1}}
	require.NoError(t, submitter.SubmitTiled(addr, protocol.SubmitJobBasic{
		Filename: "scene.rsc", Rx: 2, Ry: 2, Output: t.TempDir() + "/out", Gx: 2, Gy: 2,
	}))

	// First worker session: pull the single tile action.
	c1 := dialWorker(t, addr)
	_, err := c1.RecvExpect(protocol.KindGetCompJobs)
	require.NoError(t, err)
	countBuf := make([]byte, 4)
	require.NoError(t, c1.Send(protocol.KindCompletedJobs, countBuf))
	_, err = c1.RecvExpect(protocol.KindHowMuchAction)
	require.NoError(t, err)
	require.NoError(t, c1.Send(protocol.KindActionCount, []byte{1}))
	idsPayload, err := c1.RecvExpect(protocol.KindTaskIDs)
	require.NoError(t, err)
	ids, err := protocol.DecodeTaskIDs(idsPayload)
	require.NoError(t, err)
	_, err = c1.RecvExpect(protocol.KindTaskAction)
	require.NoError(t, err)
	_, err = c1.RecvExpect(protocol.KindDisconnect)
	require.NoError(t, err)
	c1.Close()

	require.Equal(t, 1, s.Engine.PendingTaskCount())

	// Second worker session: report the tile as complete.
	c2 := dialWorker(t, addr)
	defer c2.Close()
	_, err = c2.RecvExpect(protocol.KindGetCompJobs)
	require.NoError(t, err)

	header := make([]byte, 16) // xstart=0 xend=1 ystart=0 yend=1
	binary.LittleEndian.PutUint32(header[4:8], 1)
	binary.LittleEndian.PutUint32(header[12:16], 1)
	result := append(header, jobengine.EncodeColors(make([]imageio.RISEColor, 4))...)

	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, 1)
	require.NoError(t, c2.Send(protocol.KindCompletedJobs, count))
	require.NoError(t, c2.Send(protocol.KindTaskIDs, ids.Encode()))
	require.NoError(t, c2.Send(protocol.KindCompTaskAction, result))

	_, err = c2.RecvExpect(protocol.KindHowMuchAction)
	require.NoError(t, err)
	require.NoError(t, c2.Send(protocol.KindActionCount, []byte{0}))
	_, err = c2.RecvExpect(protocol.KindDisconnect)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Engine.PendingTaskCount() == 0 }, time.Second, 10*time.Millisecond)
}
