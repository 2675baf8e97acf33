// Package protocol implements the wire-level connection protocol of §4.11: a
// length-prefixed binary message stream, the client/server handshake, and
// the fixed-width payload encodings used by the job-dispatch sub-protocols.
// Every message is (kind:u16, length:u32, payload:length bytes), little
// endian, no text — mirroring the header-plus-payload framing the teacher's
// own PolyCall client uses (ProtocolHeader + binary.Write/Read), generalized
// from a fixed 16-byte struct header to this protocol's two-field one.
package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/blake2b"
)

// Kind identifies a message type on the wire (§4.11 table).
type Kind uint16

const (
	KindHandshake      Kind = 1
	KindVersion        Kind = 2
	KindEverythingOK   Kind = 3
	KindGetClientType  Kind = 4
	KindClientType     Kind = 5
	KindSubmitJobBasic Kind = 6
	KindSubmitJobAnim  Kind = 7
	KindSubmitOK       Kind = 8
	KindDisconnect     Kind = 9
	KindGetCompJobs    Kind = 10
	KindCompletedJobs  Kind = 11
	KindTaskIDs        Kind = 12
	KindCompTaskAction Kind = 13
	KindHowMuchAction  Kind = 14
	KindActionCount    Kind = 15
	KindTaskAction     Kind = 16
)

func (k Kind) String() string {
	switch k {
	case KindHandshake:
		return "Handshake"
	case KindVersion:
		return "Version"
	case KindEverythingOK:
		return "EverythingOK"
	case KindGetClientType:
		return "GetClientType"
	case KindClientType:
		return "ClientType"
	case KindSubmitJobBasic:
		return "SubmitJobBasic"
	case KindSubmitJobAnim:
		return "SubmitJobAnim"
	case KindSubmitOK:
		return "SubmitOK"
	case KindDisconnect:
		return "Disconnect"
	case KindGetCompJobs:
		return "GetCompJobs"
	case KindCompletedJobs:
		return "CompletedJobs"
	case KindTaskIDs:
		return "TaskIDs"
	case KindCompTaskAction:
		return "CompTaskAction"
	case KindHowMuchAction:
		return "HowMuchAction"
	case KindActionCount:
		return "ActionCount"
	case KindTaskAction:
		return "TaskAction"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

// ClientType is the payload of a ClientType message.
type ClientType byte

const (
	ClientUnknown   ClientType = 0
	ClientWorker    ClientType = 1
	ClientSubmitter ClientType = 2
	ClientMCP       ClientType = 3
)

// FixedStringSize is the width of every fixed, NUL-padded string field on
// the wire (§6).
const FixedStringSize = 1024

// MaxPayloadSize guards against a corrupt or hostile length field forcing an
// unbounded allocation; no payload defined by §4.11/§4.12 comes close to it.
const MaxPayloadSize = 16 * 1024 * 1024

// PutFixedString writes s into a FixedStringSize-byte NUL-padded field,
// truncating if s is too long to fit.
func PutFixedString(s string) [FixedStringSize]byte {
	var out [FixedStringSize]byte
	n := copy(out[:], s)
	_ = n
	return out
}

// FixedStringValue returns the NUL-terminated prefix of a fixed string
// field as a Go string.
func FixedStringValue(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ErrProtocolViolation wraps any framing error: mismatched kind, bad
// length, or premature EOF (§5 "Error handling in the wire path").
type ErrProtocolViolation struct {
	Op  string
	Err error
}

func (e *ErrProtocolViolation) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ErrProtocolViolation) Unwrap() error { return e.Err }

// Connection is the send buffer, receive buffer, current inbound message
// kind, and underlying byte stream named in §3 as the "Connection" data
// model entry.
type Connection struct {
	stream  net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	lastIn  Kind
	lastLen uint32
}

// NewConnection wraps an already-established net.Conn.
func NewConnection(stream net.Conn) *Connection {
	return &Connection{
		stream: stream,
		r:      bufio.NewReader(stream),
		w:      bufio.NewWriter(stream),
	}
}

// Send writes one frame: kind, length, then payload, flushing immediately
// since each handler step in §4.14 expects its message to have actually
// reached the peer before waiting on a reply.
func (c *Connection) Send(kind Kind, payload []byte) error {
	var header [6]byte
	binary.LittleEndian.PutUint16(header[0:2], uint16(kind))
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	if _, err := c.w.Write(header[:]); err != nil {
		return &ErrProtocolViolation{Op: "send header", Err: err}
	}
	if len(payload) > 0 {
		if _, err := c.w.Write(payload); err != nil {
			return &ErrProtocolViolation{Op: "send payload", Err: err}
		}
	}
	if err := c.w.Flush(); err != nil {
		return &ErrProtocolViolation{Op: "flush", Err: err}
	}
	return nil
}

// Recv reads one complete frame and returns its kind and payload. A short
// read or an oversized length both close out as protocol violations per
// §5; the caller is expected to close the connection on any error.
func (c *Connection) Recv() (Kind, []byte, error) {
	var header [6]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return 0, nil, &ErrProtocolViolation{Op: "recv header", Err: err}
	}
	kind := Kind(binary.LittleEndian.Uint16(header[0:2]))
	length := binary.LittleEndian.Uint32(header[2:6])
	if length > MaxPayloadSize {
		return 0, nil, &ErrProtocolViolation{Op: "recv header", Err: fmt.Errorf("payload length %d exceeds maximum %d", length, MaxPayloadSize)}
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return 0, nil, &ErrProtocolViolation{Op: "recv payload", Err: err}
		}
	}
	c.lastIn, c.lastLen = kind, length
	return kind, payload, nil
}

// RecvExpect reads one frame and verifies its kind matches want, returning
// a protocol violation otherwise (the "mismatched message kind" case of
// §5's error model).
func (c *Connection) RecvExpect(want Kind) ([]byte, error) {
	kind, payload, err := c.Recv()
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, &ErrProtocolViolation{Op: "recv expect", Err: fmt.Errorf("expected %s, got %s", want, kind)}
	}
	return payload, nil
}

// LastKind reports the most recently received message kind.
func (c *Connection) LastKind() Kind { return c.lastIn }

// Close closes the underlying stream.
func (c *Connection) Close() error { return c.stream.Close() }

// RemoteAddr exposes the peer address for logging.
func (c *Connection) RemoteAddr() net.Addr { return c.stream.RemoteAddr() }

// Version is the four-u32 protocol version payload carried by KindVersion.
type Version struct {
	Major, Minor, Revision, Build uint32
}

// Equal reports whether two versions match field-for-field, per §4.11's
// handshake rule ("verify all four u32 fields equal server's").
func (v Version) Equal(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Revision == o.Revision && v.Build == o.Build
}

func (v Version) encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], v.Major)
	binary.LittleEndian.PutUint32(buf[4:8], v.Minor)
	binary.LittleEndian.PutUint32(buf[8:12], v.Revision)
	binary.LittleEndian.PutUint32(buf[12:16], v.Build)
	return buf
}

func decodeVersion(b []byte) (Version, error) {
	if len(b) != 16 {
		return Version{}, fmt.Errorf("version payload must be 16 bytes, got %d", len(b))
	}
	return Version{
		Major:    binary.LittleEndian.Uint32(b[0:4]),
		Minor:    binary.LittleEndian.Uint32(b[4:8]),
		Revision: binary.LittleEndian.Uint32(b[8:12]),
		Build:    binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// ServerHandshake runs the server side of §4.11's handshake sequence:
// expect Handshake, verify the secret; expect Version, verify it matches;
// send EverythingOK. Any mismatch returns an error without sending a reply,
// leaving the caller to log and close per the spec's stated error model.
func ServerHandshake(c *Connection, secret string, version Version) error {
	hs, err := c.RecvExpect(KindHandshake)
	if err != nil {
		return err
	}
	if FixedStringValue(hs) != secret {
		return fmt.Errorf("wrong secret code")
	}
	vb, err := c.RecvExpect(KindVersion)
	if err != nil {
		return err
	}
	peerVersion, err := decodeVersion(vb)
	if err != nil {
		return err
	}
	if !peerVersion.Equal(version) {
		return fmt.Errorf("version mismatch: got %+v, want %+v", peerVersion, version)
	}
	return c.Send(KindEverythingOK, nil)
}

// ClientHandshake runs the client side: send Handshake and Version, then
// expect EverythingOK.
func ClientHandshake(c *Connection, secret string, version Version) error {
	secretBuf := PutFixedString(secret)
	if err := c.Send(KindHandshake, secretBuf[:]); err != nil {
		return err
	}
	if err := c.Send(KindVersion, version.encode()); err != nil {
		return err
	}
	if _, err := c.RecvExpect(KindEverythingOK); err != nil {
		return err
	}
	return nil
}

// NegotiateClientType runs the server's post-handshake branch point: send
// GetClientType, receive the one-byte ClientType response (§4.11 "After
// handshake the server sends GetClientType and branches...").
func NegotiateClientType(c *Connection) (ClientType, error) {
	if err := c.Send(KindGetClientType, nil); err != nil {
		return ClientUnknown, err
	}
	payload, err := c.RecvExpect(KindClientType)
	if err != nil {
		return ClientUnknown, err
	}
	if len(payload) != 1 {
		return ClientUnknown, fmt.Errorf("client type payload must be 1 byte, got %d", len(payload))
	}
	return ClientType(payload[0]), nil
}

// AnnounceClientType runs the client side of the same exchange: wait for
// GetClientType, reply with the given type.
func AnnounceClientType(c *Connection, kind ClientType) error {
	if _, err := c.RecvExpect(KindGetClientType); err != nil {
		return err
	}
	return c.Send(KindClientType, []byte{byte(kind)})
}

// TaskIDs is the payload of a TaskIDs message (§4.11 code 12).
type TaskIDs struct {
	TaskID   uint32
	ActionID uint32
}

func (t TaskIDs) Encode() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], t.TaskID)
	binary.LittleEndian.PutUint32(buf[4:8], t.ActionID)
	return buf
}

func DecodeTaskIDs(b []byte) (TaskIDs, error) {
	if len(b) != 8 {
		return TaskIDs{}, fmt.Errorf("TaskIDs payload must be 8 bytes, got %d", len(b))
	}
	return TaskIDs{
		TaskID:   binary.LittleEndian.Uint32(b[0:4]),
		ActionID: binary.LittleEndian.Uint32(b[4:8]),
	}, nil
}

// SubmitJobBasic is the payload of a SubmitJobBasic message (code 6).
type SubmitJobBasic struct {
	Filename string
	Rx, Ry   uint32
	Output   string
	Gx, Gy   uint32
}

func (s SubmitJobBasic) Encode() []byte {
	buf := make([]byte, FixedStringSize+4+4+FixedStringSize+4+4)
	name := PutFixedString(s.Filename)
	copy(buf[0:FixedStringSize], name[:])
	off := FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], s.Rx)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], s.Ry)
	off += 8
	out := PutFixedString(s.Output)
	copy(buf[off:off+FixedStringSize], out[:])
	off += FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], s.Gx)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], s.Gy)
	return buf
}

func DecodeSubmitJobBasic(b []byte) (SubmitJobBasic, error) {
	want := FixedStringSize + 4 + 4 + FixedStringSize + 4 + 4
	if len(b) != want {
		return SubmitJobBasic{}, fmt.Errorf("SubmitJobBasic payload must be %d bytes, got %d", want, len(b))
	}
	off := FixedStringSize
	out := SubmitJobBasic{
		Filename: FixedStringValue(b[0:FixedStringSize]),
		Rx:       binary.LittleEndian.Uint32(b[off : off+4]),
		Ry:       binary.LittleEndian.Uint32(b[off+4 : off+8]),
	}
	off += 8
	out.Output = FixedStringValue(b[off : off+FixedStringSize])
	off += FixedStringSize
	out.Gx = binary.LittleEndian.Uint32(b[off : off+4])
	out.Gy = binary.LittleEndian.Uint32(b[off+4 : off+8])
	return out, nil
}

// SubmitJobAnim is the payload of a SubmitJobAnim message (code 7).
type SubmitJobAnim struct {
	Filename string
	Rx, Ry   uint32
	Output   string
	Frames   uint32
}

func (s SubmitJobAnim) Encode() []byte {
	buf := make([]byte, FixedStringSize+4+4+FixedStringSize+4)
	name := PutFixedString(s.Filename)
	copy(buf[0:FixedStringSize], name[:])
	off := FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], s.Rx)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], s.Ry)
	off += 8
	out := PutFixedString(s.Output)
	copy(buf[off:off+FixedStringSize], out[:])
	off += FixedStringSize
	binary.LittleEndian.PutUint32(buf[off:off+4], s.Frames)
	return buf
}

func DecodeSubmitJobAnim(b []byte) (SubmitJobAnim, error) {
	want := FixedStringSize + 4 + 4 + FixedStringSize + 4
	if len(b) != want {
		return SubmitJobAnim{}, fmt.Errorf("SubmitJobAnim payload must be %d bytes, got %d", want, len(b))
	}
	off := FixedStringSize
	out := SubmitJobAnim{
		Filename: FixedStringValue(b[0:FixedStringSize]),
		Rx:       binary.LittleEndian.Uint32(b[off : off+4]),
		Ry:       binary.LittleEndian.Uint32(b[off+4 : off+8]),
	}
	off += 8
	out.Output = FixedStringValue(b[off : off+FixedStringSize])
	off += FixedStringSize
	out.Frames = binary.LittleEndian.Uint32(b[off : off+4])
	return out, nil
}

// DiagnosticChecksum hashes a completed-action payload for log lines, the
// same role the teacher's calculateChecksum (sha256-truncated-to-u32) plays
// around its own message frames — generalized here to blake2b's 64-bit
// sum, which is not part of the wire format and never verified on receipt.
func DiagnosticChecksum(payload []byte) uint64 {
	sum := blake2b.Sum512(payload)
	return binary.LittleEndian.Uint64(sum[:8])
}
