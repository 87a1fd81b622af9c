package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gorcon "github.com/gorcon/rcon"
)

// Packet types understood by the remote console. They are a fixed external
// contract with the game server.
const (
	TypeResponse     int32 = gorcon.SERVERDATA_RESPONSE_VALUE
	TypeCommand      int32 = gorcon.SERVERDATA_EXECCOMMAND
	TypeAuthResponse int32 = gorcon.SERVERDATA_AUTH_RESPONSE
	TypeAuth         int32 = gorcon.SERVERDATA_AUTH
)

const (
	// AuthRejectedID is the request ID the server answers with when the
	// password does not match.
	AuthRejectedID int32 = -1

	// MaxCommandLen is the largest command payload the server accepts in a
	// single frame.
	MaxCommandLen = 1446

	headerSize   = 8 // request ID + type
	paddingSize  = 2 // payload terminator + trailing pad byte
	minFrameSize = headerSize + paddingSize
	maxFrameSize = 1 << 16
)

// Frame is one decoded protocol message.
type Frame struct {
	ID   int32
	Type int32
	Body string
}

// Encode packs a request as a length-prefixed frame: the size, the request
// ID, the type, the null-terminated payload and a trailing pad byte.
func Encode(id, typ int32, payload string) ([]byte, error) {
	if bytes.IndexByte([]byte(payload), 0) >= 0 {
		return nil, fmt.Errorf("payload contains a null byte")
	}

	var buf bytes.Buffer
	buf.Grow(4 + minFrameSize + len(payload))
	if _, err := gorcon.NewPacket(typ, id, payload).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads exactly one frame from r. Short reads are retried until the
// declared length is satisfied. A connection that closes before the first
// byte yields io.EOF; one that closes mid-frame yields ErrTruncatedFrame.
func Decode(r io.Reader) (Frame, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrTruncatedFrame
		}
		return Frame{}, err
	}

	size := int32(binary.LittleEndian.Uint32(prefix[:]))
	if size < minFrameSize || size > maxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameSize, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrTruncatedFrame
		}
		return Frame{}, err
	}

	if body[size-1] != 0 || body[size-2] != 0 {
		return Frame{}, ErrFramePadding
	}

	return Frame{
		ID:   int32(binary.LittleEndian.Uint32(body[0:4])),
		Type: int32(binary.LittleEndian.Uint32(body[4:8])),
		Body: string(body[headerSize : size-paddingSize]),
	}, nil
}
