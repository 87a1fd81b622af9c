package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	gorcon "github.com/gorcon/rcon"
)

func TestEncode_Layout(t *testing.T) {
	frame, err := Encode(7, TypeCommand, "list")
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		14, 0, 0, 0, // size: 4 + 4 + len("list") + 2
		7, 0, 0, 0, // request ID
		2, 0, 0, 0, // type
		'l', 'i', 's', 't',
		0, 0,
	}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %v, want %v", frame, want)
	}
}

func TestEncode_RejectsNullByte(t *testing.T) {
	if _, err := Encode(1, TypeCommand, "say \x00hi"); err == nil {
		t.Error("expected error for payload containing a null byte")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		id      int32
		typ     int32
		payload string
	}{
		{1, TypeAuth, "secret"},
		{2, TypeCommand, "list"},
		{3, TypeCommand, ""},
		{2147483647, TypeResponse, "There are 0 of a max of 20 players online:"},
		{-1, TypeAuthResponse, ""},
		{9, TypeCommand, "say héllo wörld"},
	}
	for _, tt := range tests {
		frame, err := Encode(tt.id, tt.typ, tt.payload)
		if err != nil {
			t.Fatalf("Encode(%d, %d, %q): %v", tt.id, tt.typ, tt.payload, err)
		}
		got, err := Decode(bytes.NewReader(frame))
		if err != nil {
			t.Fatalf("Decode(%q): %v", tt.payload, err)
		}
		if got.ID != tt.id || got.Type != tt.typ || got.Body != tt.payload {
			t.Errorf("round trip = %+v, want {ID:%d Type:%d Body:%q}", got, tt.id, tt.typ, tt.payload)
		}
	}
}

func TestDecode_ShortReads(t *testing.T) {
	frame, err := Encode(42, TypeResponse, "There are 2 of a max of 20 players online: Alice, Bob")
	if err != nil {
		t.Fatal(err)
	}

	got, err := Decode(iotest.OneByteReader(bytes.NewReader(frame)))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 42 {
		t.Errorf("id = %d, want 42", got.ID)
	}
	if got.Body != "There are 2 of a max of 20 players online: Alice, Bob" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestDecode_GorconPacket(t *testing.T) {
	var buf bytes.Buffer
	if _, err := gorcon.NewPacket(gorcon.SERVERDATA_RESPONSE_VALUE, 5, "Set the time to 1000").WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 5 || got.Type != TypeResponse || got.Body != "Set the time to 1000" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestDecode_EmptyStream(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
	if KindOf(err) != KindTransport {
		t.Errorf("kind = %s, want transport", KindOf(err))
	}
}

func TestDecode_Truncated(t *testing.T) {
	frame, err := Encode(3, TypeResponse, "partial response")
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{2, 4, 9, len(frame) - 1} {
		_, err := Decode(bytes.NewReader(frame[:n]))
		if !errors.Is(err, ErrTruncatedFrame) {
			t.Errorf("Decode(frame[:%d]) err = %v, want ErrTruncatedFrame", n, err)
		}
		if KindOf(err) != KindProtocol {
			t.Errorf("Decode(frame[:%d]) kind = %s, want protocol", n, KindOf(err))
		}
	}
}

func TestDecode_BadSize(t *testing.T) {
	for _, size := range []int32{0, 9, -4, maxFrameSize + 1} {
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, size)
		buf.Write(make([]byte, 16))

		_, err := Decode(&buf)
		if !errors.Is(err, ErrFrameSize) {
			t.Errorf("size %d: err = %v, want ErrFrameSize", size, err)
		}
	}
}

func TestDecode_MissingPadding(t *testing.T) {
	frame, err := Encode(1, TypeResponse, "ok")
	if err != nil {
		t.Fatal(err)
	}
	frame[len(frame)-1] = 'x'

	if _, err := Decode(bytes.NewReader(frame)); !errors.Is(err, ErrFramePadding) {
		t.Errorf("err = %v, want ErrFramePadding", err)
	}
}
