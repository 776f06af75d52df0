package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/protocol/schema"
	"github.com/danmuck/onebyte/internal/testutil/testlog"
)

func wire(t *testing.T, f frame.Frame) frame.Frame {
	t.Helper()
	var buf bytes.Buffer
	if err := frame.WriteFrame(&buf, f, frame.DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	out, err := frame.ReadFrame(&buf, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func TestSeekRequestKeepsNegativeDelta(t *testing.T) {
	testlog.Start(t)
	in := Request{Type: schema.MsgSeek, Handle: 3, Delta: -4, Whence: 2}
	got, err := ParseRequest(wire(t, in.Frame(7)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Handle != 3 || got.Delta != -4 || got.Whence != 2 {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestWriteRequestCountIsOptional(t *testing.T) {
	testlog.Start(t)
	in := Request{Type: schema.MsgWrite, Handle: 1, Data: []byte("abc")}
	got, err := ParseRequest(wire(t, in.Frame(1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.HasCount || !bytes.Equal(got.Data, []byte("abc")) {
		t.Fatalf("unexpected request: %+v", got)
	}

	in.Count, in.HasCount = 10, true
	got, err = ParseRequest(wire(t, in.Frame(2)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.HasCount || got.Count != 10 {
		t.Fatalf("expected explicit count 10, got %+v", got)
	}
}

func TestPositionMarksPositionalTransfer(t *testing.T) {
	testlog.Start(t)
	in := Request{Type: schema.MsgRead, Handle: 2, Count: 8}
	got, err := ParseRequest(wire(t, in.Frame(1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.HasPosition {
		t.Fatalf("cursor read decoded as positional: %+v", got)
	}

	// position 0 must survive as an explicit value
	in.HasPosition = true
	got, err = ParseRequest(wire(t, in.Frame(2)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.HasPosition || got.Position != 0 {
		t.Fatalf("expected explicit position 0, got %+v", got)
	}

	w := Request{Type: schema.MsgWrite, Handle: 2, Data: []byte("hi"), Position: 5, HasPosition: true}
	got, err = ParseRequest(wire(t, w.Frame(3)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.HasPosition || got.Position != 5 || got.HasCount {
		t.Fatalf("unexpected write request: %+v", got)
	}
}

func TestIoctlRequestWithoutData(t *testing.T) {
	testlog.Start(t)
	in := Request{Type: schema.MsgIoctl, Command: 0x00006b00}
	got, err := ParseRequest(wire(t, in.Frame(1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Command != 0x00006b00 || got.Data != nil || got.HasCount {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestParseRequestRejectsResponseTypes(t *testing.T) {
	testlog.Start(t)
	_, err := ParseRequest(Reply{Result: 1}.Frame(1))
	if !errors.Is(err, ErrUnexpectedRequest) {
		t.Fatalf("expected ErrUnexpectedRequest, got %v", err)
	}
}

func TestParseRequestMissingField(t *testing.T) {
	testlog.Start(t)
	f := frame.New(1, schema.MsgRead, 0, nil)
	var ve schema.ValidationError
	if _, err := ParseRequest(f); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReplyRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Reply{Result: 3, Handle: 9, Offset: 3, HasOffset: true, Data: []byte("abc")}
	f := wire(t, in.Frame(5))
	if !f.IsResponse() || f.IsError() || f.Header.MessageID != 5 {
		t.Fatalf("unexpected header: %+v", f.Header)
	}
	got, err := ParseResponse(f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Result != 3 || got.Handle != 9 || !got.HasOffset || got.Offset != 3 || string(got.Data) != "abc" {
		t.Fatalf("unexpected reply: %+v", got)
	}
}

func TestErrorReplySurfacesAsError(t *testing.T) {
	testlog.Start(t)
	in := ErrorReply{Errno: 28, Kind: "out of space", Detail: "offset 4194304"}
	f := wire(t, in.Frame(2))
	if !f.IsError() {
		t.Fatalf("expected error flag")
	}
	_, err := ParseResponse(f)
	var got ErrorReply
	if !errors.As(err, &got) {
		t.Fatalf("expected ErrorReply, got %v", err)
	}
	if got != in {
		t.Fatalf("unexpected error reply: %+v", got)
	}
}

func TestParseResponseRejectsRequests(t *testing.T) {
	testlog.Start(t)
	_, err := ParseResponse(Request{Type: schema.MsgOpen}.Frame(1))
	if !errors.Is(err, ErrNotResponse) {
		t.Fatalf("expected ErrNotResponse, got %v", err)
	}
}
