package protocol

import (
	"fmt"

	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/protocol/schema"
	"github.com/danmuck/onebyte/internal/protocol/tlv"
)

// Request is one client operation against a device handle.
//
// Count is meaningful for READ (bytes wanted), WRITE (bytes claimed, may
// exceed len(Data) to exercise partial regions) and IOCTL (size of the
// caller region). HasCount distinguishes an explicit zero. HasPosition
// turns READ and WRITE into pread/pwrite at Position.
type Request struct {
	Type        uint32
	Handle      uint64
	Count       uint32
	HasCount    bool
	Position    uint64
	HasPosition bool
	Delta       int64
	Whence      uint8
	Command     uint32
	Data        []byte
}

// Reply is the success response to a Request.
type Reply struct {
	Result    uint64
	Handle    uint64
	Offset    uint64
	HasOffset bool
	Data      []byte
}

// ErrorReply carries a failed operation back to the client.
type ErrorReply struct {
	Errno  uint32
	Kind   string
	Detail string
}

func (e ErrorReply) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("remote: %s (errno %d)", e.Kind, e.Errno)
	}
	return fmt.Sprintf("remote: %s (errno %d): %s", e.Kind, e.Errno, e.Detail)
}

func isRequestType(t uint32) bool {
	switch t {
	case schema.MsgOpen, schema.MsgRelease, schema.MsgRead, schema.MsgWrite, schema.MsgSeek, schema.MsgIoctl:
		return true
	}
	return false
}

// Fields encodes only the fields meaningful for r.Type.
func (r Request) Fields() []tlv.Field {
	var fields []tlv.Field
	switch r.Type {
	case schema.MsgRelease:
		fields = append(fields, tlv.U64(schema.FieldHandle, r.Handle))
	case schema.MsgRead:
		fields = append(fields,
			tlv.U64(schema.FieldHandle, r.Handle),
			tlv.U32(schema.FieldCount, r.Count),
		)
		if r.HasPosition {
			fields = append(fields, tlv.U64(schema.FieldPosition, r.Position))
		}
	case schema.MsgWrite:
		fields = append(fields,
			tlv.U64(schema.FieldHandle, r.Handle),
			tlv.Bytes(schema.FieldData, r.Data),
		)
		if r.HasCount {
			fields = append(fields, tlv.U32(schema.FieldCount, r.Count))
		}
		if r.HasPosition {
			fields = append(fields, tlv.U64(schema.FieldPosition, r.Position))
		}
	case schema.MsgSeek:
		fields = append(fields,
			tlv.U64(schema.FieldHandle, r.Handle),
			tlv.I64(schema.FieldDelta, r.Delta),
			tlv.U8(schema.FieldWhence, r.Whence),
		)
	case schema.MsgIoctl:
		fields = append(fields, tlv.U32(schema.FieldCommand, r.Command))
		if r.Data != nil {
			fields = append(fields, tlv.Bytes(schema.FieldData, r.Data))
		}
		if r.HasCount {
			fields = append(fields, tlv.U32(schema.FieldCount, r.Count))
		}
	}
	return fields
}

// Frame wraps r in a request frame with message id id.
func (r Request) Frame(id uint64) frame.Frame {
	return frame.New(id, r.Type, 0, tlv.EncodeFields(r.Fields()))
}

// ParseRequest validates f against the schema and decodes it.
func ParseRequest(f frame.Frame) (Request, error) {
	msgType := f.Header.MessageType
	if !isRequestType(msgType) {
		return Request{}, fmt.Errorf("%w: %s", ErrUnexpectedRequest, schema.MessageName(msgType))
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return Request{}, err
	}
	if err := schema.Validate(msgType, fields); err != nil {
		return Request{}, err
	}

	r := Request{Type: msgType}
	if fld, ok := tlv.GetField(fields, schema.FieldHandle); ok {
		if r.Handle, err = fld.AsU64(); err != nil {
			return Request{}, err
		}
	}
	if fld, ok := tlv.GetField(fields, schema.FieldCount); ok {
		if r.Count, err = fld.AsU32(); err != nil {
			return Request{}, err
		}
		r.HasCount = true
	}
	if fld, ok := tlv.GetField(fields, schema.FieldPosition); ok {
		if r.Position, err = fld.AsU64(); err != nil {
			return Request{}, err
		}
		r.HasPosition = true
	}
	if fld, ok := tlv.GetField(fields, schema.FieldDelta); ok {
		if r.Delta, err = fld.AsI64(); err != nil {
			return Request{}, err
		}
	}
	if fld, ok := tlv.GetField(fields, schema.FieldWhence); ok {
		if r.Whence, err = fld.AsU8(); err != nil {
			return Request{}, err
		}
	}
	if fld, ok := tlv.GetField(fields, schema.FieldCommand); ok {
		if r.Command, err = fld.AsU32(); err != nil {
			return Request{}, err
		}
	}
	if fld, ok := tlv.GetField(fields, schema.FieldData); ok {
		if r.Data, err = fld.AsBytes(); err != nil {
			return Request{}, err
		}
	}
	return r, nil
}

// Frame wraps r in a response frame answering message id id.
func (r Reply) Frame(id uint64) frame.Frame {
	fields := []tlv.Field{tlv.U64(schema.FieldResult, r.Result)}
	if r.Handle != 0 {
		fields = append(fields, tlv.U64(schema.FieldHandle, r.Handle))
	}
	if r.HasOffset {
		fields = append(fields, tlv.U64(schema.FieldOffset, r.Offset))
	}
	if r.Data != nil {
		fields = append(fields, tlv.Bytes(schema.FieldData, r.Data))
	}
	return frame.New(id, schema.MsgReply, frame.FlagIsResponse, tlv.EncodeFields(fields))
}

// Frame wraps e in an error frame answering message id id.
func (e ErrorReply) Frame(id uint64) frame.Frame {
	fields := []tlv.Field{
		tlv.U32(schema.FieldErrno, e.Errno),
		tlv.String(schema.FieldKind, e.Kind),
	}
	if e.Detail != "" {
		fields = append(fields, tlv.String(schema.FieldDetail, e.Detail))
	}
	return frame.New(id, schema.MsgError, frame.FlagIsResponse|frame.FlagIsError, tlv.EncodeFields(fields))
}

// ParseResponse decodes a response frame. A MsgError frame is returned
// as an ErrorReply error value.
func ParseResponse(f frame.Frame) (Reply, error) {
	if !f.IsResponse() {
		return Reply{}, ErrNotResponse
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return Reply{}, err
	}
	msgType := f.Header.MessageType
	if err := schema.Validate(msgType, fields); err != nil {
		return Reply{}, err
	}

	switch msgType {
	case schema.MsgError:
		var e ErrorReply
		fld, _ := tlv.GetField(fields, schema.FieldErrno)
		if e.Errno, err = fld.AsU32(); err != nil {
			return Reply{}, err
		}
		fld, _ = tlv.GetField(fields, schema.FieldKind)
		if e.Kind, err = fld.AsString(); err != nil {
			return Reply{}, err
		}
		if fld, ok := tlv.GetField(fields, schema.FieldDetail); ok {
			if e.Detail, err = fld.AsString(); err != nil {
				return Reply{}, err
			}
		}
		return Reply{}, e
	case schema.MsgReply:
		var r Reply
		fld, _ := tlv.GetField(fields, schema.FieldResult)
		if r.Result, err = fld.AsU64(); err != nil {
			return Reply{}, err
		}
		if fld, ok := tlv.GetField(fields, schema.FieldHandle); ok {
			if r.Handle, err = fld.AsU64(); err != nil {
				return Reply{}, err
			}
		}
		if fld, ok := tlv.GetField(fields, schema.FieldOffset); ok {
			if r.Offset, err = fld.AsU64(); err != nil {
				return Reply{}, err
			}
			r.HasOffset = true
		}
		if fld, ok := tlv.GetField(fields, schema.FieldData); ok {
			if r.Data, err = fld.AsBytes(); err != nil {
				return Reply{}, err
			}
		}
		return r, nil
	default:
		return Reply{}, fmt.Errorf("%w: %s", ErrMessageTypeMismatch, schema.MessageName(msgType))
	}
}
