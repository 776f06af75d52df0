// Package schema names the onebyte message types and field ids and
// checks that a decoded payload carries what its message type needs.
package schema

import (
	"fmt"

	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/protocol/tlv"
)

// Message type IDs.
const (
	MsgOpen    uint32 = 1
	MsgRelease uint32 = 2
	MsgRead    uint32 = 3
	MsgWrite   uint32 = 4
	MsgSeek    uint32 = 5
	MsgIoctl   uint32 = 6
	MsgReply   uint32 = 7
	MsgError   uint32 = 8
)

// Field IDs.
const (
	FieldHandle  uint16 = 1
	FieldCount   uint16 = 2
	FieldWhence  uint16 = 3
	FieldDelta   uint16 = 4
	FieldData    uint16 = 5
	FieldCommand uint16 = 6
	// FieldPosition makes READ and WRITE positional: the transfer happens
	// at that offset and the handle cursor is left alone.
	FieldPosition uint16 = 7

	FieldResult uint16 = 100
	FieldOffset uint16 = 101

	FieldErrno  uint16 = 200
	FieldKind   uint16 = 201
	FieldDetail uint16 = 202
)

var messageNames = map[uint32]string{
	MsgOpen:    "open",
	MsgRelease: "release",
	MsgRead:    "read",
	MsgWrite:   "write",
	MsgSeek:    "seek",
	MsgIoctl:   "ioctl",
	MsgReply:   "reply",
	MsgError:   "error",
}

// MessageName returns a lowercase label for logs and metrics.
func MessageName(messageType uint32) string {
	if name, ok := messageNames[messageType]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", messageType)
}

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	MsgOpen: {},
	MsgRelease: {
		{FieldHandle, tlv.TypeU64},
	},
	MsgRead: {
		{FieldHandle, tlv.TypeU64},
		{FieldCount, tlv.TypeU32},
	},
	MsgWrite: {
		{FieldHandle, tlv.TypeU64},
		{FieldData, tlv.TypeBytes},
	},
	MsgSeek: {
		{FieldHandle, tlv.TypeU64},
		{FieldDelta, tlv.TypeI64},
		{FieldWhence, tlv.TypeU8},
	},
	MsgIoctl: {
		{FieldCommand, tlv.TypeU32},
	},
	MsgReply: {
		{FieldResult, tlv.TypeU64},
	},
	MsgError: {
		{FieldErrno, tlv.TypeU32},
		{FieldKind, tlv.TypeString},
	},
}

// optional fields are type checked only when present.
var optional = map[uint32][]Requirement{
	MsgRead:  {{FieldPosition, tlv.TypeU64}},
	MsgWrite: {{FieldCount, tlv.TypeU32}, {FieldPosition, tlv.TypeU64}},
	MsgIoctl: {{FieldData, tlv.TypeBytes}, {FieldCount, tlv.TypeU32}},
	MsgReply: {{FieldHandle, tlv.TypeU64}, {FieldOffset, tlv.TypeU64}, {FieldData, tlv.TypeBytes}},
	MsgError: {{FieldDetail, tlv.TypeString}},
}

// Validate enforces required fields and field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint32, fields []tlv.Field) error {
	logs.Debugf("schema.Validate message_type=%d fields=%d", messageType, len(fields))
	reqs, ok := requirements[messageType]
	if !ok {
		logs.Errf("schema.Validate unknown message_type=%d", messageType)
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			logs.Errf(
				"schema.Validate missing field message_type=%d field_id=%d",
				messageType,
				req.ID,
			)
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			logs.Errf(
				"schema.Validate type mismatch message_type=%d field_id=%d got=%d want=%d",
				messageType,
				req.ID,
				f.Type,
				req.Type,
			)
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	for _, opt := range optional[messageType] {
		f, found := tlv.GetField(fields, opt.ID)
		if found && f.Type != opt.Type {
			logs.Errf(
				"schema.Validate optional type mismatch message_type=%d field_id=%d got=%d want=%d",
				messageType,
				opt.ID,
				f.Type,
				opt.Type,
			)
			return ValidationError{MessageType: messageType, FieldID: opt.ID, Reason: "type mismatch"}
		}
	}
	logs.Tracef("schema.Validate ok message_type=%d", messageType)
	return nil
}
