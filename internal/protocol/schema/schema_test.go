package schema

import (
	"errors"
	"testing"

	"github.com/danmuck/onebyte/internal/protocol/tlv"
	"github.com/danmuck/onebyte/internal/testutil/testlog"
)

func TestValidateSeekRequiredFields(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{
		tlv.U64(FieldHandle, 1),
		tlv.I64(FieldDelta, -3),
		tlv.U8(FieldWhence, 2),
	}
	if err := Validate(MsgSeek, fields); err != nil {
		t.Fatalf("validate seek: %v", err)
	}
}

func TestValidateOpenNeedsNothing(t *testing.T) {
	testlog.Start(t)
	if err := Validate(MsgOpen, nil); err != nil {
		t.Fatalf("validate open: %v", err)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{
		tlv.U64(FieldHandle, 1),
		tlv.Bytes(FieldData, []byte("abc")),
		{ID: 9999, Type: tlv.TypeBytes, Value: []byte{0x01}},
	}
	if err := Validate(MsgWrite, fields); err != nil {
		t.Fatalf("validate with unknown field: %v", err)
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	err := Validate(MsgRead, []tlv.Field{tlv.U64(FieldHandle, 1)})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.FieldID != FieldCount || ve.Reason != "missing required field" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateTypeMismatchDeterministic(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{
		tlv.U64(FieldHandle, 1),
		tlv.U64(FieldDelta, 3), // wants signed
		tlv.U8(FieldWhence, 0),
	}
	var ve ValidationError
	if !errors.As(Validate(MsgSeek, fields), &ve) {
		t.Fatalf("expected ValidationError")
	}
	if ve.FieldID != FieldDelta || ve.Reason != "type mismatch" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateOptionalTypeChecked(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{
		tlv.U32(FieldCommand, 0x80016b01),
		tlv.String(FieldData, "hi"),
	}
	var ve ValidationError
	if !errors.As(Validate(MsgIoctl, fields), &ve) {
		t.Fatalf("expected ValidationError")
	}
	if ve.FieldID != FieldData {
		t.Fatalf("unexpected field %d", ve.FieldID)
	}
}

func TestValidateUnknownMessageType(t *testing.T) {
	testlog.Start(t)
	var ve ValidationError
	if !errors.As(Validate(99, nil), &ve) || ve.Reason != "unknown message_type" {
		t.Fatalf("expected unknown message_type error")
	}
	if MessageName(99) != "unknown(99)" || MessageName(MsgIoctl) != "ioctl" {
		t.Fatalf("unexpected message names")
	}
}
