package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFieldsPreservesUnknown(t *testing.T) {
	in := []Field{
		String(1, "payload"),
		{ID: 9999, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	out, err := DecodeFields(EncodeFields(in))
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if out[1].ID != 9999 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestI64KeepsSign(t *testing.T) {
	f := I64(3, -42)
	got, err := f.AsI64()
	if err != nil || got != -42 {
		t.Fatalf("expected -42, got %d err=%v", got, err)
	}
	if _, err := f.AsU64(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestAccessorsCheckLength(t *testing.T) {
	f := Field{ID: 2, Type: TypeU32, Value: []byte{0, 1}}
	if _, err := f.AsU32(); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	v, err := U32(2, 7).AsU32()
	if err != nil || v != 7 {
		t.Fatalf("u32: v=%d err=%v", v, err)
	}
	b, err := U8(4, 2).AsU8()
	if err != nil || b != 2 {
		t.Fatalf("u8: v=%d err=%v", b, err)
	}
	if _, err := Bytes(5, []byte("x")).AsString(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}
