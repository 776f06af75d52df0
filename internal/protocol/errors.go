package protocol

import "errors"

var (
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
	ErrNotResponse         = errors.New("protocol: frame is not a response")
	ErrUnexpectedRequest   = errors.New("protocol: request type not allowed")
)
