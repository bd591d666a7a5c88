package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Code is a numeric error code as returned by LastError. Codes below 0x80 are
// owned by the storage layer and passed through unchanged.
type Code uint8

const (
	CodeNone           Code = 0x00
	CodeNullBuffer     Code = 0x80 // Work buffer could not be obtained
	CodeBufferTooSmall Code = 0x81 // Work buffer below the minimum size
	CodeNotInitialized Code = 0x82 // Initialize has not succeeded
	CodeUnknown        Code = 0xff // Failure without a code of its own
)

// String returns the code in hex.
func (c Code) String() string {
	return fmt.Sprintf("0x%02x", uint8(c))
}

// Errors
var (
	ErrNullBuffer     = errors.New("work buffer unavailable")
	ErrBufferTooSmall = errors.New("work buffer too small")
	ErrNotInitialized = errors.New("player not initialized")
	ErrNoFile         = errors.New("no file selected")
	ErrAlreadyBound   = errors.New("tick handler already bound")
)

// coder is implemented by collaborator errors that carry a numeric code.
type coder interface {
	ErrorCode() uint8
}

// CodeOf returns the code carried by err.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var c coder
	if errors.As(err, &c) {
		return Code(c.ErrorCode())
	}
	switch {
	case errors.Is(err, ErrNullBuffer):
		return CodeNullBuffer
	case errors.Is(err, ErrBufferTooSmall):
		return CodeBufferTooSmall
	case errors.Is(err, ErrNotInitialized):
		return CodeNotInitialized
	default:
		return CodeUnknown
	}
}
