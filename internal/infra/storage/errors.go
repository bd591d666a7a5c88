package storage

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Storage error codes as reported through the player's LastError.
const (
	CodeInit       uint8 = 0x10 // Device or volume could not be brought up
	CodeRead       uint8 = 0x20 // Block read failed
	CodeOutOfRange uint8 = 0x21 // Block beyond the end of the volume
	CodeNotFound   uint8 = 0x30 // No file with the requested name
)

// Error is a storage failure carrying a numeric code.
type Error struct {
	Code uint8
	Op   string
	Err  error
}

func newError(code uint8, op string, err error) error {
	return errors.WithStack(&Error{Code: code, Op: op, Err: err})
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage: %s (code 0x%02x)", e.Op, e.Code)
	}
	return fmt.Sprintf("storage: %s (code 0x%02x): %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the numeric code.
func (e *Error) ErrorCode() uint8 { return e.Code }
