package storage

import (
	"errors"
	"fmt"

	"github.com/org/rostervault/internal/codec"
	"github.com/org/rostervault/internal/crypto"
)

// ErrIO is returned when a record file or the records directory cannot be
// read or written.
var ErrIO = errors.New("record i/o failure")

// ErrNotFound is returned when a record file does not exist. It matches ErrIO.
var ErrNotFound = fmt.Errorf("%w: not found", ErrIO)

// ErrInvalidFilename is returned when sanitizing the encrypted id leaves
// nothing to name the file with.
var ErrInvalidFilename = errors.New("derived filename is empty")

// Failure reasons reported by Reason.
const (
	ReasonIO     = "io"
	ReasonCipher = "cipher"
	ReasonFormat = "format"
	ReasonOther  = "other"
)

// Reason classifies err into one of the Reason* constants.
func Reason(err error) string {
	switch {
	case errors.Is(err, crypto.ErrCipher):
		return ReasonCipher
	case errors.Is(err, codec.ErrFormat):
		return ReasonFormat
	case errors.Is(err, ErrIO):
		return ReasonIO
	default:
		return ReasonOther
	}
}
