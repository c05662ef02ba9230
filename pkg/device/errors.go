// ABOUTME: Device status codes
// ABOUTME: Error type carrying the failing operation and a driver-style code
package device

import (
	"errors"
	"fmt"
)

// Code is a device status code
type Code int

const (
	CodeGeneric Code = iota + 1
	CodeInvalidParam
	CodeInvalidCall
	CodeOutOfMemory
	CodeUnsupported
	CodeControlUnavailable
	CodeBufferLost
	CodePriorityLevelNeeded
	CodeReleased
	CodeBadFormat
	CodeBufferTooSmall
)

var codeNames = map[Code]string{
	CodeGeneric:             "DSERR_GENERIC",
	CodeInvalidParam:        "DSERR_INVALIDPARAM",
	CodeInvalidCall:         "DSERR_INVALIDCALL",
	CodeOutOfMemory:         "DSERR_OUTOFMEMORY",
	CodeUnsupported:         "DSERR_UNSUPPORTED",
	CodeControlUnavailable:  "DSERR_CONTROLUNAVAIL",
	CodeBufferLost:          "DSERR_BUFFERLOST",
	CodePriorityLevelNeeded: "DSERR_PRIOLEVELNEEDED",
	CodeReleased:            "DSERR_RELEASED",
	CodeBadFormat:           "DSERR_BADFORMAT",
	CodeBufferTooSmall:      "DSERR_BUFFERTOOSMALL",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DSERR(%d)", int(c))
}

// Error is returned by every failing device call
type Error struct {
	Op   string
	Code Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s: %s", e.Op, e.Code)
}

// NewError builds an Error for op
func NewError(op string, code Code) error {
	return &Error{Op: op, Code: code}
}

// CodeOf extracts the status code from err, or 0 when err is not a device error
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return 0
}
