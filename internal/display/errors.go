package display

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lifecycle failures surfaced to callers.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPlatformQuery
	KindMonitorIndexOutOfRange
	KindWindowCreationFailed
	KindIdentifierCollision
)

// Sentinels for errors.Is matching.
var (
	ErrPlatformQuery          = errors.New("platform query failed")
	ErrMonitorIndexOutOfRange = errors.New("monitor index out of range")
	ErrWindowCreationFailed   = errors.New("window creation failed")
	ErrIdentifierCollision    = errors.New("window identifier collision")
)

// String returns the stable code used on the wire.
func (k ErrorKind) String() string {
	switch k {
	case KindPlatformQuery:
		return "PlatformQueryError"
	case KindMonitorIndexOutOfRange:
		return "MonitorIndexOutOfRange"
	case KindWindowCreationFailed:
		return "WindowCreationFailed"
	case KindIdentifierCollision:
		return "IdentifierCollision"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindPlatformQuery:
		return ErrPlatformQuery
	case KindMonitorIndexOutOfRange:
		return ErrMonitorIndexOutOfRange
	case KindWindowCreationFailed:
		return ErrWindowCreationFailed
	case KindIdentifierCollision:
		return ErrIdentifierCollision
	default:
		return nil
	}
}

// Error is a classified lifecycle error.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		if s := e.Kind.sentinel(); s != nil {
			msg = s.Error()
		} else {
			msg = "display error"
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the ErrorKind from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

func platformQueryError(what string, err error) error {
	return &Error{Kind: KindPlatformQuery, Detail: "failed to " + what, Err: err}
}

func outOfRangeError(slot, count int) error {
	return &Error{
		Kind:   KindMonitorIndexOutOfRange,
		Detail: fmt.Sprintf("monitor index out of range: requested %d but only %d monitor(s) connected", slot, count),
	}
}
