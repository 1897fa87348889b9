// Package wasserr defines the error codes surfaced across Wassette's component
// boundary, so that callers (built-ins, the tool surface, and eventually a
// transport) can map a failure onto the small fixed vocabulary the transport
// understands without parsing error strings.
package wasserr

import "fmt"

// Code is one of the error codes named in the external interface contract.
type Code string

const (
	UnknownComponent  Code = "UnknownComponent"
	AlreadyLoaded     Code = "AlreadyLoaded"
	LoadFailed        Code = "LoadFailed"
	PolicyViolation   Code = "PolicyViolation"
	InvalidArguments  Code = "InvalidArguments"
	Timeout           Code = "Timeout"
	Cancelled         Code = "Cancelled"
	ResourceExhausted Code = "ResourceExhausted"
	Internal          Code = "Internal"
	GuestTrap         Code = "GuestTrap"
	Unsupported       Code = "Unsupported"
	InvalidLimit      Code = "InvalidLimit"
)

// Error pairs an underlying cause with the code a transport should report.
type Error struct {
	Code Code
	Err  error
}

func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, wasserr.Sentinel(wasserr.UnknownComponent)) read
// naturally by comparing codes rather than pointer identity.
func (e *Error) Is(target error) bool {
	var other *Error
	if as, ok := target.(*Error); ok {
		other = as
	} else {
		return false
	}
	return e.Code == other.Code
}

// Sentinel returns a comparable *Error carrying only a code, suitable for use
// with errors.Is(err, wasserr.Sentinel(wasserr.UnknownComponent)).
func Sentinel(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the Code from err if it (transitively) wraps an *Error,
// defaulting to Internal for anything else.
func CodeOf(err error) Code {
	var e *Error
	if err == nil {
		return ""
	}
	if as, ok := unwrapTo(err); ok {
		e = as
	}
	if e == nil {
		return Internal
	}
	return e.Code
}

func unwrapTo(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
