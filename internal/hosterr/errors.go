// Package hosterr defines the error taxonomy shared across the bridge,
// streaming pipeline and orchestrator.
package hosterr

import "github.com/pkg/errors"

// Kind classifies a failure the way the orchestrator's error-handling
// design distinguishes startup-fatal errors from per-client or
// per-frame ones.
type Kind int

const (
	// KindBridge covers failures invoking the device-bridge executable.
	KindBridge Kind = iota
	// KindDeviceNotFound means the requested serial isn't in the device list.
	KindDeviceNotFound
	// KindIO covers local file/process I/O failures.
	KindIO
	// KindNetwork covers loopback socket failures.
	KindNetwork
	// KindVideoStream covers Annex-B demultiplexing failures.
	KindVideoStream
	// KindParse covers malformed SPS / wm size / control-event parsing.
	KindParse
	// KindNoAvailablePort means a bounded port search was exhausted.
	KindNoAvailablePort
)

func (k Kind) String() string {
	switch k {
	case KindBridge:
		return "bridge"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindIO:
		return "io"
	case KindNetwork:
		return "network"
	case KindVideoStream:
		return "video_stream"
	case KindParse:
		return "parse"
	case KindNoAvailablePort:
		return "no_available_port"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, so callers can branch on
// classification without string matching while still getting the
// wrapped stack trace from github.com/pkg/errors.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap allows errors.Is/As to see through to the underlying error;
// Cause does the same for pkg/errors.Cause.
func (e *Error) Unwrap() error { return e.err }

func (e *Error) Cause() error { return e.err }

// New creates a bare classified error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap classifies and wraps err, attaching a stack trace via
// pkg/errors.WithStack (a new one on every call).
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: errors.WithStack(err)}
}

// Is reports whether err (or any error in its chain) is a *Error of the
// given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if he, ok := err.(*Error); ok && he.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
