package failure

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	Discovery     Kind = "discovery"
	Archive       Kind = "archive"
	Transfer      Kind = "transfer"
	RemoteCommand Kind = "remote command"
	Metadata      Kind = "metadata"
	Cleanup       Kind = "cleanup"
	Timeout       Kind = "timeout"
)

type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Path != "" {
		msg = fmt.Sprintf("%s failed for %s", e.Op, e.Path)
	}
	if e.Kind == Timeout {
		msg += " (timed out)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. Deadline expiry anywhere in the chain is reported
// as Timeout regardless of the requested kind.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of the outermost failure in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
