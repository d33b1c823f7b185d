package redeems

import (
	"errors"
	"fmt"
)

type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindNotFound
	KindConflict
	KindUpstreamTransient
	KindUpstreamPermanent
	KindHandlerFailure
	KindShuttingDown
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstreamTransient:
		return "upstream_transient"
	case KindUpstreamPermanent:
		return "upstream_permanent"
	case KindHandlerFailure:
		return "handler_failure"
	case KindShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

type engineErr struct {
	Kind ErrKind
	Err  error
}

func (e *engineErr) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *engineErr) Unwrap() error {
	return e.Err
}

// KindOf extracts the engine error kind; KindUnknown for foreign errors.
func KindOf(e error) ErrKind {
	var err *engineErr
	if errors.As(e, &err) {
		return err.Kind
	}

	return KindUnknown
}

func WrapKind(kind ErrKind, err error) error {
	if err == nil {
		return nil
	}

	return &engineErr{Kind: kind, Err: err}
}

func NotFoundf(format string, args ...any) error {
	return &engineErr{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &engineErr{Kind: KindConflict, Err: fmt.Errorf(format, args...)}
}

// Transient marks an upstream error worth retrying with backoff.
func Transient(err error) error {
	return WrapKind(KindUpstreamTransient, err)
}

// Permanent marks an upstream error that must not be retried.
func Permanent(err error) error {
	return WrapKind(KindUpstreamPermanent, err)
}

var ErrShuttingDown = &engineErr{Kind: KindShuttingDown, Err: errors.New("engine is shutting down")}
