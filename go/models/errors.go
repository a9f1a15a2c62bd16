package models

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	// snapshot could not be built or the engine refused the initial state
	KindSetup
	// instruction cap exceeded, or execution stopped before the end address
	KindExecutionLimit
	KindTimeout
	// the snippet raised a CPU exception or signal
	KindFault
	KindIllegalEndState
	// unexpected engine or OS failure
	KindEngine
)

var kindNames = map[ErrorKind]string{
	KindNone:            "ok",
	KindSetup:           "setup",
	KindExecutionLimit:  "execution limit",
	KindTimeout:         "timeout",
	KindFault:           "fault",
	KindIllegalEndState: "illegal end state",
	KindEngine:          "engine",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrTooManyInstructions = errors.New("emulator executed too many instructions")
	ErrTimedOut            = errors.New("execution timed out")
	ErrDidNotReachEnd      = errors.New("execution did not reach end of code snippet")
)

type TracerError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *TracerError) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *TracerError) Unwrap() error { return e.Err }
func (e *TracerError) Cause() error  { return e.Err }

func NewError(kind ErrorKind, err error) error {
	return errors.WithStack(&TracerError{Kind: kind, Err: err})
}

func Errorf(kind ErrorKind, format string, args ...interface{}) error {
	return errors.WithStack(&TracerError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func WrapError(kind ErrorKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&TracerError{Kind: kind, Msg: msg, Err: err})
}

// KindOf finds the TracerError kind anywhere in err's chain.
// Errors that carry no kind are treated as engine failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var terr *TracerError
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return KindEngine
}
