package timer

import "errors"

var (
	// ErrUndefinedSession is returned by commands that need a session before
	// an intent has been set.
	ErrUndefinedSession = errors.New("timer session is not defined")

	// ErrEmptyQueue is returned when the head of an empty queue is consumed.
	ErrEmptyQueue = errors.New("session queue is empty")

	// ErrIndexOutOfRange is returned by queue mutators given a bad position.
	ErrIndexOutOfRange = errors.New("queue index out of range")

	// ErrPersistenceFailed wraps a session store failure. The in-memory
	// session is kept as it was.
	ErrPersistenceFailed = errors.New("failed to persist session")
)
