package vm

import (
	"fmt"

	"github.com/pingcap/errors"
)

// ErrReschedule is not a failure. It tells the scheduler the instruction
// could not proceed yet and must be replayed from scratch later. A
// handler returns it strictly before mutating any shared state, the
// caller's stack, or the caller's program.
var ErrReschedule = errors.New("reschedule")

var (
	ErrEmptyStack         = errors.New("empty stack")
	ErrNoTransaction      = errors.New("no transaction")
	ErrUnknownInstruction = errors.New("unknown instruction")
)

// InvalidValueError is raised when a popped value cannot serve the
// instruction, e.g. an unknown or already-purged cursor token.
type InvalidValueError struct {
	Value []byte
}

func (e InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value: %q", e.Value)
}

// DuplicateKeyError is raised by ASSOC when the key is already bound.
// The store is left unchanged.
type DuplicateKeyError struct {
	Key []byte
}

func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %q", e.Key)
}

// UnknownKeyError is raised by RETR when the key is absent.
type UnknownKeyError struct {
	Key []byte
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key: %q", e.Key)
}

// DatabaseError wraps an underlying engine error. Engine errors are
// always surfaced, never swallowed.
type DatabaseError struct {
	Err error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}
