package call

import (
	"errors"
	"fmt"
)

// Ordering violations on a Call. They are fatal to the write that triggered
// them and leave the Call unchanged.
var (
	ErrAlreadyResponded = errors.New("call already responded")
	ErrAlreadyCompleted = errors.New("call already completed")
	ErrNotIterable      = errors.New("not an iterable call")
)

// UndefinedArgumentError is returned when reading or writing an argument
// slot that does not exist.
type UndefinedArgumentError struct {
	Position int
	Name     string
}

func (e *UndefinedArgumentError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no argument named %q", e.Name)
	}
	return fmt.Sprintf("no argument at position %d", e.Position)
}

// IsUndefinedArgument reports whether err is an UndefinedArgumentError.
func IsUndefinedArgument(err error) bool {
	var ue *UndefinedArgumentError
	return errors.As(err, &ue)
}
