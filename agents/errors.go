package agents

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a call is rejected before any state is mutated.
var ErrInvalidArgument = errors.New("agents: invalid argument")

// InvariantError reports a broken population invariant. It indicates a logic
// defect and is raised with panic, never returned.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("agents: invariant %q violated: %s", e.Invariant, e.Detail)
}

// invariant panics with an *InvariantError when ok is false.
func invariant(ok bool, name, format string, args ...any) {
	if !ok {
		panic(&InvariantError{Invariant: name, Detail: fmt.Sprintf(format, args...)})
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
