package runtime

import (
	"errors"
	"fmt"
)

var ErrAlreadyProcessed = errors.New("runtime: transaction already processed")

// InstructionError reports which instruction of a transaction failed.
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
