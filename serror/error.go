package serror

import "fmt"

// SimError is the error type carried by panics raised from inside the
// simulation. The scene treats these failures as fatal: a step either
// completes or the process is in an undefined state.
type SimError struct {
	Err string
}

// New returns a new SimError with a formatted message.
func New(message string, args ...interface{}) *SimError {
	return &SimError{Err: fmt.Sprintf(message, args...)}
}

func (e *SimError) Error() string {
	return e.Err
}
