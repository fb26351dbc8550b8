package agent

import (
	"fmt"

	"github.com/dishql/dishql/internal/gate"
)

// TranslationError wraps a failure of the translation collaborator. The
// loop surfaces it and continues with the next question.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate question: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// RejectedError reports a gate rejection. The offending statement is never
// executed and never retried automatically.
type RejectedError struct {
	Reason gate.Reason
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("statement rejected: %s", e.Reason)
	}
	return fmt.Sprintf("statement rejected: %s (%s)", e.Reason, e.Detail)
}

// ExecutionError wraps a backend failure. No automatic retry.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute statement: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
