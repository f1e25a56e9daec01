package synthesis

import "fmt"

// CallError means the generative call itself failed (transport, quota, timeout).
// The run cannot continue without a synthesis result.
type CallError struct {
	Model   string
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("synthesis call failed (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("synthesis call failed (%s): %s", e.Model, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// PromptError means the prompt templates could not be rendered.
type PromptError struct {
	Message string
	Cause   error
}

func (e *PromptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("prompt error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("prompt error: %s", e.Message)
}

func (e *PromptError) Unwrap() error {
	return e.Cause
}
