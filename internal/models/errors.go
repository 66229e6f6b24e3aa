package models

import (
	"errors"
	"fmt"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Planning
	ErrTypePlanning ErrorType = "planning_failed"

	// Configuration overrides
	ErrTypeOverride ErrorType = "override_failed"

	// Task resolution
	ErrTypeTaskResolution ErrorType = "task_resolution_failed"

	// Execution phase
	ErrTypePreCallFailed    ErrorType = "precall_failed"
	ErrTypeInvocationFailed ErrorType = "invocation_failed"
	ErrTypeBatchTimeout     ErrorType = "batch_timeout"
	ErrTypeCancelled        ErrorType = "cancelled"

	// Catch-all
	ErrTypeInternal ErrorType = "internal_error"
)

var (
	ErrDuplicateProducer = errors.New("dataset type has more than one producer")
	ErrMissingTaskLoader = errors.New("task class is not resolved and no loader was given")
	ErrDataCycle         = errors.New("pipeline has data dependency cycle")
	ErrMixedSelectors    = errors.New("both available inputs and requested outputs were given")
	ErrUnknownTask       = errors.New("unknown task")
	ErrBatchTimeout      = errors.New("batch did not finish before the deadline")
	ErrPreCallFailed     = errors.New("pre-call hook failed")
	ErrCancelled         = errors.New("run cancelled")
)

// PlanningError reports a problem with the pipeline structure or with
// building the execution plan.
type PlanningError struct {
	Task    string
	Message string
	Err     error
}

func (e *PlanningError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Task != "" {
		return fmt.Sprintf("planning task %q: %s", e.Task, msg)
	}
	return "planning: " + msg
}

func (e *PlanningError) Unwrap() error { return e.Err }

// OverrideError reports a configuration override that could not be applied.
type OverrideError struct {
	Override string
	Message  string
	Err      error
}

func (e *OverrideError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	return fmt.Sprintf("override %s: %s", e.Override, msg)
}

func (e *OverrideError) Unwrap() error { return e.Err }

// TaskResolutionError reports a task name that does not resolve to a
// runnable task kind.
type TaskResolutionError struct {
	TaskName string
	Kind     string
	Err      error
}

func (e *TaskResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolving task %q: %v", e.TaskName, e.Err)
	}
	return fmt.Sprintf("resolving task %q: not runnable (kind %s)", e.TaskName, e.Kind)
}

func (e *TaskResolutionError) Unwrap() error { return e.Err }

// ExecutionError reports a fatal failure while dispatching a run.
type ExecutionError struct {
	Type     ErrorType
	TaskName string
	Message  string
	Err      error
}

func (e *ExecutionError) Error() string {
	s := string(e.Type)
	if e.TaskName != "" {
		s += " (" + e.TaskName + ")"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TaskError is an application-level failure raised by a task. It crosses
// the worker boundary unchanged.
type TaskError struct {
	TaskName string `yaml:"task_name" json:"task_name"`
	Message  string `yaml:"message" json:"message"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %s", e.TaskName, e.Message)
}

// Envelope carries an unrecognized failure across the worker boundary:
// the original error type name, its message and the stack captured where
// it was caught.
type Envelope struct {
	Type    string `yaml:"type" json:"type"`
	Message string `yaml:"message" json:"message"`
	Trace   string `yaml:"trace" json:"trace"`
}

func (e *Envelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
