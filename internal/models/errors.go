package models

import (
	"errors"
	"fmt"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrTemplateNotFound = errors.New("template not found")
	// ErrVersionConflict means the campaign row changed between load and save
	ErrVersionConflict = errors.New("campaign was modified concurrently")

	ErrIllegalTransition = errors.New("illegal transition")
	ErrValidation        = errors.New("validation failed")
	ErrExecution         = errors.New("execution error")
	ErrAuditRecording    = errors.New("audit recording failed")
)

// IllegalTransitionError is returned when an operation is not legal in the current state
type IllegalTransitionError struct {
	Operation Operation
	State     CampaignState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: cannot %s a campaign in state %s", e.Operation, e.State)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// ValidationError is returned when input or a referenced resource is invalid.
// The campaign is left untouched.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ExecutionError is reported when a channel executor fails or times out.
// It never undoes a committed transition.
type ExecutionError struct {
	CampaignID uint
	Channel    Channel
	Operation  string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: %s on channel %s for campaign %d: %v", e.Operation, e.Channel, e.CampaignID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// AuditRecordingError is reported when a history entry could not be stored
type AuditRecordingError struct {
	EventID    string
	CampaignID uint
	Action     ActionType
	Err        error
}

func (e *AuditRecordingError) Error() string {
	return fmt.Sprintf("audit recording failed: %s for campaign %d (event %s): %v", e.Action, e.CampaignID, e.EventID, e.Err)
}

func (e *AuditRecordingError) Unwrap() error { return e.Err }

func (e *AuditRecordingError) Is(target error) bool {
	return target == ErrAuditRecording
}
