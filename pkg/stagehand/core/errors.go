package core

import (
	"errors"
	"fmt"
)

// Kinds used by NotFoundError.
const (
	KindWorkflow = "workflow"
	KindProcess  = "process"
	KindApproval = "approval request"
)

// ConfigError reports an invalid workflow definition. It is only ever
// produced at registration time; runtime operations never return it.
type ConfigError struct {
	Workflow string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("workflow %q: %s", e.Workflow, e.Reason)
}

// NotFoundError reports an unknown workflow name, process id or approval id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ErrApprovalResolved is returned when a decision arrives for an approval
// request that was already decided or already expired.
var ErrApprovalResolved = errors.New("approval request already resolved")

func NewConfigError(workflow, format string, args ...any) *ConfigError {
	return &ConfigError{Workflow: workflow, Reason: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}
