package domain

import (
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// TaskDescriptor declares one unit of work inside a workflow definition.
type TaskDescriptor struct {
	ID           string
	Category     models.TaskCategory
	DependsOn    []string      // task ids that must complete first
	Timeout      time.Duration // max run time; approval TTL for HumanApproval; 0 = engine default
	RetryBudget  int           // declared budget; the step loop does not retry
	Handler      string        // capability name; empty = task id
	ApproverRole string        // HumanApproval only
	ResultKey    string        // Decision only; empty = task id
	RecipientKey string        // Notification only; empty = "recipient"
}

// HandlerName resolves the capability name a task binds to.
func (t TaskDescriptor) HandlerName() string {
	if t.Handler != "" {
		return t.Handler
	}
	return t.ID
}

// ResultKeyName resolves where a Decision task writes its result.
func (t TaskDescriptor) ResultKeyName() string {
	if t.ResultKey != "" {
		return t.ResultKey
	}
	return t.ID
}

// RecipientKeyName resolves which data key names a Notification recipient.
func (t TaskDescriptor) RecipientKeyName() string {
	if t.RecipientKey != "" {
		return t.RecipientKey
	}
	return "recipient"
}
