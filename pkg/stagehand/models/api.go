package models

import "time"

// StartProcessRequest is the payload for launching a process instance.
type StartProcessRequest struct {
	Workflow string         `json:"workflow"`
	Data     map[string]any `json:"data,omitempty"`
}

// StartProcessResponse is returned on successful launch.
type StartProcessResponse struct {
	ID string `json:"id"`
}

// DecideApprovalRequest carries a human decision for a pending approval.
type DecideApprovalRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment,omitempty"`
}

type DecideApprovalResponse struct {
	OK bool `json:"ok"`
}

type CancelProcessResponse struct {
	OK bool `json:"ok"`
}

// TaskFailure records the first failing task of an instance.
type TaskFailure struct {
	TaskID string    `json:"taskId"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// ProcessSnapshot is the externally observable state of a process instance.
type ProcessSnapshot struct {
	ID                 string         `json:"id"`
	Workflow           string         `json:"workflow"`
	Status             ProcessStatus  `json:"status"`
	CurrentTask        string         `json:"currentTask,omitempty"`
	CompletedCount     int            `json:"completedCount"`
	FailedCount        int            `json:"failedCount"`
	PendingApprovalIDs []string       `json:"pendingApprovalIds,omitempty"`
	Completed          []string       `json:"completed,omitempty"`
	Failed             []string       `json:"failed,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
	Failure            *TaskFailure   `json:"failure,omitempty"`
	Created            time.Time      `json:"created"`
	Started            time.Time      `json:"started,omitzero"`
	Finished           time.Time      `json:"finished,omitzero"`
}

// ApprovalSnapshot is a pending approval request as shown to approvers.
type ApprovalSnapshot struct {
	ID           string    `json:"id"`
	ProcessID    string    `json:"processId"`
	Workflow     string    `json:"workflow"`
	TaskID       string    `json:"taskId"`
	ApproverRole string    `json:"approverRole"`
	Created      time.Time `json:"created"`
	Expires      time.Time `json:"expires"`
}

// SearchProcessRequest filters the process listing.
type SearchProcessRequest struct {
	Workflow string        `json:"workflow"`
	Status   ProcessStatus `json:"status"`
	Limit    int           `json:"limit"`
}

type SearchProcessResponse struct {
	Results   int               `json:"results"`
	Processes []ProcessSnapshot `json:"processes"`
}

// TaskInfo describes one task of a registered definition.
type TaskInfo struct {
	ID           string       `json:"id"`
	Category     TaskCategory `json:"category"`
	DependsOn    []string     `json:"dependsOn,omitempty"`
	Timeout      string       `json:"timeout,omitempty"`
	RetryBudget  int          `json:"retryBudget,omitempty"`
	Handler      string       `json:"handler,omitempty"`
	ApproverRole string       `json:"approverRole,omitempty"`
}

type DefinitionSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TaskCount   int    `json:"taskCount"`
}

type DefinitionDetail struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Order       []string   `json:"order"`
	Tasks       []TaskInfo `json:"tasks"`
	FlowChart   string     `json:"flowChart,omitempty"`
}
