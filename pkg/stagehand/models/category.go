package models

import "fmt"

// TaskCategory selects which dispatch strategy runs a task. The set is
// closed; the dispatcher switches over it exhaustively.
type TaskCategory string

const (
	CategoryAutomated         TaskCategory = "Automated"
	CategoryHumanApproval     TaskCategory = "HumanApproval"
	CategorySystemIntegration TaskCategory = "SystemIntegration"
	CategoryDecision          TaskCategory = "Decision"
	CategoryNotification      TaskCategory = "Notification"
)

func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryAutomated, CategoryHumanApproval, CategorySystemIntegration,
		CategoryDecision, CategoryNotification:
		return true
	}
	return false
}

func ParseTaskCategory(s string) (TaskCategory, error) {
	c := TaskCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown task category %q", s)
	}
	return c, nil
}
