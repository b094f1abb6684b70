package engine

import (
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
)

type resolution int

const (
	// ResolveEligible means a task is ready to dispatch.
	ResolveEligible resolution = iota
	// ResolveBlocked means tasks remain but none has all dependencies met.
	ResolveBlocked
	// ResolveAllDone means every task of the definition has completed.
	ResolveAllDone
)

// NextTask picks the next dispatchable task: the first id in order that is
// neither completed nor failed and whose every dependency is completed.
// Pure over its inputs; for a fixed instance state the answer never changes.
func NextTask(order []string, tasks map[string]domain.TaskDescriptor, completed, failed map[string]struct{}) (domain.TaskDescriptor, resolution) {
	remaining := false
	for _, id := range order {
		if _, done := completed[id]; done {
			continue
		}
		remaining = true
		if _, bad := failed[id]; bad {
			continue
		}
		eligible := true
		for _, dep := range tasks[id].DependsOn {
			if _, done := completed[dep]; !done {
				eligible = false
				break
			}
		}
		if eligible {
			return tasks[id], ResolveEligible
		}
	}
	if !remaining {
		return domain.TaskDescriptor{}, ResolveAllDone
	}
	return domain.TaskDescriptor{}, ResolveBlocked
}
