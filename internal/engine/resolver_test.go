package engine

import (
	"testing"

	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

func chainTasks() ([]string, map[string]domain.TaskDescriptor) {
	order := []string{"fetch", "transform", "store"}
	tasks := map[string]domain.TaskDescriptor{
		"fetch":     {ID: "fetch", Category: models.CategoryAutomated},
		"transform": {ID: "transform", Category: models.CategoryAutomated, DependsOn: []string{"fetch"}},
		"store":     {ID: "store", Category: models.CategoryAutomated, DependsOn: []string{"transform"}},
	}
	return order, tasks
}

func set(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestNextTask_FirstTaskWhenNothingDone(t *testing.T) {
	order, tasks := chainTasks()

	task, res := NextTask(order, tasks, set(), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "fetch" {
		t.Errorf("Expected task fetch, got %s", task.ID)
	}
}

func TestNextTask_DependencyGatesDispatch(t *testing.T) {
	order, tasks := chainTasks()

	task, res := NextTask(order, tasks, set("fetch"), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "transform" {
		t.Errorf("Expected task transform, got %s", task.ID)
	}
}

func TestNextTask_AllDone(t *testing.T) {
	order, tasks := chainTasks()

	_, res := NextTask(order, tasks, set("fetch", "transform", "store"), set())
	if res != ResolveAllDone {
		t.Errorf("Expected ResolveAllDone, got %v", res)
	}
}

func TestNextTask_FailedTaskStillCountsAsRemaining(t *testing.T) {
	order, tasks := chainTasks()

	// fetch failed: transform can never become eligible, but the run is
	// not "all done" either
	_, res := NextTask(order, tasks, set(), set("fetch"))
	if res != ResolveBlocked {
		t.Errorf("Expected ResolveBlocked, got %v", res)
	}
}

func TestNextTask_FailedTaskIsNeverRedispatched(t *testing.T) {
	order := []string{"a", "b"}
	tasks := map[string]domain.TaskDescriptor{
		"a": {ID: "a", Category: models.CategoryAutomated},
		"b": {ID: "b", Category: models.CategoryAutomated},
	}

	task, res := NextTask(order, tasks, set(), set("a"))
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "b" {
		t.Errorf("Expected task b, got %s", task.ID)
	}
}

func TestNextTask_PicksFirstEligibleInOrder(t *testing.T) {
	// diamond: left and right both depend on root, both become eligible
	// together; order decides
	order := []string{"root", "left", "right", "join"}
	tasks := map[string]domain.TaskDescriptor{
		"root":  {ID: "root", Category: models.CategoryAutomated},
		"left":  {ID: "left", Category: models.CategoryAutomated, DependsOn: []string{"root"}},
		"right": {ID: "right", Category: models.CategoryAutomated, DependsOn: []string{"root"}},
		"join":  {ID: "join", Category: models.CategoryAutomated, DependsOn: []string{"left", "right"}},
	}

	task, res := NextTask(order, tasks, set("root"), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "left" {
		t.Errorf("Expected task left, got %s", task.ID)
	}

	task, res = NextTask(order, tasks, set("root", "left"), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "right" {
		t.Errorf("Expected task right, got %s", task.ID)
	}
}

func TestNextTask_MultiDependencyNeedsAllCompleted(t *testing.T) {
	order := []string{"a", "b", "join"}
	tasks := map[string]domain.TaskDescriptor{
		"a":    {ID: "a", Category: models.CategoryAutomated},
		"b":    {ID: "b", Category: models.CategoryAutomated},
		"join": {ID: "join", Category: models.CategoryAutomated, DependsOn: []string{"a", "b"}},
	}

	task, res := NextTask(order, tasks, set("a"), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "b" {
		t.Errorf("Expected task b before join, got %s", task.ID)
	}

	task, res = NextTask(order, tasks, set("a", "b"), set())
	if res != ResolveEligible {
		t.Fatalf("Expected ResolveEligible, got %v", res)
	}
	if task.ID != "join" {
		t.Errorf("Expected task join, got %s", task.ID)
	}
}

func TestNextTask_IsPureOverItsInputs(t *testing.T) {
	order, tasks := chainTasks()
	completed := set("fetch")

	first, res1 := NextTask(order, tasks, completed, set())
	second, res2 := NextTask(order, tasks, completed, set())
	if res1 != res2 || first.ID != second.ID {
		t.Errorf("Expected identical resolution on identical state, got %s/%v then %s/%v",
			first.ID, res1, second.ID, res2)
	}
}
