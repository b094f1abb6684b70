package engine

import (
	"fmt"
	"log/slog"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// registeredWorkflow is a validated definition plus everything derived from
// it at registration time: the resolved topological order, a task index and
// the capability set its tasks bind to.
type registeredWorkflow struct {
	def   domain.WorkflowDefinition
	order []string
	tasks map[string]domain.TaskDescriptor
	caps  core.Capabilities
}

// RegisterWorkflow validates a definition and stores it with its capability
// set. Definitions are immutable once registered. Every failure here is a
// ConfigError; a definition that registers cleanly can never block at run
// time for structural reasons.
func (o *Orchestrator) RegisterWorkflow(def domain.WorkflowDefinition, caps core.Capabilities) error {
	if def.Name == "" {
		return core.NewConfigError(def.Name, "workflow name is required")
	}
	if len(def.Tasks) == 0 {
		return core.NewConfigError(def.Name, "workflow has no tasks")
	}

	tasks := make(map[string]domain.TaskDescriptor, len(def.Tasks))
	for _, t := range def.Tasks {
		if t.ID == "" {
			return core.NewConfigError(def.Name, "task with empty id")
		}
		if _, dup := tasks[t.ID]; dup {
			return core.NewConfigError(def.Name, "duplicate task id %q", t.ID)
		}
		if !t.Category.Valid() {
			return core.NewConfigError(def.Name, "task %q has unknown category %q", t.ID, t.Category)
		}
		tasks[t.ID] = t
	}
	for _, t := range def.Tasks {
		for _, dep := range t.DependsOn {
			if _, known := tasks[dep]; !known {
				return core.NewConfigError(def.Name, "task %q depends on unknown task %q", t.ID, dep)
			}
		}
		if err := o.validateBinding(def.Name, t, caps); err != nil {
			return err
		}
	}

	order := def.Order
	if len(order) == 0 {
		derived, err := topoOrder(def.Name, def.Tasks)
		if err != nil {
			return err
		}
		order = derived
	} else if err := validateExplicitOrder(def.Name, order, tasks); err != nil {
		return err
	}

	o.mu.Lock()
	if _, exists := o.definitions[def.Name]; exists {
		o.mu.Unlock()
		return core.NewConfigError(def.Name, "workflow already registered")
	}
	o.definitions[def.Name] = &registeredWorkflow{def: def, order: order, tasks: tasks, caps: caps}
	o.mu.Unlock()

	o.record("", def.Name, "", domain.EventRegistered, fmt.Sprintf("Registered with %d tasks", len(def.Tasks)))
	slog.Info("Registered workflow definition", "name", def.Name, "tasks", len(def.Tasks))
	return nil
}

func (o *Orchestrator) validateBinding(workflow string, t domain.TaskDescriptor, caps core.Capabilities) error {
	switch t.Category {
	case models.CategoryAutomated:
		if _, ok := caps.Automation(t.HandlerName()); !ok {
			return core.NewConfigError(workflow, "task %q binds to unknown automation %q", t.ID, t.HandlerName())
		}
	case models.CategoryHumanApproval:
		if t.ApproverRole == "" {
			return core.NewConfigError(workflow, "approval task %q has no approver role", t.ID)
		}
	case models.CategorySystemIntegration:
		if _, ok := caps.Integration(t.HandlerName()); !ok {
			return core.NewConfigError(workflow, "task %q binds to unknown integration %q", t.ID, t.HandlerName())
		}
	case models.CategoryDecision:
		if _, ok := caps.Scorer(t.HandlerName()); !ok {
			return core.NewConfigError(workflow, "task %q binds to unknown scorer %q", t.ID, t.HandlerName())
		}
	case models.CategoryNotification:
		if _, ok := caps.Sender(t.HandlerName()); !ok {
			return core.NewConfigError(workflow, "task %q binds to unknown sender %q", t.ID, t.HandlerName())
		}
	}
	return nil
}

// topoOrder derives a deterministic topological order: repeatedly emit the
// first task in declaration order whose remaining dependency count is zero.
// Anything left over sits on a cycle.
func topoOrder(workflow string, declared []domain.TaskDescriptor) ([]string, error) {
	indeg := make(map[string]int, len(declared))
	for _, t := range declared {
		deps := make(map[string]struct{}, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			deps[dep] = struct{}{}
		}
		indeg[t.ID] = len(deps)
	}

	order := make([]string, 0, len(declared))
	emitted := make(map[string]struct{}, len(declared))
	for len(order) < len(declared) {
		progressed := false
		for _, t := range declared {
			if _, done := emitted[t.ID]; done {
				continue
			}
			if indeg[t.ID] != 0 {
				continue
			}
			order = append(order, t.ID)
			emitted[t.ID] = struct{}{}
			for _, u := range declared {
				if _, done := emitted[u.ID]; done {
					continue
				}
				for _, dep := range u.DependsOn {
					if dep == t.ID {
						indeg[u.ID]--
						break
					}
				}
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, t := range declared {
				if _, done := emitted[t.ID]; !done {
					stuck = append(stuck, t.ID)
				}
			}
			return nil, core.NewConfigError(workflow, "dependency cycle involving tasks %v", stuck)
		}
	}
	return order, nil
}

// validateExplicitOrder checks a caller-supplied order: a permutation of the
// task ids where every dependency appears before its dependant.
func validateExplicitOrder(workflow string, order []string, tasks map[string]domain.TaskDescriptor) error {
	if len(order) != len(tasks) {
		return core.NewConfigError(workflow, "order lists %d tasks, definition has %d", len(order), len(tasks))
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, known := tasks[id]; !known {
			return core.NewConfigError(workflow, "order references unknown task %q", id)
		}
		if _, dup := pos[id]; dup {
			return core.NewConfigError(workflow, "order lists task %q twice", id)
		}
		pos[id] = i
	}
	for id, t := range tasks {
		for _, dep := range t.DependsOn {
			if pos[dep] > pos[id] {
				return core.NewConfigError(workflow, "order places %q before its dependency %q", id, dep)
			}
		}
	}
	return nil
}

// definition looks up a registered workflow by name.
func (o *Orchestrator) definition(name string) *registeredWorkflow {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.definitions[name]
}
