package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// Dispatcher turns one task descriptor into one TaskOutcome. The category
// set is closed; every branch either returns an outcome or degrades to
// Failure, so the step loop never sees an error escape a task.
type Dispatcher struct {
	queue       *ApprovalQueue
	taskTimeout time.Duration // bound when the descriptor declares none
	approvalTTL time.Duration // approval expiry when the descriptor declares none
}

func NewDispatcher(queue *ApprovalQueue, taskTimeout, approvalTTL time.Duration) *Dispatcher {
	return &Dispatcher{queue: queue, taskTimeout: taskTimeout, approvalTTL: approvalTTL}
}

// Execute runs a single task against a copy of the instance data. It never
// blocks waiting for a human: HumanApproval enqueues a request and returns
// Suspended immediately. Panics inside collaborator code are recovered and
// reported as task failure.
func (d *Dispatcher) Execute(ctx context.Context, processID, workflowName string, task domain.TaskDescriptor, caps core.Capabilities, data map[string]any) (outcome models.TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic in task", "process_id", processID, "task_id", task.ID, "panic", r)
			outcome = models.Failure(fmt.Sprintf("panic in task %s: %v", task.ID, r))
		}
	}()

	switch task.Category {
	case models.CategoryAutomated:
		fn, ok := caps.Automation(task.HandlerName())
		if !ok {
			return models.Failure(fmt.Sprintf("no automation registered for handler %q", task.HandlerName()))
		}
		runCtx, cancel, bound := d.boundContext(ctx, task)
		defer cancel()
		updates, err := fn.Run(runCtx, data)
		if err != nil {
			return models.Failure(d.describe(task, err, bound))
		}
		return models.Success(updates)

	case models.CategoryHumanApproval:
		ttl := task.Timeout
		if ttl <= 0 {
			ttl = d.approvalTTL
		}
		req := d.queue.Request(processID, workflowName, task.ID, task.ApproverRole, ttl)
		return models.Suspended(req.ID)

	case models.CategorySystemIntegration:
		in, ok := caps.Integration(task.HandlerName())
		if !ok {
			return models.Failure(fmt.Sprintf("no integration registered for handler %q", task.HandlerName()))
		}
		runCtx, cancel, bound := d.boundContext(ctx, task)
		defer cancel()
		resp, err := in.Invoke(runCtx, data)
		if err != nil {
			return models.Failure(d.describe(task, err, bound))
		}
		return models.Success(resp)

	case models.CategoryDecision:
		sc, ok := caps.Scorer(task.HandlerName())
		if !ok {
			return models.Failure(fmt.Sprintf("no scorer registered for handler %q", task.HandlerName()))
		}
		runCtx, cancel, bound := d.boundContext(ctx, task)
		defer cancel()
		result, err := sc.Score(runCtx, data)
		if err != nil {
			return models.Failure(d.describe(task, err, bound))
		}
		// advisory only: the result lands in the data map, control flow stays linear
		return models.Success(map[string]any{task.ResultKeyName(): result})

	case models.CategoryNotification:
		snd, ok := caps.Sender(task.HandlerName())
		if !ok {
			return models.Failure(fmt.Sprintf("no sender registered for handler %q", task.HandlerName()))
		}
		recipient, _ := data[task.RecipientKeyName()].(string)
		if recipient == "" {
			return models.Failure(fmt.Sprintf("no recipient under data key %q", task.RecipientKeyName()))
		}
		runCtx, cancel, bound := d.boundContext(ctx, task)
		defer cancel()
		if err := snd.Send(runCtx, recipient, data); err != nil {
			return models.Failure(d.describe(task, err, bound))
		}
		return models.Success(nil)
	}

	// categories are validated at registration; this is belt for bad callers
	return models.Failure(fmt.Sprintf("unknown task category %q", task.Category))
}

func (d *Dispatcher) boundContext(ctx context.Context, task domain.TaskDescriptor) (context.Context, context.CancelFunc, time.Duration) {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = d.taskTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	return runCtx, cancel, timeout
}

func (d *Dispatcher) describe(task domain.TaskDescriptor, err error, bound time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("task %s timed out after %s", task.ID, bound)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("task %s aborted: %v", task.ID, err)
	}
	return err.Error()
}
