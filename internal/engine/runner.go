package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// scheduler buffers ready instance ids between the public operations and the
// feeder goroutine. The wake channel has capacity one and is written with a
// non-blocking send; a burst of enqueues collapses into a single nudge.
type scheduler struct {
	mu   sync.Mutex
	ids  []string
	wake chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{wake: make(chan struct{}, 1)}
}

func (s *scheduler) Enqueue(id string) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *scheduler) pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "", false
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, true
}

// feed moves ready ids into the bounded run queue for the workers.
func (o *Orchestrator) feed(ctx context.Context) {
	defer o.wg.Done()
	for {
		id, ok := o.ready.pop()
		if !ok {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "Scheduler stopping due to context cancel")
				return
			case <-o.ready.wake:
				continue
			}
		}
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Scheduler stopping due to context cancel")
			return
		case o.runq <- id:
		}
	}
}

// worker drives one instance at a time through its step loop.
func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case processID := <-o.runq:
			slog.Info("Worker starting process", "worker_id", id, "process_id", processID)
			o.runProcess(ctx, processID, strconv.Itoa(id))
			slog.Info("Worker finished process", "worker_id", id, "process_id", processID)
		}
	}
}

// runProcess advances one instance task by task until it completes, fails,
// suspends for an approval or gets cancelled. An instance is only ever
// driven by one worker at a time: it leaves the ready queue when a worker
// picks it up and is re-enqueued only by an approval decision.
func (o *Orchestrator) runProcess(ctx context.Context, id string, workerID string) {
	p := o.getProcess(id)
	if p == nil {
		slog.Error("Process missing from store", "process_id", id, "worker_id", workerID)
		return
	}
	rw := o.definition(p.inst.WorkflowName)
	if rw == nil {
		slog.Error("Definition missing for process", "process_id", id, "workflow", p.inst.WorkflowName, "worker_id", workerID)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	switch p.inst.Status {
	case models.StatusPending:
		p.inst.Status = models.StatusRunning
		p.inst.Started = o.clock.Now()
	case models.StatusRunning:
		// resumed after an approval decision
	default:
		p.mu.Unlock()
		return
	}
	p.cancelRun = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cancelRun = nil
		p.mu.Unlock()
	}()

	for {
		p.mu.Lock()
		if p.inst.Status != models.StatusRunning {
			p.mu.Unlock()
			return
		}

		task, res := NextTask(rw.order, rw.tasks, p.inst.CompletedSet(), p.inst.FailedSet())
		switch res {
		case ResolveAllDone:
			p.inst.Status = models.StatusCompleted
			p.inst.Finished = o.clock.Now()
			p.inst.CurrentTask = ""
			p.mu.Unlock()
			o.record(id, rw.def.Name, "", domain.EventCompleted, "All tasks completed")
			slog.InfoContext(ctx, "Process completed", "process_id", id, "worker_id", workerID)
			return

		case ResolveBlocked:
			if len(p.inst.PendingApprovals) > 0 {
				// parked; the approval decision re-enqueues the instance
				p.mu.Unlock()
				return
			}
			// unreachable for definitions that passed registration
			now := o.clock.Now()
			p.inst.Status = models.StatusFailed
			p.inst.Finished = now
			p.inst.Failure = &models.TaskFailure{Reason: "unsatisfiable dependencies", At: now}
			p.inst.CurrentTask = ""
			p.mu.Unlock()
			o.record(id, rw.def.Name, "", domain.EventFailed, "Unsatisfiable dependencies")
			slog.ErrorContext(ctx, "Process blocked with no pending approvals", "process_id", id, "worker_id", workerID)
			return
		}

		if task.Category == models.CategoryHumanApproval {
			// the request is created and the status flipped under one lock
			// hold so a decision can never observe the gap between them
			p.inst.CurrentTask = task.ID
			outcome := o.dispatcher.Execute(runCtx, id, rw.def.Name, task, rw.caps, nil)
			if outcome.Kind != models.OutcomeSuspended {
				now := o.clock.Now()
				p.inst.Failed = append(p.inst.Failed, task.ID)
				p.inst.Failure = &models.TaskFailure{TaskID: task.ID, Reason: outcome.Reason, At: now}
				p.inst.Status = models.StatusFailed
				p.inst.Finished = now
				p.inst.CurrentTask = ""
				p.mu.Unlock()
				o.record(id, rw.def.Name, task.ID, domain.EventTaskFailed, outcome.Reason)
				o.record(id, rw.def.Name, "", domain.EventFailed, "Task "+task.ID+" failed")
				slog.ErrorContext(ctx, "Approval task failed to enqueue", "process_id", id, "task_id", task.ID, "worker_id", workerID)
				return
			}
			p.inst.PendingApprovals = append(p.inst.PendingApprovals, outcome.ApprovalID)
			p.inst.Status = models.StatusWaitingApproval
			p.mu.Unlock()
			o.record(id, rw.def.Name, task.ID, domain.EventDispatch, "Dispatching HumanApproval task")
			o.record(id, rw.def.Name, task.ID, domain.EventApprovalRequested, "Approval "+outcome.ApprovalID+" for role "+task.ApproverRole)
			o.record(id, rw.def.Name, task.ID, domain.EventSuspended, "Waiting for approval")
			slog.InfoContext(ctx, "Process suspended for approval", "process_id", id, "task_id", task.ID,
				"approval_id", outcome.ApprovalID, "approver_role", task.ApproverRole, "worker_id", workerID)
			return
		}

		p.inst.CurrentTask = task.ID
		data := p.inst.DataCopy()
		p.mu.Unlock()

		o.record(id, rw.def.Name, task.ID, domain.EventDispatch, "Dispatching "+string(task.Category)+" task")
		slog.InfoContext(ctx, "Dispatching task", "process_id", id, "task_id", task.ID, "category", task.Category, "worker_id", workerID)
		outcome := o.dispatcher.Execute(runCtx, id, rw.def.Name, task, rw.caps, data)

		p.mu.Lock()
		if p.inst.Status != models.StatusRunning {
			// cancelled while the task ran; the outcome is void
			p.mu.Unlock()
			return
		}
		switch outcome.Kind {
		case models.OutcomeSuccess:
			for k, v := range outcome.Updates {
				p.inst.Data[k] = v
			}
			p.inst.Completed = append(p.inst.Completed, task.ID)
			p.inst.CurrentTask = ""
			p.mu.Unlock()
			o.record(id, rw.def.Name, task.ID, domain.EventTaskDone, "Task completed")
			slog.InfoContext(ctx, "Task completed", "process_id", id, "task_id", task.ID, "worker_id", workerID)

		case models.OutcomeFailure:
			now := o.clock.Now()
			p.inst.Failed = append(p.inst.Failed, task.ID)
			p.inst.Failure = &models.TaskFailure{TaskID: task.ID, Reason: outcome.Reason, At: now}
			p.inst.Status = models.StatusFailed
			p.inst.Finished = now
			p.inst.CurrentTask = ""
			p.mu.Unlock()
			o.record(id, rw.def.Name, task.ID, domain.EventTaskFailed, outcome.Reason)
			o.record(id, rw.def.Name, "", domain.EventFailed, "Task "+task.ID+" failed")
			slog.ErrorContext(ctx, "Task failed", "process_id", id, "task_id", task.ID, "reason", outcome.Reason, "worker_id", workerID)
			return

		default:
			// non-approval strategies never suspend
			p.mu.Unlock()
			slog.ErrorContext(ctx, "Unexpected outcome kind", "process_id", id, "task_id", task.ID, "kind", outcome.Kind, "worker_id", workerID)
			return
		}
	}
}
