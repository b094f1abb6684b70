package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

const (
	DefaultWorkers       = 5
	DefaultQueueSize     = 5
	DefaultTaskTimeout   = 30 * time.Second
	DefaultApprovalTTL   = 24 * time.Hour
	DefaultSweepInterval = 60 * time.Second
)

// Options tunes one engine. Zero values fall back to the defaults above.
type Options struct {
	Workers       int           // parallel step-loop workers
	QueueSize     int           // ready-queue buffer between scheduler and workers
	TaskTimeout   time.Duration // dispatch bound for tasks without their own
	ApprovalTTL   time.Duration // expiry for approval tasks without their own
	SweepInterval time.Duration // cadence of the approval expiry sweeper
	Clock         core.Clock
	Journal       Journal
}

func (op Options) normalized() Options {
	if op.Workers <= 0 {
		op.Workers = DefaultWorkers
	}
	if op.QueueSize <= 0 {
		op.QueueSize = DefaultQueueSize
	}
	if op.TaskTimeout <= 0 {
		op.TaskTimeout = DefaultTaskTimeout
	}
	if op.ApprovalTTL <= 0 {
		op.ApprovalTTL = DefaultApprovalTTL
	}
	if op.SweepInterval <= 0 {
		op.SweepInterval = DefaultSweepInterval
	}
	if op.Clock == nil {
		op.Clock = core.NewRealClock()
	}
	if op.Journal == nil {
		op.Journal = nopJournal{}
	}
	return op
}

// process wraps one instance with its synchronization: the mutex guards the
// record, cancelRun aborts an in-flight dispatch on cancellation.
type process struct {
	mu        sync.Mutex
	inst      domain.ProcessInstance
	cancelRun context.CancelFunc
}

// Orchestrator drives process instances through their workflows. All state
// is engine-scoped: two orchestrators in one process share nothing.
type Orchestrator struct {
	opts       Options
	clock      core.Clock
	journal    Journal
	approvals  *ApprovalQueue
	dispatcher *Dispatcher

	mu          sync.RWMutex
	definitions map[string]*registeredWorkflow
	processes   map[string]*process

	ready  *scheduler
	runq   chan string
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewOrchestrator(opts Options) *Orchestrator {
	opts = opts.normalized()
	queue := NewApprovalQueue(opts.Clock)
	return &Orchestrator{
		opts:        opts,
		clock:       opts.Clock,
		journal:     opts.Journal,
		approvals:   queue,
		dispatcher:  NewDispatcher(queue, opts.TaskTimeout, opts.ApprovalTTL),
		definitions: make(map[string]*registeredWorkflow),
		processes:   make(map[string]*process),
		ready:       newScheduler(),
	}
}

// Start launches the scheduler, the worker pool and the approval sweeper.
// Instances enqueued before Start sit in the ready queue until a worker
// comes up.
func (o *Orchestrator) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.runq = make(chan string, o.opts.QueueSize)

	slog.Info("Starting orchestrator", "workers", o.opts.Workers, "queue_size", o.opts.QueueSize)
	for i := 0; i < o.opts.Workers; i++ {
		o.wg.Add(1)
		go o.worker(runCtx, i)
	}
	o.wg.Add(1)
	go o.feed(runCtx)
	o.wg.Add(1)
	go o.sweepLoop(runCtx)
	slog.Info("Orchestrator started", "sweep_interval", o.opts.SweepInterval.String())
}

// Stop cancels the run context and waits for workers to drain.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	slog.Info("Orchestrator stopped")
}

// StartProcess creates an instance of a registered workflow and hands it to
// the scheduler. The returned id is immediately queryable via GetStatus.
func (o *Orchestrator) StartProcess(workflowName string, initialData map[string]any) (string, error) {
	rw := o.definition(workflowName)
	if rw == nil {
		return "", core.NewNotFoundError(core.KindWorkflow, workflowName)
	}

	data := make(map[string]any, len(initialData))
	for k, v := range initialData {
		data[k] = v
	}
	p := &process{inst: domain.ProcessInstance{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		Status:       models.StatusPending,
		Data:         data,
		Created:      o.clock.Now(),
	}}

	o.mu.Lock()
	o.processes[p.inst.ID] = p
	o.mu.Unlock()

	o.record(p.inst.ID, workflowName, "", domain.EventStarted, "Accepted for execution")
	slog.Info("Process accepted", "process_id", p.inst.ID, "workflow", workflowName)
	o.ready.Enqueue(p.inst.ID)
	return p.inst.ID, nil
}

// GetStatus returns the externally observable state of one instance.
func (o *Orchestrator) GetStatus(processID string) (models.ProcessSnapshot, error) {
	p := o.getProcess(processID)
	if p == nil {
		return models.ProcessSnapshot{}, core.NewNotFoundError(core.KindProcess, processID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inst.Snapshot(), nil
}

// DecideApproval resolves a pending approval request. Approval completes the
// suspended task and re-enqueues the instance; rejection fails it.
func (o *Orchestrator) DecideApproval(approvalID string, approved bool) error {
	req, err := o.approvals.Decide(approvalID, approved)
	if err != nil {
		return err
	}

	p := o.getProcess(req.ProcessID)
	if p == nil {
		return core.NewNotFoundError(core.KindProcess, req.ProcessID)
	}

	decision := "rejected"
	if approved {
		decision = "approved"
	}
	o.record(req.ProcessID, req.WorkflowName, req.TaskID, domain.EventApprovalDecided, "Approval "+req.ID+" "+decision)

	p.mu.Lock()
	p.inst.PendingApprovals = removeString(p.inst.PendingApprovals, req.ID)
	if p.inst.Status != models.StatusWaitingApproval {
		// lost a race with cancellation or expiry; nothing left to apply
		p.mu.Unlock()
		return nil
	}
	if approved {
		p.inst.Completed = append(p.inst.Completed, req.TaskID)
		p.inst.CurrentTask = ""
		p.inst.Status = models.StatusRunning
		p.mu.Unlock()
		o.record(req.ProcessID, req.WorkflowName, req.TaskID, domain.EventResumed, "Resumed after approval")
		slog.Info("Approval granted, process resuming", "approval_id", req.ID, "process_id", req.ProcessID, "task_id", req.TaskID)
		o.ready.Enqueue(req.ProcessID)
		return nil
	}

	now := o.clock.Now()
	p.inst.Failed = append(p.inst.Failed, req.TaskID)
	p.inst.Failure = &models.TaskFailure{TaskID: req.TaskID, Reason: "approval rejected", At: now}
	p.inst.Status = models.StatusFailed
	p.inst.Finished = now
	p.inst.CurrentTask = ""
	p.mu.Unlock()
	o.record(req.ProcessID, req.WorkflowName, req.TaskID, domain.EventFailed, "Approval rejected")
	slog.Info("Approval rejected, process failed", "approval_id", req.ID, "process_id", req.ProcessID, "task_id", req.TaskID)
	return nil
}

// CancelProcess moves a non-terminal instance to Cancelled, aborts any task
// in flight and withdraws its pending approval requests. Cancelling an
// already terminal instance is a no-op.
func (o *Orchestrator) CancelProcess(processID string) error {
	p := o.getProcess(processID)
	if p == nil {
		return core.NewNotFoundError(core.KindProcess, processID)
	}

	p.mu.Lock()
	if p.inst.Status.Terminal() {
		p.mu.Unlock()
		return nil
	}
	p.inst.Status = models.StatusCancelled
	p.inst.Finished = o.clock.Now()
	p.inst.CurrentTask = ""
	p.inst.PendingApprovals = nil
	abort := p.cancelRun
	workflow := p.inst.WorkflowName
	p.mu.Unlock()

	if abort != nil {
		abort()
	}
	removed := o.approvals.CancelProcess(processID)
	o.record(processID, workflow, "", domain.EventCancelled, "Cancelled by caller")
	slog.Info("Process cancelled", "process_id", processID, "approvals_withdrawn", len(removed))
	return nil
}

// SearchProcesses lists instance snapshots, newest first, filtered by the
// request. A zero limit returns everything.
func (o *Orchestrator) SearchProcesses(req models.SearchProcessRequest) []models.ProcessSnapshot {
	o.mu.RLock()
	all := make([]*process, 0, len(o.processes))
	for _, p := range o.processes {
		all = append(all, p)
	}
	o.mu.RUnlock()

	snaps := make([]models.ProcessSnapshot, 0, len(all))
	for _, p := range all {
		p.mu.Lock()
		snap := p.inst.Snapshot()
		p.mu.Unlock()
		if req.Workflow != "" && snap.Workflow != req.Workflow {
			continue
		}
		if req.Status != "" && snap.Status != req.Status {
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Created.After(snaps[j].Created) })
	if req.Limit > 0 && len(snaps) > req.Limit {
		snaps = snaps[:req.Limit]
	}
	return snaps
}

// PendingApprovals lists undecided approval requests, oldest first. An empty
// role matches every role.
func (o *Orchestrator) PendingApprovals(approverRole string) []models.ApprovalSnapshot {
	reqs := o.approvals.Pending(approverRole)
	out := make([]models.ApprovalSnapshot, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, models.ApprovalSnapshot{
			ID:           r.ID,
			ProcessID:    r.ProcessID,
			Workflow:     r.WorkflowName,
			TaskID:       r.TaskID,
			ApproverRole: r.ApproverRole,
			Created:      r.Created,
			Expires:      r.Expires,
		})
	}
	return out
}

// ListWorkflowDefinitions summarizes the registered definitions for web/API
// layers, sorted by name.
func (o *Orchestrator) ListWorkflowDefinitions() []models.DefinitionSummary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.DefinitionSummary, 0, len(o.definitions))
	for _, rw := range o.definitions {
		out = append(out, models.DefinitionSummary{
			Name:        rw.def.Name,
			Description: rw.def.Description,
			TaskCount:   len(rw.def.Tasks),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetWorkflowDefinitionByName renders the full detail of one definition,
// flowchart included.
func (o *Orchestrator) GetWorkflowDefinitionByName(name string) (models.DefinitionDetail, error) {
	rw := o.definition(name)
	if rw == nil {
		return models.DefinitionDetail{}, core.NewNotFoundError(core.KindWorkflow, name)
	}
	detail := models.DefinitionDetail{
		Name:        rw.def.Name,
		Description: rw.def.Description,
		Order:       append([]string(nil), rw.order...),
		FlowChart:   buildFlowChart(rw),
	}
	for _, id := range rw.order {
		t := rw.tasks[id]
		info := models.TaskInfo{
			ID:           t.ID,
			Category:     t.Category,
			DependsOn:    append([]string(nil), t.DependsOn...),
			RetryBudget:  t.RetryBudget,
			Handler:      t.Handler,
			ApproverRole: t.ApproverRole,
		}
		if t.Timeout > 0 {
			info.Timeout = t.Timeout.String()
		}
		detail.Tasks = append(detail.Tasks, info)
	}
	return detail, nil
}

// sweepLoop periodically rejects approval requests whose TTL has passed.
func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Approval sweeper stopping due to context cancel")
			return
		case <-ticker.C:
			o.sweepApprovals()
		}
	}
}

// sweepApprovals fails every instance whose approval expired. Expiry counts
// as an implicit rejection.
func (o *Orchestrator) sweepApprovals() {
	expired := o.approvals.SweepExpired(o.clock.Now())
	for _, req := range expired {
		slog.Warn("Approval request expired", "approval_id", req.ID, "process_id", req.ProcessID, "task_id", req.TaskID)
		o.record(req.ProcessID, req.WorkflowName, req.TaskID, domain.EventApprovalExpired, "Approval "+req.ID+" expired")

		p := o.getProcess(req.ProcessID)
		if p == nil {
			continue
		}
		p.mu.Lock()
		p.inst.PendingApprovals = removeString(p.inst.PendingApprovals, req.ID)
		if p.inst.Status != models.StatusWaitingApproval {
			p.mu.Unlock()
			continue
		}
		now := o.clock.Now()
		p.inst.Failed = append(p.inst.Failed, req.TaskID)
		p.inst.Failure = &models.TaskFailure{TaskID: req.TaskID, Reason: "approval expired", At: now}
		p.inst.Status = models.StatusFailed
		p.inst.Finished = now
		p.inst.CurrentTask = ""
		p.mu.Unlock()
		o.record(req.ProcessID, req.WorkflowName, req.TaskID, domain.EventFailed, "Approval expired")
	}
}

func (o *Orchestrator) getProcess(id string) *process {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.processes[id]
}

func (o *Orchestrator) record(processID, workflow, taskID, eventType, detail string) {
	_ = o.journal.Record(&domain.ProcessEvent{
		ProcessID: processID,
		Workflow:  workflow,
		TaskID:    taskID,
		Type:      eventType,
		Detail:    detail,
		Created:   o.clock.Now(),
	})
}

func removeString(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

type nopJournal struct{}

func (nopJournal) Record(*domain.ProcessEvent) error { return nil }
func (nopJournal) Close() error                      { return nil }
