package stagehand

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tmandere/stagehand/internal/config"
	"github.com/tmandere/stagehand/internal/controllers"
	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/internal/journal"
	"github.com/tmandere/stagehand/internal/web"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"

	"github.com/lmittmann/tint"
)

// Journal receives the append-only event stream of every process instance.
// The engine only ever writes to it; nothing in the run path reads it back.
type Journal interface {
	Record(ev *domain.ProcessEvent) error
	Close() error
}

// Supported journal database types for OpenSQLJournal.
const (
	JournalPostgres = journal.DBTypePostgres
	JournalMySQL    = journal.DBTypeMySQL
	JournalSQLite   = journal.DBTypeSQLite
)

// Options tunes an embedded engine. Zero values fall back to engine defaults.
type Options struct {
	Workers       int
	QueueSize     int
	TaskTimeout   time.Duration
	ApprovalTTL   time.Duration
	SweepInterval time.Duration
	Clock         core.Clock
	Journal       Journal
}

// Registration couples a workflow definition with the capabilities its tasks
// bind to at registration time.
type Registration struct {
	Definition   domain.WorkflowDefinition
	Capabilities core.Capabilities
}

// Engine is the embeddable orchestrator. Every engine owns its own
// definitions, instances and approval queue; two engines in one process
// share nothing.
type Engine struct {
	orch *engine.Orchestrator
}

func New(opts Options) *Engine {
	return &Engine{orch: engine.NewOrchestrator(engine.Options{
		Workers:       opts.Workers,
		QueueSize:     opts.QueueSize,
		TaskTimeout:   opts.TaskTimeout,
		ApprovalTTL:   opts.ApprovalTTL,
		SweepInterval: opts.SweepInterval,
		Clock:         opts.Clock,
		Journal:       opts.Journal,
	})}
}

// RegisterWorkflow validates a definition and makes it startable. Invalid
// definitions are rejected with a core.ConfigError and nothing is stored.
func (e *Engine) RegisterWorkflow(def domain.WorkflowDefinition, caps core.Capabilities) error {
	return e.orch.RegisterWorkflow(def, caps)
}

// Start launches the engine's workers. It returns immediately; processes run
// until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.orch.Start(ctx)
}

// Stop halts the workers and waits for in-flight tasks to finish.
func (e *Engine) Stop() {
	e.orch.Stop()
}

// StartProcess creates a new instance of a registered workflow and schedules
// it for execution. A nil initialData starts the instance with an empty data
// map.
func (e *Engine) StartProcess(workflowName string, initialData map[string]any) (string, error) {
	return e.orch.StartProcess(workflowName, initialData)
}

// GetStatus reports the externally observable state of one instance.
func (e *Engine) GetStatus(processID string) (models.ProcessSnapshot, error) {
	return e.orch.GetStatus(processID)
}

// DecideApproval resolves a pending approval request. Approving completes
// the suspended task and resumes the instance; rejecting fails it.
func (e *Engine) DecideApproval(approvalID string, approved bool) error {
	return e.orch.DecideApproval(approvalID, approved)
}

// CancelProcess moves a non-terminal instance to Cancelled and withdraws its
// pending approvals. Cancelling a terminal instance is a no-op.
func (e *Engine) CancelProcess(processID string) error {
	return e.orch.CancelProcess(processID)
}

// SearchProcesses lists instance snapshots, newest first.
func (e *Engine) SearchProcesses(req models.SearchProcessRequest) []models.ProcessSnapshot {
	return e.orch.SearchProcesses(req)
}

// PendingApprovals lists undecided approval requests, oldest first. An empty
// role matches every role.
func (e *Engine) PendingApprovals(approverRole string) []models.ApprovalSnapshot {
	return e.orch.PendingApprovals(approverRole)
}

// ListWorkflowDefinitions summarizes the registered definitions.
func (e *Engine) ListWorkflowDefinitions() []models.DefinitionSummary {
	return e.orch.ListWorkflowDefinitions()
}

// GetWorkflowDefinitionByName renders one definition with task detail and a
// mermaid flowchart.
func (e *Engine) GetWorkflowDefinitionByName(name string) (models.DefinitionDetail, error) {
	return e.orch.GetWorkflowDefinitionByName(name)
}

// NewMemoryJournal returns an in-memory ring journal keeping the most recent
// limit events. A limit of zero or less uses the default capacity.
func NewMemoryJournal(limit int) Journal {
	return journal.NewRecorder(limit)
}

// OpenSQLJournal migrates and opens a SQL-backed journal. dbType is one of
// JournalPostgres, JournalMySQL or JournalSQLite.
func OpenSQLJournal(dbType, url string) (Journal, error) {
	return journal.Open(dbType, url)
}

// Start boots a hosted engine with the given workflow registrations plus the
// HTTP API and web pages, configured from SHAND_ environment variables.
// This call blocks until the server stops or a termination signal arrives.
func Start(mux *http.ServeMux, registrations ...Registration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, mux, registrations...)
}

// Run is Start without the signal handling: the hosted engine serves until
// ctx is cancelled, then shuts down in order (HTTP server, workers,
// journal).
func Run(ctx context.Context, mux *http.ServeMux, registrations ...Registration) error {
	jnl, err := openConfiguredJournal()
	if err != nil {
		slog.Error("Journal setup failed", "error", err)
		return err
	}

	eng := New(Options{
		Workers:       config.GetSystemSettingInteger(config.ENGINE_EXECUTOR_SIZE),
		QueueSize:     config.GetSystemSettingInteger(config.ENGINE_QUEUE_SIZE),
		TaskTimeout:   config.GetSystemSettingDuration(config.ENGINE_TASK_TIMEOUT),
		ApprovalTTL:   config.GetSystemSettingDuration(config.ENGINE_APPROVAL_TTL),
		SweepInterval: config.GetSystemSettingDuration(config.ENGINE_APPROVAL_SWEEP_INTERVAL),
		Journal:       jnl,
	})

	for _, reg := range registrations {
		if err := eng.RegisterWorkflow(reg.Definition, reg.Capabilities); err != nil {
			slog.Error("Workflow registration failed", "workflow", reg.Definition.Name, "error", err)
			return err
		}
	}

	eng.Start(ctx)

	if mux == nil {
		mux = http.NewServeMux()
	}
	processesController := controllers.NewProcessesController(eng.orch)
	processesController.RegisterRoutes(mux)
	approvalsController := controllers.NewApprovalsController(eng.orch)
	approvalsController.RegisterRoutes(mux)
	definitionsController := controllers.NewDefinitionsController(eng.orch)
	definitionsController.RegisterRoutes(mux)

	events, _ := jnl.(journal.Reader)
	webController := web.NewWebController(eng.orch, events)
	webController.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting HTTP server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("HTTP server failed", "error", err)
		eng.Stop()
		return err
	}

	eng.Stop()
	if err := jnl.Close(); err != nil {
		slog.Error("Journal close failed", "error", err)
	}
	return nil
}

func openConfiguredJournal() (Journal, error) {
	dbType := config.GetSystemSettingString(config.JOURNAL_DB_TYPE)
	switch dbType {
	case config.JOURNAL_TYPE_MEMORY:
		slog.Info("Using in-memory journal")
		return journal.NewRecorder(0), nil
	case config.JOURNAL_TYPE_SQLITE:
		file := config.GetSystemSettingString(config.JOURNAL_SQLITE_FILE_NAME)
		return journal.Open(journal.DBTypeSQLite, file)
	case config.JOURNAL_TYPE_POSTGRES:
		return journal.Open(journal.DBTypePostgres, config.GetSystemSettingString(config.JOURNAL_DB_URL))
	case config.JOURNAL_TYPE_MYSQL:
		return journal.Open(journal.DBTypeMySQL, config.GetSystemSettingString(config.JOURNAL_DB_URL))
	}
	return nil, fmt.Errorf("SHAND_JOURNAL_DB_TYPE must be set to one of the following values: MEMORY, SQLITE, POSTGRES, MYSQL")
}

func SetupLogger() {
	w := os.Stderr
	_ = slog.New(tint.NewHandler(w, nil))
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
