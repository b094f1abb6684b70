package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmandere/stagehand/internal/config"
	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/internal/journal"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

//go:embed templates
var templatesFS embed.FS

// WebController renders the operator pages: process list, process detail,
// approvals inbox, definitions and settings.
type WebController struct {
	engine *engine.Orchestrator
	events journal.Reader
}

func NewWebController(eng *engine.Orchestrator, events journal.Reader) *WebController {
	return &WebController{engine: eng, events: events}
}

type processRow struct {
	ID          string
	Workflow    string
	Status      string
	CurrentTask string
	Completed   int
	Failed      int
	Created     string
	StatusClass string
}

func (wc *WebController) handler(w http.ResponseWriter, r *http.Request) {
	snaps := wc.engine.SearchProcesses(models.SearchProcessRequest{Limit: 50})

	rows := make([]processRow, 0, len(snaps))
	var running, waiting, completed, failed int
	for _, s := range snaps {
		switch s.Status {
		case models.StatusRunning, models.StatusPending:
			running++
		case models.StatusWaitingApproval:
			waiting++
		case models.StatusCompleted:
			completed++
		case models.StatusFailed:
			failed++
		}
		rows = append(rows, processRow{
			ID:          s.ID,
			Workflow:    s.Workflow,
			Status:      string(s.Status),
			CurrentTask: s.CurrentTask,
			Completed:   s.CompletedCount,
			Failed:      s.FailedCount,
			Created:     s.Created.Local().Format("2006-01-02 15:04:05"),
			StatusClass: statusCssClass(s.Status),
		})
	}

	data := struct {
		Title       string
		CurrentPath string
		Processes   []processRow
		Running     int
		Waiting     int
		Completed   int
		Failed      int
		Pending     int
	}{
		Title:       "Dashboard",
		CurrentPath: r.URL.Path,
		Processes:   rows,
		Running:     running,
		Waiting:     waiting,
		Completed:   completed,
		Failed:      failed,
		Pending:     len(wc.engine.PendingApprovals("")),
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/home.html")
	if err != nil {
		slog.Error("Failed to parse template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := tmpl.ExecuteTemplate(w, "home", data); err != nil {
		slog.Error("Failed to execute template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (wc *WebController) processDetailsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	snap, err := wc.engine.GetStatus(id)
	if err != nil {
		slog.Error("Failed to get process", "process_id", id, "error", err)
		http.Error(w, "Process not found", http.StatusNotFound)
		return
	}

	formatTS := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	}

	type dataVar struct{ Key, Value string }
	dataVars := make([]dataVar, 0, len(snap.Data))
	for k, v := range snap.Data {
		dataVars = append(dataVars, dataVar{Key: k, Value: fmt.Sprintf("%v", v)})
	}

	type eventVM struct {
		Type     string
		TaskID   string
		Detail   string
		DateTime string
	}
	eventRows := make([]eventVM, 0)
	if wc.events != nil {
		events, err := wc.events.EventsByProcess(id, 100)
		if err != nil {
			slog.Warn("Failed to load process events", "process_id", id, "error", err)
		}
		for _, ev := range events {
			eventRows = append(eventRows, eventVM{
				Type:     ev.Type,
				TaskID:   ev.TaskID,
				Detail:   ev.Detail,
				DateTime: ev.Created.Local().Format("2006-01-02 15:04:05"),
			})
		}
	}

	var failureReason string
	if snap.Failure != nil {
		failureReason = fmt.Sprintf("%s: %s", snap.Failure.TaskID, snap.Failure.Reason)
	}

	data := struct {
		Title       string
		CurrentPath string
		ID          string
		Workflow    string
		Status      string
		StatusClass string
		CurrentTask string
		Completed   []string
		Failed      []string
		Approvals   []string
		Failure     string
		DataVars    []dataVar
		Events      []eventVM
		Created     string
		Started     string
		Finished    string
		Cancellable bool
	}{
		Title:       "Process " + snap.ID,
		CurrentPath: r.URL.Path,
		ID:          snap.ID,
		Workflow:    snap.Workflow,
		Status:      string(snap.Status),
		StatusClass: statusCssClass(snap.Status),
		CurrentTask: snap.CurrentTask,
		Completed:   snap.Completed,
		Failed:      snap.Failed,
		Approvals:   snap.PendingApprovalIDs,
		Failure:     failureReason,
		DataVars:    dataVars,
		Events:      eventRows,
		Created:     formatTS(snap.Created),
		Started:     formatTS(snap.Started),
		Finished:    formatTS(snap.Finished),
		Cancellable: !snap.Status.Terminal(),
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/details.html",
	)
	if err != nil {
		slog.Error("Failed to parse details template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Render to buffer first to avoid partial writes, so we can safely set status on error
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "details", data); err != nil {
		slog.Error("Failed to execute details template", "error", err)
		http.Error(w, "Template render error", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf.Bytes())
}

func (wc *WebController) cancelSubmitHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := wc.engine.CancelProcess(id); err != nil {
		slog.Error("Failed to cancel process", "process_id", id, "error", err)
		http.Error(w, "Failed to cancel process", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/details/"+id, http.StatusSeeOther)
}

func (wc *WebController) approvalsHandler(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	pending := wc.engine.PendingApprovals(role)

	type approvalRow struct {
		ID        string
		ProcessID string
		Workflow  string
		TaskID    string
		Role      string
		Created   string
		Expires   string
	}
	rows := make([]approvalRow, 0, len(pending))
	for _, a := range pending {
		rows = append(rows, approvalRow{
			ID:        a.ID,
			ProcessID: a.ProcessID,
			Workflow:  a.Workflow,
			TaskID:    a.TaskID,
			Role:      a.ApproverRole,
			Created:   a.Created.Local().Format("2006-01-02 15:04:05"),
			Expires:   friendlyExpiry(a.Expires),
		})
	}

	data := struct {
		Title       string
		CurrentPath string
		Role        string
		Approvals   []approvalRow
	}{
		Title:       "Approvals Inbox",
		CurrentPath: r.URL.Path,
		Role:        role,
		Approvals:   rows,
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/approvals.html",
	)
	if err != nil {
		slog.Error("Failed to parse approvals template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "approvals", data); err != nil {
		slog.Error("Failed to execute approvals template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (wc *WebController) approvalDecideSubmitHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	decision := r.FormValue("decision")
	if decision != "approve" && decision != "reject" {
		http.Error(w, "decision must be approve or reject", http.StatusBadRequest)
		return
	}

	if err := wc.engine.DecideApproval(id, decision == "approve"); err != nil {
		slog.Error("Failed to decide approval", "approval_id", id, "error", err)
		http.Error(w, "Failed to decide approval", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/approvals", http.StatusSeeOther)
}

func (wc *WebController) definitionsHandler(w http.ResponseWriter, r *http.Request) {
	defs := wc.engine.ListWorkflowDefinitions()

	data := struct {
		Title       string
		CurrentPath string
		Definitions []models.DefinitionSummary
	}{
		Title:       "Workflow Definitions",
		CurrentPath: r.URL.Path,
		Definitions: defs,
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/definitions.html",
	)
	if err != nil {
		slog.Error("Failed to parse definitions template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "definitions", data); err != nil {
		slog.Error("Failed to execute definitions template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (wc *WebController) definitionByNameHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	def, err := wc.engine.GetWorkflowDefinitionByName(name)
	if err != nil {
		slog.Error("Failed to get workflow definition", "name", name, "error", err)
		http.Error(w, "Definition not found", http.StatusNotFound)
		return
	}

	data := struct {
		Title       string
		CurrentPath string
		Definition  models.DefinitionDetail
	}{
		Title:       "Workflow Definition - " + def.Name,
		CurrentPath: r.URL.Path,
		Definition:  def,
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/definition_detail.html",
	)
	if err != nil {
		slog.Error("Failed to parse definition detail template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "definition_detail", data); err != nil {
		slog.Error("Failed to execute definition detail template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// startProcessPageHandler renders the page to launch a process for a given definition.
func (wc *WebController) startProcessPageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	data := struct {
		Title       string
		CurrentPath string
		Workflow    string
		Error       string
	}{
		Title:       "Start Process - " + name,
		CurrentPath: r.URL.Path,
		Workflow:    name,
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/start_process.html",
	)
	if err != nil {
		slog.Error("Failed to parse start process template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "start_process", data); err != nil {
		slog.Error("Failed to execute start process template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (wc *WebController) startProcessSubmitHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	var data map[string]any
	if raw := strings.TrimSpace(r.FormValue("data")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			http.Error(w, "data must be a JSON object", http.StatusBadRequest)
			return
		}
	}

	id, err := wc.engine.StartProcess(name, data)
	if err != nil {
		slog.Error("Failed to start process", "workflow", name, "error", err)
		http.Error(w, "Failed to start process", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/details/"+id, http.StatusSeeOther)
}

// settingsHandler renders the Settings page with key/value pairs from system settings
func (wc *WebController) settingsHandler(w http.ResponseWriter, r *http.Request) {
	type kv struct{ Key, Value string }
	rows := []kv{
		{Key: "SHAND_JOURNAL_DB_TYPE", Value: config.GetSystemSettingString(config.JOURNAL_DB_TYPE)},
		{Key: "SHAND_ENGINE_SERVER_WEB_PORT", Value: config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)},
		{Key: "SHAND_ENGINE_EXECUTOR_SIZE", Value: config.GetSystemSettingString(config.ENGINE_EXECUTOR_SIZE)},
		{Key: "SHAND_ENGINE_QUEUE_SIZE", Value: config.GetSystemSettingString(config.ENGINE_QUEUE_SIZE)},
		{Key: "SHAND_ENGINE_TASK_TIMEOUT", Value: config.GetSystemSettingString(config.ENGINE_TASK_TIMEOUT)},
		{Key: "SHAND_ENGINE_APPROVAL_TTL", Value: config.GetSystemSettingString(config.ENGINE_APPROVAL_TTL)},
		{Key: "SHAND_ENGINE_APPROVAL_SWEEP_INTERVAL", Value: config.GetSystemSettingString(config.ENGINE_APPROVAL_SWEEP_INTERVAL)},
		{Key: "SHAND_NOTIFY_NATS_URL", Value: config.GetSystemSettingString(config.NOTIFY_NATS_URL)},
		{Key: "SHAND_NOTIFY_NATS_SUBJECT_PREFIX", Value: config.GetSystemSettingString(config.NOTIFY_NATS_SUBJECT_PREFIX)},
		{Key: "SHAND_DEFINITIONS_FILE", Value: config.GetSystemSettingString(config.DEFINITIONS_FILE)},
	}
	data := struct {
		Title       string
		CurrentPath string
		Rows        []kv
	}{
		Title:       "Settings",
		CurrentPath: r.URL.Path,
		Rows:        rows,
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{"hasPrefix": hasPrefix}).ParseFS(
		templatesFS,
		"templates/fragments/header.html",
		"templates/fragments/nav.html",
		"templates/settings.html",
	)
	if err != nil {
		slog.Error("Failed to parse settings template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "settings", data); err != nil {
		slog.Error("Failed to execute settings template", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

func friendlyExpiry(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "expired"
	}
	if d < time.Minute {
		return fmt.Sprintf("in %ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("in %dh", int(d.Hours()))
	}
	return fmt.Sprintf("in %dd", int(d.Hours()/24))
}

func statusCssClass(status models.ProcessStatus) string {
	switch status {
	case models.StatusRunning, models.StatusPending:
		return "bg-blue-200"
	case models.StatusWaitingApproval:
		return "bg-amber-200"
	case models.StatusCompleted:
		return "bg-green-300"
	case models.StatusFailed:
		return "bg-red-300"
	}
	return "bg-gray-200"
}
