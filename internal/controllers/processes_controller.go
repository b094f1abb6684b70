package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// ProcessesController holds dependencies for process HTTP endpoints.
type ProcessesController struct {
	Engine *engine.Orchestrator
}

func NewProcessesController(eng *engine.Orchestrator) *ProcessesController {
	return &ProcessesController{Engine: eng}
}

func (c *ProcessesController) handleStartProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.StartProcessRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Workflow) == "" {
		http.Error(w, "workflow is required", http.StatusBadRequest)
		return
	}

	id, err := c.Engine.StartProcess(req.Workflow, req.Data)
	if err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to start process", "workflow", req.Workflow, "error", err)
		http.Error(w, "failed to start process", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.StartProcessResponse{ID: id})
}

func (c *ProcessesController) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	snap, err := c.Engine.GetStatus(id)
	if err != nil {
		http.Error(w, "process not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(snap)
}

func (c *ProcessesController) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req := models.SearchProcessRequest{
		Workflow: r.URL.Query().Get("workflow"),
		Status:   models.ProcessStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "limit is an integer", http.StatusBadRequest)
			return
		}
		req.Limit = limit
	}
	c.writeSearchResults(w, req)
}

func (c *ProcessesController) handleSearchProcesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.SearchProcessRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	c.writeSearchResults(w, req)
}

func (c *ProcessesController) writeSearchResults(w http.ResponseWriter, req models.SearchProcessRequest) {
	//max of 1000 results is allowed
	if req.Limit > 1000 {
		slog.Warn("limit cannot be greater than 1000")
		http.Error(w, "limit cannot be greater than 1000", http.StatusBadRequest)
		return
	}

	snaps := c.Engine.SearchProcesses(req)
	response := models.SearchProcessResponse{
		Results:   len(snaps),
		Processes: snaps,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (c *ProcessesController) handleCancelProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := c.Engine.CancelProcess(id); err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to cancel process", "process_id", id, "error", err)
		http.Error(w, "failed to cancel process", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CancelProcessResponse{OK: true})
}
