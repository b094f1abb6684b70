package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

type ApprovalsController struct {
	Engine *engine.Orchestrator
}

func NewApprovalsController(eng *engine.Orchestrator) *ApprovalsController {
	return &ApprovalsController{Engine: eng}
}

func (c *ApprovalsController) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	role := r.URL.Query().Get("role")
	results := c.Engine.PendingApprovals(role)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}

func (c *ApprovalsController) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	var req models.DecideApprovalRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	if err := c.Engine.DecideApproval(id, req.Approved); err != nil {
		if errors.Is(err, core.ErrApprovalResolved) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		var nf *core.NotFoundError
		if errors.As(err, &nf) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to decide approval", "approval_id", id, "error", err)
		http.Error(w, "failed to decide approval", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.DecideApprovalResponse{OK: true})
}
