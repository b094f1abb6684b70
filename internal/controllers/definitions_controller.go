package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tmandere/stagehand/internal/engine"
)

type DefinitionsController struct {
	Engine *engine.Orchestrator
}

func NewDefinitionsController(eng *engine.Orchestrator) *DefinitionsController {
	return &DefinitionsController{Engine: eng}
}

// handleListDefinitions returns a list of all registered workflow definitions
func (c *DefinitionsController) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	defs := c.Engine.ListWorkflowDefinitions()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(defs)
}

// handleGetDefinitionByName returns a specific workflow definition by name
func (c *DefinitionsController) handleGetDefinitionByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	def, err := c.Engine.GetWorkflowDefinitionByName(name)
	if err != nil {
		slog.Error("Failed to get workflow definition", "name", name, "error", err)
		http.Error(w, "Definition not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(def)
}
