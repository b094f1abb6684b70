package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *ProcessesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/processes", c.handleStartProcess)
	mux.HandleFunc("GET /api/processes", c.handleListProcesses)
	mux.HandleFunc("/api/processes/search", c.handleSearchProcesses)
	mux.HandleFunc("GET /api/processes/{id}", c.handleGetProcess)
	mux.HandleFunc("POST /api/processes/{id}/cancel", c.handleCancelProcess)
}
func (c *ApprovalsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/approvals", c.handleListApprovals)
	mux.HandleFunc("POST /api/approvals/{id}/decision", c.handleDecideApproval)
}
func (c *DefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/definitions", c.handleListDefinitions)
	mux.HandleFunc("GET /api/definitions/{name}", c.handleGetDefinitionByName)
}
