package web

import (
	"net/http"
)

func (wc *WebController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/{$}", wc.handler)
	mux.HandleFunc("GET /details/{id}", wc.processDetailsHandler)
	mux.HandleFunc("POST /details/{id}/cancel", wc.cancelSubmitHandler)
	// Approvals inbox and decision forms
	mux.HandleFunc("GET /approvals", wc.approvalsHandler)
	mux.HandleFunc("POST /approvals/{id}/decide", wc.approvalDecideSubmitHandler)
	// Full page list of definitions
	mux.HandleFunc("GET /definitions", wc.definitionsHandler)
	mux.HandleFunc("GET /definitions/{name}", wc.definitionByNameHandler)
	// Start process page for a given definition
	mux.HandleFunc("GET /definitions/{name}/start", wc.startProcessPageHandler)
	mux.HandleFunc("POST /definitions/{name}/start", wc.startProcessSubmitHandler)
	// Settings page
	mux.HandleFunc("GET /settings", wc.settingsHandler)
}
