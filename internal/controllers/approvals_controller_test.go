package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

func waitForPendingApproval(t *testing.T, o *engine.Orchestrator, role string) models.ApprovalSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reqs := o.PendingApprovals(role); len(reqs) > 0 {
			return reqs[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for a pending approval for role %q", role)
	return models.ApprovalSnapshot{}
}

func TestListApprovals_RoleFilter(t *testing.T) {
	o, mux := newTestMux(t)

	id, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, id, models.StatusWaitingApproval)

	w := doJSON(mux, "GET", "/api/approvals?role=manager", "")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}
	var reqs []models.ApprovalSnapshot
	if err := json.NewDecoder(w.Result().Body).Decode(&reqs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 approval, got %d", len(reqs))
	}
	if reqs[0].ProcessID != id || reqs[0].TaskID != "sign-off" || reqs[0].ApproverRole != "manager" {
		t.Errorf("Unexpected approval: %+v", reqs[0])
	}

	w = doJSON(mux, "GET", "/api/approvals?role=finance", "")
	json.NewDecoder(w.Result().Body).Decode(&reqs)
	if len(reqs) != 0 {
		t.Errorf("Expected no approvals for another role, got %d", len(reqs))
	}
}

func TestDecideApproval_ApproveResumesProcess(t *testing.T) {
	o, mux := newTestMux(t)

	id, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, id, models.StatusWaitingApproval)
	req := waitForPendingApproval(t, o, "manager")

	w := doJSON(mux, "POST", "/api/approvals/"+req.ID+"/decision", `{"approved":true,"comment":"looks fine"}`)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", w.Result().StatusCode, w.Body.String())
	}
	var resp models.DecideApprovalResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("Expected ok true")
	}

	waitForEngineStatus(t, o, id, models.StatusCompleted)

	// a repeat decision conflicts
	w = doJSON(mux, "POST", "/api/approvals/"+req.ID+"/decision", `{"approved":false}`)
	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 on a second decision, got %d", w.Result().StatusCode)
	}
}

func TestDecideApproval_RejectFailsProcess(t *testing.T) {
	o, mux := newTestMux(t)

	id, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, id, models.StatusWaitingApproval)
	req := waitForPendingApproval(t, o, "manager")

	w := doJSON(mux, "POST", "/api/approvals/"+req.ID+"/decision", `{"approved":false}`)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}

	waitForEngineStatus(t, o, id, models.StatusFailed)
	snap, _ := o.GetStatus(id)
	if snap.Failure == nil || snap.Failure.Reason != "approval rejected" {
		t.Errorf("Expected failure 'approval rejected', got %+v", snap.Failure)
	}
}

func TestDecideApproval_BadRequests(t *testing.T) {
	_, mux := newTestMux(t)

	w := doJSON(mux, "POST", "/api/approvals/unknown-id/decision", `{"approved":true}`)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown approval, got %d", w.Result().StatusCode)
	}

	w = doJSON(mux, "POST", "/api/approvals/unknown-id/decision", `{not json`)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", w.Result().StatusCode)
	}
}
