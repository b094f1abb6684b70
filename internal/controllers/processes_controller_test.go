package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmandere/stagehand/internal/engine"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// newTestMux starts a real engine with one registered workflow and wires
// every controller onto a mux, so tests drive the same route table the
// server uses.
func newTestMux(t *testing.T) (*engine.Orchestrator, *http.ServeMux) {
	t.Helper()
	o := engine.NewOrchestrator(engine.Options{})
	o.Start(context.Background())
	t.Cleanup(o.Stop)

	def := domain.WorkflowDefinition{
		Name:        "purchase",
		Description: "Purchase with sign-off",
		Tasks: []domain.TaskDescriptor{
			{ID: "prepare", Category: models.CategoryAutomated},
			{ID: "sign-off", Category: models.CategoryHumanApproval, ApproverRole: "manager", DependsOn: []string{"prepare"}},
			{ID: "finalize", Category: models.CategoryAutomated, DependsOn: []string{"sign-off"}},
		},
	}
	caps := core.Capabilities{
		Automations: map[string]core.Automation{
			"prepare": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				return map[string]any{"prepared": true}, nil
			}),
			"finalize": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				return nil, nil
			}),
		},
	}
	if err := o.RegisterWorkflow(def, caps); err != nil {
		t.Fatalf("RegisterWorkflow returned error: %v", err)
	}

	mux := http.NewServeMux()
	NewProcessesController(o).RegisterRoutes(mux)
	NewApprovalsController(o).RegisterRoutes(mux)
	NewDefinitionsController(o).RegisterRoutes(mux)
	return o, mux
}

func doJSON(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func waitForEngineStatus(t *testing.T, o *engine.Orchestrator, id string, want models.ProcessStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := o.GetStatus(id)
		if err != nil {
			t.Fatalf("GetStatus returned error: %v", err)
		}
		if snap.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for process %s to reach %s", id, want)
}

func TestStartProcess_ReturnsID(t *testing.T) {
	o, mux := newTestMux(t)

	w := doJSON(mux, "POST", "/api/processes", `{"workflow":"purchase","data":{"amount":12.5}}`)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (%s)", w.Result().StatusCode, w.Body.String())
	}

	var resp models.StartProcessResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("Expected a process id in the response")
	}

	waitForEngineStatus(t, o, resp.ID, models.StatusWaitingApproval)

	w = doJSON(mux, "GET", "/api/processes/"+resp.ID, "")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}
	var snap models.ProcessSnapshot
	if err := json.NewDecoder(w.Result().Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if snap.Workflow != "purchase" || snap.Status != models.StatusWaitingApproval {
		t.Errorf("Unexpected snapshot: %s %s", snap.Workflow, snap.Status)
	}
	if snap.Data["amount"] != 12.5 {
		t.Errorf("Expected initial data surfaced, got %v", snap.Data)
	}
}

func TestStartProcess_BadRequests(t *testing.T) {
	_, mux := newTestMux(t)

	w := doJSON(mux, "POST", "/api/processes", `{"data":{}}`)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a missing workflow, got %d", w.Result().StatusCode)
	}

	w = doJSON(mux, "POST", "/api/processes", `{not json`)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", w.Result().StatusCode)
	}

	w = doJSON(mux, "POST", "/api/processes", `{"workflow":"purchase","bogus":true}`)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown fields, got %d", w.Result().StatusCode)
	}

	w = doJSON(mux, "POST", "/api/processes", `{"workflow":"ghost"}`)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for an unknown workflow, got %d", w.Result().StatusCode)
	}
}

func TestGetProcess_NotFound(t *testing.T) {
	_, mux := newTestMux(t)

	w := doJSON(mux, "GET", "/api/processes/does-not-exist", "")
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Result().StatusCode)
	}
}

func TestListProcesses_FiltersAndLimits(t *testing.T) {
	o, mux := newTestMux(t)

	first, err := o.StartProcess("purchase", nil)
	if err != nil {
		t.Fatalf("StartProcess returned error: %v", err)
	}
	waitForEngineStatus(t, o, first, models.StatusWaitingApproval)
	second, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, second, models.StatusWaitingApproval)

	w := doJSON(mux, "GET", "/api/processes?workflow=purchase", "")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}
	var resp models.SearchProcessResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Results != 2 || len(resp.Processes) != 2 {
		t.Errorf("Expected 2 results, got %d", resp.Results)
	}

	w = doJSON(mux, "GET", "/api/processes?limit=1", "")
	json.NewDecoder(w.Result().Body).Decode(&resp)
	if resp.Results != 1 {
		t.Errorf("Expected the limit applied, got %d results", resp.Results)
	}

	w = doJSON(mux, "GET", "/api/processes?status=WaitingApproval", "")
	json.NewDecoder(w.Result().Body).Decode(&resp)
	if resp.Results != 2 {
		t.Errorf("Expected 2 waiting processes, got %d", resp.Results)
	}

	w = doJSON(mux, "GET", "/api/processes?limit=abc", "")
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad limit, got %d", w.Result().StatusCode)
	}

	w = doJSON(mux, "GET", "/api/processes?limit=1001", "")
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an oversized limit, got %d", w.Result().StatusCode)
	}
}

func TestSearchProcesses_Post(t *testing.T) {
	o, mux := newTestMux(t)

	id, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, id, models.StatusWaitingApproval)

	w := doJSON(mux, "POST", "/api/processes/search", `{"workflow":"purchase","limit":10}`)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}
	var resp models.SearchProcessResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Results != 1 || resp.Processes[0].ID != id {
		t.Errorf("Expected the started process, got %+v", resp)
	}

	w = doJSON(mux, "POST", "/api/processes/search", `{"limit":5000}`)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an oversized limit, got %d", w.Result().StatusCode)
	}
	if !strings.Contains(w.Body.String(), "limit cannot be greater than 1000") {
		t.Errorf("Unexpected error body: %s", w.Body.String())
	}
}

func TestCancelProcess_Endpoint(t *testing.T) {
	o, mux := newTestMux(t)

	id, _ := o.StartProcess("purchase", nil)
	waitForEngineStatus(t, o, id, models.StatusWaitingApproval)

	w := doJSON(mux, "POST", "/api/processes/"+id+"/cancel", "")
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Result().StatusCode)
	}
	var resp models.CancelProcessResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("Expected ok true")
	}

	snap, _ := o.GetStatus(id)
	if snap.Status != models.StatusCancelled {
		t.Errorf("Expected Cancelled, got %s", snap.Status)
	}

	w = doJSON(mux, "POST", "/api/processes/does-not-exist/cancel", "")
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Result().StatusCode)
	}
}
