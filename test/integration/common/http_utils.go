package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// PostStartProcess launches a process over the API and returns its id. The
// server comes up asynchronously, so the first request retries until it
// answers.
func PostStartProcess(t *testing.T, port int, workflow string, data map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(models.StartProcessRequest{Workflow: workflow, Data: data})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	url := fmt.Sprintf("http://localhost:%d/api/processes", port)
	client := &http.Client{Timeout: 10 * time.Second}

	var resp *http.Response
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err = client.Post(url, "application/json", bytes.NewReader(payload))
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Failed to post /api/processes: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	var out models.StartProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.ID == "" {
		t.Fatal("Expected a process id in the response")
	}
	return out.ID
}

// GetProcessAndExpectStatus polls the process endpoint until the instance
// reaches the wanted status or the deadline passes.
func GetProcessAndExpectStatus(t *testing.T, port int, processID string, status models.ProcessStatus) models.ProcessSnapshot {
	t.Helper()
	url := fmt.Sprintf("http://localhost:%d/api/processes/%s", port, processID)
	client := &http.Client{Timeout: 10 * time.Second}

	var last models.ProcessSnapshot
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if resp.StatusCode == http.StatusOK {
			var snap models.ProcessSnapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err == nil {
				last = snap
			}
		}
		resp.Body.Close()
		if last.Status == status {
			return last
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("Expected process %s to reach %s, got %s", processID, status, last.Status)
	return models.ProcessSnapshot{}
}

// ListApprovals fetches the pending approvals visible to a role.
func ListApprovals(t *testing.T, port int, role string) []models.ApprovalSnapshot {
	t.Helper()
	url := fmt.Sprintf("http://localhost:%d/api/approvals?role=%s", port, role)
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("Failed to GET /api/approvals: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	var out []models.ApprovalSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

// PostDecision submits an approval decision and expects the given status
// code back.
func PostDecision(t *testing.T, port int, approvalID string, approved bool, wantStatus int) {
	t.Helper()
	payload, _ := json.Marshal(models.DecideApprovalRequest{Approved: approved})
	url := fmt.Sprintf("http://localhost:%d/api/approvals/%s/decision", port, approvalID)
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to post decision: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("Expected %d, got %d", wantStatus, resp.StatusCode)
	}
}
