package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

func newTestDispatcher(clock core.Clock) (*Dispatcher, *ApprovalQueue) {
	queue := NewApprovalQueue(clock)
	return NewDispatcher(queue, 30*time.Second, 24*time.Hour), queue
}

func TestDispatcher_AutomatedSuccessReturnsUpdates(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Automations: map[string]core.Automation{
			"enrich": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				return map[string]any{"enriched": true, "source": data["source"]}, nil
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "enrich", Category: models.CategoryAutomated}

	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, map[string]any{"source": "api"})
	if outcome.Kind != models.OutcomeSuccess {
		t.Fatalf("Expected SUCCESS, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if outcome.Updates["enriched"] != true || outcome.Updates["source"] != "api" {
		t.Errorf("Expected updates carried through, got %v", outcome.Updates)
	}
}

func TestDispatcher_AutomatedUnknownHandlerFails(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	task := domain.TaskDescriptor{ID: "enrich", Category: models.CategoryAutomated}

	outcome := d.Execute(context.Background(), "p1", "orders", task, core.Capabilities{}, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, `no automation registered for handler "enrich"`) {
		t.Errorf("Unexpected reason: %s", outcome.Reason)
	}
}

func TestDispatcher_AutomatedErrorBecomesFailure(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Automations: map[string]core.Automation{
			"enrich": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				return nil, errors.New("upstream said no")
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "enrich", Category: models.CategoryAutomated}

	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if outcome.Reason != "upstream said no" {
		t.Errorf("Expected the handler error verbatim, got %q", outcome.Reason)
	}
}

func TestDispatcher_TaskTimeoutIsReported(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Automations: map[string]core.Automation{
			"slow": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "slow", Category: models.CategoryAutomated, Timeout: 20 * time.Millisecond}

	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if outcome.Reason != "task slow timed out after 20ms" {
		t.Errorf("Unexpected reason: %s", outcome.Reason)
	}
}

func TestDispatcher_PanicIsRecoveredAsFailure(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Automations: map[string]core.Automation{
			"boom": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				panic("boom")
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "boom", Category: models.CategoryAutomated}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Execute should have recovered internally but panicked with: %v", r)
		}
	}()
	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, "panic in task boom") {
		t.Errorf("Unexpected reason: %s", outcome.Reason)
	}
}

func TestDispatcher_HumanApprovalSuspends(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	d, queue := newTestDispatcher(clock)
	task := domain.TaskDescriptor{ID: "sign-off", Category: models.CategoryHumanApproval, ApproverRole: "manager"}

	outcome := d.Execute(context.Background(), "p1", "orders", task, core.Capabilities{}, nil)
	if outcome.Kind != models.OutcomeSuspended {
		t.Fatalf("Expected SUSPENDED, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if outcome.ApprovalID == "" {
		t.Fatal("Expected an approval id on the outcome")
	}

	pending := queue.Pending("manager")
	if len(pending) != 1 || pending[0].ID != outcome.ApprovalID {
		t.Fatalf("Expected the request enqueued, got %d pending", len(pending))
	}
	// no task timeout declared: the engine-wide approval TTL applies
	want := clock.Now().Add(24 * time.Hour)
	if !pending[0].Expires.Equal(want) {
		t.Errorf("Expected Expires %v, got %v", want, pending[0].Expires)
	}
}

func TestDispatcher_HumanApprovalTimeoutOverridesTTL(t *testing.T) {
	clock := NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	d, queue := newTestDispatcher(clock)
	task := domain.TaskDescriptor{
		ID:           "sign-off",
		Category:     models.CategoryHumanApproval,
		ApproverRole: "manager",
		Timeout:      45 * time.Minute,
	}

	outcome := d.Execute(context.Background(), "p1", "orders", task, core.Capabilities{}, nil)
	if outcome.Kind != models.OutcomeSuspended {
		t.Fatalf("Expected SUSPENDED, got %s", outcome.Kind)
	}
	pending := queue.Pending("")
	want := clock.Now().Add(45 * time.Minute)
	if !pending[0].Expires.Equal(want) {
		t.Errorf("Expected Expires %v, got %v", want, pending[0].Expires)
	}
}

func TestDispatcher_DecisionWritesResultKey(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Scorers: map[string]core.Scorer{
			"fraud": core.ScorerFunc(func(ctx context.Context, data map[string]any) (any, error) {
				return 0.42, nil
			}),
		},
	}

	task := domain.TaskDescriptor{ID: "fraud", Category: models.CategoryDecision, ResultKey: "fraudScore"}
	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Kind != models.OutcomeSuccess {
		t.Fatalf("Expected SUCCESS, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if outcome.Updates["fraudScore"] != 0.42 {
		t.Errorf("Expected result under fraudScore, got %v", outcome.Updates)
	}

	// without an explicit result key the task id is the key
	task = domain.TaskDescriptor{ID: "fraud", Category: models.CategoryDecision}
	outcome = d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Updates["fraud"] != 0.42 {
		t.Errorf("Expected result under task id, got %v", outcome.Updates)
	}
}

func TestDispatcher_NotificationResolvesRecipient(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	var sentTo string
	caps := core.Capabilities{
		Senders: map[string]core.Sender{
			"mail": core.SenderFunc(func(ctx context.Context, recipient string, data map[string]any) error {
				sentTo = recipient
				return nil
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "notify", Category: models.CategoryNotification, Handler: "mail", RecipientKey: "customerEmail"}

	outcome := d.Execute(context.Background(), "p1", "orders", task, core.Capabilities{}, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE without a sender, got %s", outcome.Kind)
	}

	data := map[string]any{"customerEmail": "jo@example.com"}
	outcome = d.Execute(context.Background(), "p1", "orders", task, caps, data)
	if outcome.Kind != models.OutcomeSuccess {
		t.Fatalf("Expected SUCCESS, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if sentTo != "jo@example.com" {
		t.Errorf("Expected recipient jo@example.com, got %s", sentTo)
	}
}

func TestDispatcher_NotificationMissingRecipientFails(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Senders: map[string]core.Sender{
			"notify": core.SenderFunc(func(ctx context.Context, recipient string, data map[string]any) error {
				t.Error("Sender should not be called without a recipient")
				return nil
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "notify", Category: models.CategoryNotification}

	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, map[string]any{})
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, `no recipient under data key "recipient"`) {
		t.Errorf("Unexpected reason: %s", outcome.Reason)
	}
}

func TestDispatcher_IntegrationResponseMergesBack(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	caps := core.Capabilities{
		Integrations: map[string]core.Integration{
			"billing": core.IntegrationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
				return map[string]any{"invoiceId": "inv-1"}, nil
			}),
		},
	}
	task := domain.TaskDescriptor{ID: "charge", Category: models.CategorySystemIntegration, Handler: "billing"}

	outcome := d.Execute(context.Background(), "p1", "orders", task, caps, nil)
	if outcome.Kind != models.OutcomeSuccess {
		t.Fatalf("Expected SUCCESS, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if outcome.Updates["invoiceId"] != "inv-1" {
		t.Errorf("Expected integration response as updates, got %v", outcome.Updates)
	}
}

func TestDispatcher_UnknownCategoryFails(t *testing.T) {
	d, _ := newTestDispatcher(core.NewRealClock())
	task := domain.TaskDescriptor{ID: "odd", Category: models.TaskCategory("Mystery")}

	outcome := d.Execute(context.Background(), "p1", "orders", task, core.Capabilities{}, nil)
	if outcome.Kind != models.OutcomeFailure {
		t.Fatalf("Expected FAILURE, got %s", outcome.Kind)
	}
	if !strings.Contains(outcome.Reason, `unknown task category "Mystery"`) {
		t.Errorf("Unexpected reason: %s", outcome.Reason)
	}
}
