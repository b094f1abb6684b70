package common

import (
	"context"

	"github.com/tmandere/stagehand/pkg/stagehand"
	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// QuickRegistration is a single automated task that echoes the "input" data
// key back under "echoed". Suites use it when they only need an instance
// that runs to completion.
func QuickRegistration() stagehand.Registration {
	return stagehand.Registration{
		Definition: domain.WorkflowDefinition{
			Name:        "quick",
			Description: "one-step echo workflow",
			Tasks: []domain.TaskDescriptor{
				{ID: "echo", Category: models.CategoryAutomated},
			},
		},
		Capabilities: core.Capabilities{
			Automations: map[string]core.Automation{
				"echo": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
					return map[string]any{"echoed": data["input"]}, nil
				}),
			},
		},
	}
}

// PurchaseRegistration is a three-step workflow with a manager sign-off in
// the middle, for suites that exercise the approval endpoints.
func PurchaseRegistration() stagehand.Registration {
	return stagehand.Registration{
		Definition: domain.WorkflowDefinition{
			Name:        "purchase",
			Description: "purchase order with manager sign-off",
			Tasks: []domain.TaskDescriptor{
				{ID: "prepare", Category: models.CategoryAutomated},
				{ID: "sign-off", Category: models.CategoryHumanApproval, DependsOn: []string{"prepare"}, ApproverRole: "manager"},
				{ID: "finalize", Category: models.CategoryAutomated, DependsOn: []string{"sign-off"}},
			},
		},
		Capabilities: core.Capabilities{
			Automations: map[string]core.Automation{
				"prepare": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
					return map[string]any{"prepared": true}, nil
				}),
				"finalize": core.AutomationFunc(func(ctx context.Context, data map[string]any) (map[string]any, error) {
					return map[string]any{"finalized": true}, nil
				}),
			},
		},
	}
}
