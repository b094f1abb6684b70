package workflows

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// Task ids for the customer onboarding workflow
const (
	OnboardCreateAccount = "create-account"
	OnboardWelcomeNote   = "welcome-note"
)

// OnboardingDefinition is a minimal two step flow, useful as a smoke test
// and as the smallest example of a runnable definition.
func OnboardingDefinition() domain.WorkflowDefinition {
	return domain.WorkflowDefinition{
		Name:        "customer-onboarding",
		Description: "Creates an account and sends a welcome notification",
		Tasks: []domain.TaskDescriptor{
			{ID: OnboardCreateAccount, Category: models.CategoryAutomated},
			{ID: OnboardWelcomeNote, Category: models.CategoryNotification, DependsOn: []string{OnboardCreateAccount}, Handler: "customer-notice", RecipientKey: "email"},
		},
	}
}

func OnboardingCapabilities(sender core.Sender) core.Capabilities {
	return core.Capabilities{
		Automations: map[string]core.Automation{
			OnboardCreateAccount: core.AutomationFunc(createAccount),
		},
		Senders: map[string]core.Sender{
			"customer-notice": sender,
		},
	}
}

func createAccount(ctx context.Context, data map[string]any) (map[string]any, error) {
	email, _ := data["email"].(string)
	if !strings.Contains(email, "@") {
		return nil, errors.New("email is required")
	}
	accountID := "acc-" + uuid.NewString()[:8]
	slog.InfoContext(ctx, "Account created", "account_id", accountID, "email", email)
	return map[string]any{"accountId": accountID}, nil
}
