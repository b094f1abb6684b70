package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// Task ids for the order fulfilment workflow
const (
	OrderValidate       = "validate-order"
	OrderReserveStock   = "reserve-stock"
	OrderFraudScore     = "fraud-score"
	OrderManagerCheck   = "manager-approval"
	OrderChargePayment  = "charge-payment"
	OrderShip           = "ship-order"
	OrderNotifyCustomer = "notify-customer"
)

// OrderFulfilmentDefinition is a demonstration workflow covering every task
// category: validation, stock reservation, a fraud score, a manager
// sign-off, payment capture, shipping and a customer notification.
func OrderFulfilmentDefinition() domain.WorkflowDefinition {
	return domain.WorkflowDefinition{
		Name:        "order-fulfilment",
		Description: "Order fulfilment with manager sign-off before payment capture",
		Tasks: []domain.TaskDescriptor{
			{ID: OrderValidate, Category: models.CategoryAutomated},
			{ID: OrderReserveStock, Category: models.CategorySystemIntegration, DependsOn: []string{OrderValidate}, Timeout: 10 * time.Second},
			{ID: OrderFraudScore, Category: models.CategoryDecision, DependsOn: []string{OrderValidate}, ResultKey: "fraudScore"},
			{ID: OrderManagerCheck, Category: models.CategoryHumanApproval, DependsOn: []string{OrderReserveStock, OrderFraudScore}, ApproverRole: "manager", Timeout: 48 * time.Hour},
			{ID: OrderChargePayment, Category: models.CategorySystemIntegration, DependsOn: []string{OrderManagerCheck}, Timeout: 15 * time.Second, RetryBudget: 3},
			{ID: OrderShip, Category: models.CategoryAutomated, DependsOn: []string{OrderChargePayment}},
			{ID: OrderNotifyCustomer, Category: models.CategoryNotification, DependsOn: []string{OrderShip}, Handler: "customer-notice", RecipientKey: "customerEmail"},
		},
	}
}

// OrderCapabilities binds the order fulfilment handlers. The sender delivers
// the customer notification; wire a NATS sender in production and a log
// sender in development. A nil billing client swaps the payment capture for
// an in-process stand-in.
func OrderCapabilities(sender core.Sender, billing *BillingClient) core.Capabilities {
	var charge core.Integration = core.IntegrationFunc(chargePayment)
	if billing != nil {
		charge = billing
	}
	return core.Capabilities{
		Automations: map[string]core.Automation{
			OrderValidate: core.AutomationFunc(validateOrder),
			OrderShip:     core.AutomationFunc(shipOrder),
		},
		Integrations: map[string]core.Integration{
			OrderReserveStock:  core.IntegrationFunc(reserveStock),
			OrderChargePayment: charge,
		},
		Scorers: map[string]core.Scorer{
			OrderFraudScore: core.ScorerFunc(fraudScore),
		},
		Senders: map[string]core.Sender{
			"customer-notice": sender,
		},
	}
}

func validateOrder(ctx context.Context, data map[string]any) (map[string]any, error) {
	orderID, _ := data["orderId"].(string)
	if orderID == "" {
		return nil, errors.New("orderId is required")
	}
	amount, ok := amountOf(data)
	if !ok || amount <= 0 {
		return nil, errors.New("amount must be a positive number")
	}

	slog.InfoContext(ctx, "Order validated", "order_id", orderID, "amount", amount)
	return map[string]any{"validatedAt": time.Now().UTC().Format(time.RFC3339)}, nil
}

func reserveStock(ctx context.Context, data map[string]any) (map[string]any, error) {
	orderID, _ := data["orderId"].(string)
	slog.InfoContext(ctx, "Reserving stock", "order_id", orderID)

	// stand-in for the warehouse call
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	reservation := "rsv-" + uuid.NewString()[:8]
	return map[string]any{"reservationId": reservation}, nil
}

func fraudScore(ctx context.Context, data map[string]any) (any, error) {
	amount, ok := amountOf(data)
	if !ok {
		return nil, errors.New("amount missing for fraud scoring")
	}
	score := 0.1
	if amount > 1000 {
		score = 0.6
	}
	if amount > 10000 {
		score = 0.9
	}
	slog.InfoContext(ctx, "Fraud score computed", "amount", amount, "score", score)
	return score, nil
}

func chargePayment(ctx context.Context, data map[string]any) (map[string]any, error) {
	orderID, _ := data["orderId"].(string)
	amount, _ := amountOf(data)
	slog.InfoContext(ctx, "Charging payment", "order_id", orderID, "amount", amount)

	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return map[string]any{"paymentRef": fmt.Sprintf("pay-%s", uuid.NewString()[:8])}, nil
}

func shipOrder(ctx context.Context, data map[string]any) (map[string]any, error) {
	orderID, _ := data["orderId"].(string)
	reservation, _ := data["reservationId"].(string)
	slog.InfoContext(ctx, "Shipping order", "order_id", orderID, "reservation_id", reservation)
	return map[string]any{"trackingRef": "trk-" + uuid.NewString()[:8]}, nil
}

// amountOf reads the order amount, accepting the numeric types a JSON body
// or a handcrafted map can carry.
func amountOf(data map[string]any) (float64, bool) {
	switch v := data["amount"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
