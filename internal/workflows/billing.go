package workflows

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
)

// BillingClient talks to a form-encoded payment gateway. Requests carry a
// SHA512 signature over the alphabetically sorted field values plus the
// signing key; responses come back url-encoded.
type BillingClient struct {
	MerchantID string
	SigningKey string
	baseURL    string
	HTTPClient *http.Client // optional
}

// NewBillingClient creates a gateway client with sane defaults.
func NewBillingClient(baseURL, merchantID, signingKey string) *BillingClient {
	return &BillingClient{
		MerchantID: merchantID,
		SigningKey: signingKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 25 * time.Second},
	}
}

// ChargeRequest is the payload for capturing a payment.
type ChargeRequest struct {
	Reference string  // order id, unique per charge
	Amount    float64
	Account   string // customer account or email shown on the statement
}

// ChargeResponse represents the most relevant parts of the gateway response.
type ChargeResponse struct {
	Status     string
	PaymentRef string
	PollURL    string
	Hash       string
}

// ChargeStatus is the state of a previously submitted charge.
type ChargeStatus struct {
	Reference  string
	PaymentRef string
	Amount     float64
	Status     string
	Hash       string
}

func signFields(fields map[string]string, signingKey string) string {
	// The gateway verifies against the form fields sorted alphabetically,
	// so the signature must be built the same way.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fields[k])
	}

	toHash := strings.Join(parts, "") + signingKey
	sum := sha512.Sum512([]byte(toHash))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (c *BillingClient) chargeFields(req ChargeRequest) map[string]string {
	return map[string]string{
		"merchant":  c.MerchantID,
		"reference": req.Reference,
		"amount":    fmt.Sprintf("%.2f", req.Amount),
		"account":   req.Account,
	}
}

// Charge submits a capture request and returns the gateway's answer.
func (c *BillingClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	if c == nil {
		return nil, errors.New("nil client")
	}
	if c.MerchantID == "" || c.SigningKey == "" {
		return nil, errors.New("missing gateway credentials")
	}
	if req.Reference == "" {
		return nil, errors.New("reference is required")
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be > 0")
	}

	fields := c.chargeFields(req)
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set("hash", signFields(fields, c.SigningKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charge", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	values, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return &ChargeResponse{
		Status:     values.Get("status"),
		PaymentRef: values.Get("paymentref"),
		PollURL:    values.Get("pollurl"),
		Hash:       values.Get("hash"),
	}, nil
}

// PollStatus fetches the current state of a charge from its poll URL.
func (c *BillingClient) PollStatus(ctx context.Context, pollURL string) (*ChargeStatus, error) {
	if c == nil {
		return nil, errors.New("nil client")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, err
	}

	values, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	amount, _ := strconv.ParseFloat(values.Get("amount"), 64)
	return &ChargeStatus{
		Reference:  values.Get("reference"),
		PaymentRef: values.Get("paymentref"),
		Amount:     amount,
		Status:     values.Get("status"),
		Hash:       values.Get("hash"),
	}, nil
}

func (c *BillingClient) do(req *http.Request) (url.Values, error) {
	cli := c.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 25 * time.Second}
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status submitting request: %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	values, err := url.ParseQuery(string(b))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response form: %w", err)
	}
	return values, nil
}

// Invoke lets the client stand in directly as the charge-payment handler.
// It reads the order fields from the instance data and merges the payment
// reference and status back.
func (c *BillingClient) Invoke(ctx context.Context, data map[string]any) (map[string]any, error) {
	orderID, _ := data["orderId"].(string)
	amount, ok := amountOf(data)
	if !ok {
		return nil, errors.New("amount missing for payment capture")
	}
	account, _ := data["customerEmail"].(string)

	resp, err := c.Charge(ctx, ChargeRequest{Reference: orderID, Amount: amount, Account: account})
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Status, "error") {
		return nil, fmt.Errorf("gateway rejected charge for %s", orderID)
	}
	return map[string]any{
		"paymentRef":    resp.PaymentRef,
		"paymentStatus": resp.Status,
	}, nil
}

var _ core.Integration = (*BillingClient)(nil)
