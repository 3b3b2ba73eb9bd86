// Package hubtel wraps the external mobile-money/card payment provider.
// Credentials are a basic-auth pair held server-side only; they are never
// sent to the browser.
package hubtel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultBaseURL = "https://payproxyapi.hubtel.com"

var (
	// ErrNotConfigured means the credential pair is missing from the
	// environment; callers surface this as 503.
	ErrNotConfigured = errors.New("payment provider credentials not configured")

	// ErrProtocol means the provider answered with a body we could not
	// parse; callers surface this as 502.
	ErrProtocol = errors.New("unparseable payment provider response")
)

// RejectedError is a business-rule refusal from the provider; its message
// is echoed to the caller.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "payment provider rejected request: " + e.Message
}

type Client struct {
	BaseURL         string
	ClientID        string
	ClientSecret    string
	MerchantAccount string
	HTTPClient      *http.Client
}

// NewFromEnv builds a client from HUBTEL_* environment variables, failing
// with ErrNotConfigured when the credential pair is absent.
func NewFromEnv() (*Client, error) {
	id := os.Getenv("HUBTEL_CLIENT_ID")
	secret := os.Getenv("HUBTEL_CLIENT_SECRET")
	if id == "" || secret == "" {
		return nil, ErrNotConfigured
	}
	base := os.Getenv("HUBTEL_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		BaseURL:         base,
		ClientID:        id,
		ClientSecret:    secret,
		MerchantAccount: os.Getenv("HUBTEL_MERCHANT_ACCOUNT"),
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type CheckoutRequest struct {
	Amount          float64
	Description     string
	ClientReference string
	ReturnURL       string
	CancelURL       string
	CallbackURL     string
	PayerName       string
	PayerPhone      string
	PayerEmail      string
}

type CheckoutResponse struct {
	CheckoutURL string
	CheckoutID  string
}

// Provider statuses as returned by QueryStatus. Anything the provider
// sends outside this set comes back as StatusUnknown.
const (
	StatusPaid     = "Paid"
	StatusUnpaid   = "Unpaid"
	StatusRefunded = "Refunded"
	StatusUnknown  = "Unknown"
)

type StatusResult struct {
	Status        string
	TransactionID string
	Amount        float64
	PaymentMethod string
	Date          string
}

type checkoutPayload struct {
	TotalAmount           float64 `json:"totalAmount"`
	Description           string  `json:"description"`
	CallbackURL           string  `json:"callbackUrl"`
	ReturnURL             string  `json:"returnUrl"`
	CancellationURL       string  `json:"cancellationUrl"`
	MerchantAccountNumber string  `json:"merchantAccountNumber"`
	ClientReference       string  `json:"clientReference"`
	PayeeName             string  `json:"payeeName,omitempty"`
	PayeeMobileNumber     string  `json:"payeeMobileNumber,omitempty"`
	PayeeEmail            string  `json:"payeeEmail,omitempty"`
}

type checkoutEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		CheckoutURL string `json:"checkoutUrl"`
		CheckoutID  string `json:"checkoutId"`
	} `json:"data"`
	Message string `json:"message"`
}

type statusEnvelope struct {
	Status string `json:"status"`
	Data   struct {
		Status        string  `json:"status"`
		TransactionID string  `json:"transactionId"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"paymentMethod"`
		Date          string  `json:"date"`
	} `json:"data"`
	Message string `json:"message"`
}

// InitiateCheckout registers a checkout with the provider and returns the
// URL the member is redirected to.
func (c *Client) InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(checkoutPayload{
		TotalAmount:           req.Amount,
		Description:           req.Description,
		CallbackURL:           req.CallbackURL,
		ReturnURL:             req.ReturnURL,
		CancellationURL:       req.CancelURL,
		MerchantAccountNumber: c.MerchantAccount,
		ClientReference:       req.ClientReference,
		PayeeName:             req.PayerName,
		PayeeMobileNumber:     req.PayerPhone,
		PayeeEmail:            req.PayerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	raw, httpStatus, err := c.do(ctx, http.MethodPost, "/items/initiate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var env checkoutEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if httpStatus >= 400 || env.Status != "Success" || env.Data.CheckoutURL == "" {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("checkout refused (http %d)", httpStatus)
		}
		return nil, &RejectedError{Message: msg}
	}

	return &CheckoutResponse{
		CheckoutURL: env.Data.CheckoutURL,
		CheckoutID:  env.Data.CheckoutID,
	}, nil
}

// QueryStatus asks the provider for the authoritative state of a checkout.
// An empty or malformed body is reported as StatusUnknown rather than an
// error, so reconciliation can fall back to its conservative default.
func (c *Client) QueryStatus(ctx context.Context, reference string) (*StatusResult, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	path := "/transactions/status?clientReference=" + url.QueryEscape(reference)
	raw, httpStatus, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return &StatusResult{Status: StatusUnknown}, nil
	}

	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &StatusResult{Status: StatusUnknown}, nil
	}

	if httpStatus >= 500 {
		return nil, fmt.Errorf("%w: provider returned http %d", ErrProtocol, httpStatus)
	}

	status := env.Data.Status
	switch status {
	case StatusPaid, StatusUnpaid, StatusRefunded:
	default:
		status = StatusUnknown
	}

	return &StatusResult{
		Status:        status,
		TransactionID: env.Data.TransactionID,
		Amount:        env.Data.Amount,
		PaymentMethod: env.Data.PaymentMethod,
		Date:          env.Data.Date,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build provider request: %w", err)
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read provider response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
