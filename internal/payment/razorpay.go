package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type RazorpayClient struct {
	baseURL   *url.URL
	keyID     string
	keySecret string
	http      *http.Client
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) (*RazorpayClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid razorpay base url %q: %w", baseURL, err)
	}
	return &RazorpayClient{
		baseURL:   u,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// KeyID is the public key the storefront hands to the checkout widget.
func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateIntent creates a Razorpay order. Every failure wraps ErrGateway.
func (c *RazorpayClient) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (Intent, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: marshal request: %v", ErrGateway, err)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: "/v1/orders"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Intent{}, fmt.Errorf("%w: build request: %v", ErrGateway, err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Intent{}, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}

	if resp.StatusCode/100 != 2 {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Description != "" {
			return Intent{}, fmt.Errorf("%w: %s (%s)", ErrGateway, e.Error.Description, e.Error.Code)
		}
		return Intent{}, fmt.Errorf("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Intent{}, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if out.ID == "" {
		return Intent{}, fmt.Errorf("%w: response without order id", ErrGateway)
	}

	return Intent{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Receipt: out.Receipt}, nil
}
