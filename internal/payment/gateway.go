package payment

import (
	"context"
	"errors"
)

var ErrGateway = errors.New("payment gateway error")

// Intent is the gateway-side record of a payment we expect to receive.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (Intent, error)
}
