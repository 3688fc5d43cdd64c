// Package payment starts payments with the external card gateway.
package payment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/money"
)

// Intent describes the amount to collect for an order.
type Intent struct {
	OrderID  uuid.UUID
	UserID   int64
	Amount   decimal.Decimal
	Currency string
}

// Gateway starts a payment and returns the URL the customer pays at.
type Gateway interface {
	Initiate(ctx context.Context, in Intent) (string, error)
}

// GatewayError reports a payment that could not be started. The order it
// belongs to stays valid.
type GatewayError struct {
	OrderID uuid.UUID
	Reason  string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment for order %s not initiated: %s", e.OrderID, e.Reason)
}

// RedirectGateway builds hosted payment page URLs.
type RedirectGateway struct {
	baseURL  *url.URL
	currency string
}

// NewRedirectGateway returns a gateway for the hosted page at baseURL. An
// empty baseURL yields a gateway that fails every Initiate.
func NewRedirectGateway(baseURL, currency string) (*RedirectGateway, error) {
	g := &RedirectGateway{currency: currency}
	if baseURL == "" {
		return g, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse payment url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("payment url %q must be absolute", baseURL)
	}
	g.baseURL = u
	return g, nil
}

// Initiate implements Gateway.
func (g *RedirectGateway) Initiate(ctx context.Context, in Intent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.baseURL == nil {
		return "", &GatewayError{OrderID: in.OrderID, Reason: "gateway not configured"}
	}
	if !in.Amount.IsPositive() {
		return "", &GatewayError{OrderID: in.OrderID, Reason: "nothing to pay"}
	}

	currency := in.Currency
	if currency == "" {
		currency = g.currency
	}

	u := *g.baseURL
	q := u.Query()
	q.Set("order_id", in.OrderID.String())
	q.Set("amount", money.Format(in.Amount))
	if currency != "" {
		q.Set("currency", currency)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
