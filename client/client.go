// Package client implements the metered access protocol: balance queries,
// credit purchase quotes, and the 402 charge flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/get402/get402-go/api"
	"github.com/get402/get402-go/auth"
	"github.com/get402/get402-go/transport"
	thttp "github.com/get402/get402-go/transport/http"
)

// GetBalance queries the current credit balance for this (App, Client) pair.
// It is an unauthenticated read.
func (c *Client) GetBalance(ctx context.Context) (uint64, error) {
	path := fmt.Sprintf("apps/%s/clients/%s", c.app.Identifier(), c.id)
	res, err := c.app.conn.Channel().Request(ctx, thttp.NewRequest(http.MethodGet, path, nil, nil))
	if err != nil {
		return 0, errors.Wrapf(api.ErrServiceUnavailable, "requesting balance: %s", err)
	}
	defer res.Body().Close()

	if res.Status() != http.StatusOK {
		return 0, statusError(api.ErrServiceUnavailable, "requesting balance", res)
	}
	var body api.BalanceResponse
	if err := json.NewDecoder(res.Body()).Decode(&body); err != nil {
		return 0, errors.Wrapf(api.ErrServiceUnavailable, "decoding balance response: %s", err)
	}
	return body.Balance, nil
}

// RequestBuyCredits asks the service to quote a payment for n additional
// credits. It is a quote, not a charge: no balance or credit state changes.
func (c *Client) RequestBuyCredits(ctx context.Context, credits uint64) (api.PaymentRequired, error) {
	path := fmt.Sprintf("apps/%s/clients/%s/buy-credits/%d", c.app.Identifier(), c.id, credits)
	res, err := c.app.conn.Channel().Request(ctx, thttp.NewRequest(http.MethodGet, path, nil, nil))
	if err != nil {
		return api.PaymentRequired{}, errors.Wrapf(api.ErrServiceUnavailable, "requesting quote: %s", err)
	}
	defer res.Body().Close()

	if res.Status() != http.StatusOK {
		return api.PaymentRequired{}, statusError(api.ErrServiceUnavailable, "requesting quote", res)
	}
	var body api.PaymentRequired
	if err := json.NewDecoder(res.Body()).Decode(&body); err != nil {
		return api.PaymentRequired{}, errors.Wrapf(api.ErrServiceUnavailable, "decoding quote: %s", err)
	}
	return body, nil
}

// ChargeCredit submits the consumed quantities per metered resource and asks
// the service to deduct the equivalent credits. Each attempt is a single
// round trip under a fresh envelope; nothing is retried here.
//
// Outcomes:
//   - success: the receipt carries the balance after deduction
//   - ErrUnauthorized: the service rejected the envelope
//   - *InsufficientFundsError: the service declined without deducting and
//     returned payment instructions
//   - ErrInternal: any other status
func (c *Client) ChargeCredit(ctx context.Context, usage map[string]uint64) (api.ChargeReceipt, error) {
	s, err := c.signerOrErr()
	if err != nil {
		return api.ChargeReceipt{}, err
	}
	env, err := auth.NewEnvelope(s, c.app.conn.Domain())
	if err != nil {
		return api.ChargeReceipt{}, err
	}

	payload, err := json.Marshal(usage)
	if err != nil {
		return api.ChargeReceipt{}, errors.Wrap(err, "marshaling usage")
	}
	hdrs := http.Header{}
	hdrs.Set("Content-Type", "application/json")
	env.Attach(hdrs)

	path := fmt.Sprintf("apps/%s/clients/%s/calls", c.app.Identifier(), c.id)
	res, err := c.app.conn.Channel().Request(ctx, thttp.NewRequest(http.MethodPost, path, bytes.NewReader(payload), hdrs))
	if err != nil {
		return api.ChargeReceipt{}, errors.Wrapf(api.ErrInternal, "charging credit: %s", err)
	}
	defer res.Body().Close()

	switch res.Status() {
	case http.StatusOK:
		var body api.ChargeReceipt
		if err := json.NewDecoder(res.Body()).Decode(&body); err != nil {
			return api.ChargeReceipt{}, errors.Wrapf(api.ErrInternal, "decoding receipt: %s", err)
		}
		return body, nil
	case http.StatusUnauthorized:
		return api.ChargeReceipt{}, api.ErrUnauthorized
	case http.StatusPaymentRequired:
		var body api.PaymentRequired
		if err := json.NewDecoder(res.Body()).Decode(&body); err != nil {
			return api.ChargeReceipt{}, errors.Wrapf(api.ErrInternal, "decoding payment instructions: %s", err)
		}
		return api.ChargeReceipt{}, &api.InsufficientFundsError{PaymentRequired: body}
	default:
		return api.ChargeReceipt{}, statusError(api.ErrInternal, "charging credit", res)
	}
}

// statusError wraps a taxonomy sentinel together with a transport.HTTPError
// carrying the status and headers, so callers can branch with errors.Is and
// still inspect the response with errors.As.
func statusError(kind error, op string, res transport.HTTPResponse) error {
	herr := thttp.NewHTTPError(fmt.Sprintf("%s: unexpected status %d", op, res.Status()), res.Status(), res.Headers())
	return fmt.Errorf("%w: %w", kind, herr)
}
