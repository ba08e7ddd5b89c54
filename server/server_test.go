package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/get402/get402-go/api"
	"github.com/get402/get402-go/auth"
	"github.com/get402/get402-go/testing/fixtures"
	"github.com/get402/get402-go/testing/helpers"
)

func newTestServer(t *testing.T, options ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := helpers.Must(New(options...))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func chargeRequest(t *testing.T, ts *httptest.Server, env *auth.Envelope, app, client string) *http.Response {
	return chargeRequestBody(t, ts, env, app, client, `{"credits":1}`)
}

func chargeRequestBody(t *testing.T, ts *httptest.Server, env *auth.Envelope, app, client, usage string) *http.Response {
	t.Helper()
	body := bytes.NewReader([]byte(usage))
	req := helpers.Must(http.NewRequest(http.MethodPost, ts.URL+"/apps/"+app+"/clients/"+client+"/calls", body))
	req.Header.Set("Content-Type", "application/json")
	env.Attach(req.Header)
	res := helpers.Must(http.DefaultClient.Do(req))
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestBalanceDefaultsToZero(t *testing.T) {
	_, ts := newTestServer(t)

	res := helpers.Must(http.Get(ts.URL + "/apps/a/clients/c"))
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body api.BalanceResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, uint64(0), body.Balance)
}

func TestBuyCreditsQuote(t *testing.T) {
	_, ts := newTestServer(t, WithPricePerCredit(25), WithPayoutScript("76a914abcdef88ac"))

	res := helpers.Must(http.Get(ts.URL + "/apps/a/clients/c/buy-credits/10"))
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var quote api.PaymentRequired
	require.NoError(t, json.NewDecoder(res.Body).Decode(&quote))
	require.Equal(t, ts.URL+"/payments", quote.PaymentURL)
	require.Equal(t, uint64(250), quote.Total())
	require.NotEmpty(t, quote.Outputs)
	require.Equal(t, "76a914abcdef88ac", quote.Outputs[0].Script)
}

func TestBuyCreditsRejectsZero(t *testing.T) {
	_, ts := newTestServer(t)

	res := helpers.Must(http.Get(ts.URL + "/apps/a/clients/c/buy-credits/0"))
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestChargeRejectsOverflowingUsage(t *testing.T) {
	srv, ts := newTestServer(t)
	client := fixtures.Alice.Address()
	srv.Ledger().Credit("a", client, 5)

	// quantities that wrap the uint64 sum to 1
	usage := fmt.Sprintf(`{"x":%d,"y":%d}`, uint64(1)<<63, uint64(1)<<63+1)
	env := helpers.Must(auth.NewEnvelope(fixtures.Alice, auth.DefaultDomain))
	res := chargeRequestBody(t, ts, env, "a", client.String(), usage)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, uint64(5), srv.Ledger().Balance("a", client))
}

func TestChargeRejectsUnquotableTotal(t *testing.T) {
	srv, ts := newTestServer(t, WithPricePerCredit(100))
	client := fixtures.Alice.Address()

	// the sum itself fits, but its shortfall quote would wrap
	usage := fmt.Sprintf(`{"x":%d}`, uint64(math.MaxUint64/100+1))
	env := helpers.Must(auth.NewEnvelope(fixtures.Alice, auth.DefaultDomain))
	res := chargeRequestBody(t, ts, env, "a", client.String(), usage)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, uint64(0), srv.Ledger().Balance("a", client))
}

func TestBuyCreditsRejectsMalformedQuantity(t *testing.T) {
	_, ts := newTestServer(t)

	for _, quantity := range []string{"10x", "-1", "1e3", "0x10"} {
		res := helpers.Must(http.Get(ts.URL + "/apps/a/clients/c/buy-credits/" + quantity))
		res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode, "quantity %q", quantity)
	}
}

func TestBuyCreditsRejectsUnquotableQuantity(t *testing.T) {
	_, ts := newTestServer(t, WithPricePerCredit(100))

	res := helpers.Must(http.Get(fmt.Sprintf("%s/apps/a/clients/c/buy-credits/%d", ts.URL, uint64(math.MaxUint64/100+1))))
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRejectedSignatureDoesNotBurnNonce(t *testing.T) {
	srv, ts := newTestServer(t)
	client := fixtures.Alice.Address()
	srv.Ledger().Credit("a", client, 10)

	env := helpers.Must(auth.NewEnvelope(fixtures.Alice, auth.DefaultDomain))

	// same message and nonce, garbage signature
	forged := &auth.Envelope{
		Identifier: env.Identifier,
		Message:    env.Message,
		Signature:  helpers.RandomBytes(len(env.Signature)),
	}
	res := chargeRequest(t, ts, forged, "a", client.String())
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// the genuine envelope carrying that nonce must still be honored
	genuine := chargeRequest(t, ts, env, "a", client.String())
	require.Equal(t, http.StatusOK, genuine.StatusCode)
}

func TestChargeRequiresEnvelope(t *testing.T) {
	_, ts := newTestServer(t)

	res := helpers.Must(http.Post(ts.URL+"/apps/a/clients/c/calls", "application/json", bytes.NewReader([]byte(`{"credits":1}`))))
	defer res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestChargeRejectsNonceReplay(t *testing.T) {
	srv, ts := newTestServer(t)
	client := fixtures.Alice.Address().String()
	srv.Ledger().Credit("a", fixtures.Alice.Address(), 10)

	env := helpers.Must(auth.NewEnvelope(fixtures.Alice, auth.DefaultDomain))

	res := chargeRequest(t, ts, env, "a", client)
	require.Equal(t, http.StatusOK, res.StatusCode)

	replay := chargeRequest(t, ts, env, "a", client)
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestChargeRejectsForeignDomain(t *testing.T) {
	_, ts := newTestServer(t, WithDomain("billing.example.com"))

	env := helpers.Must(auth.NewEnvelope(fixtures.Alice, "other.example.com"))
	res := chargeRequest(t, ts, env, "a", fixtures.Alice.Address().String())
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestChargeRejectsIdentifierMismatch(t *testing.T) {
	_, ts := newTestServer(t)

	// Mallory signs a valid envelope but targets Alice's account.
	env := helpers.Must(auth.NewEnvelope(fixtures.Mallory, auth.DefaultDomain))
	res := chargeRequest(t, ts, env, "a", fixtures.Alice.Address().String())
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestChargeInsufficientFundsKeepsBalance(t *testing.T) {
	srv, ts := newTestServer(t)
	client := fixtures.Bob.Address()

	env := helpers.Must(auth.NewEnvelope(fixtures.Bob, auth.DefaultDomain))
	res := chargeRequest(t, ts, env, "a", client.String())
	require.Equal(t, http.StatusPaymentRequired, res.StatusCode)

	var pr api.PaymentRequired
	require.NoError(t, json.NewDecoder(res.Body).Decode(&pr))
	require.NotEmpty(t, pr.Outputs)
	require.Positive(t, pr.Total())
	require.Equal(t, uint64(0), srv.Ledger().Balance("a", client))
}

func TestPaymentCreditsAccount(t *testing.T) {
	srv, ts := newTestServer(t)

	payment := api.Payment{AppID: "a", ClientID: "c", RawTx: "0100abcd", Credits: 42}
	body := helpers.Must(json.Marshal(payment))
	res := helpers.Must(http.Post(ts.URL+"/payments", "application/json", bytes.NewReader(body)))
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, uint64(42), srv.Ledger().Balance("a", "c"))
}

func TestPaymentRejectsMissingTransaction(t *testing.T) {
	_, ts := newTestServer(t)

	body := helpers.Must(json.Marshal(api.Payment{AppID: "a", ClientID: "c", Credits: 1}))
	res := helpers.Must(http.Post(ts.URL+"/payments", "application/json", bytes.NewReader(body)))
	defer io.Copy(io.Discard, res.Body)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}
