// Package api defines the wire types and error taxonomy of the metered
// access protocol.
package api

// Output is a single on-chain payment output: a script and an amount in the
// smallest currency unit.
type Output struct {
	Script string `json:"script"`
	Amount uint64 `json:"amount"`
}

// PaymentRequired is the machine-readable payment instruction carried by a
// 402 response or a buy-credits quote. It is read-only data consumed by the
// caller to construct and submit an on-chain payment.
type PaymentRequired struct {
	Outputs    []Output `json:"outputs"`
	Network    string   `json:"network"`
	Memo       string   `json:"memo"`
	PaymentURL string   `json:"paymentUrl"`
}

// Total sums the requested output amounts.
func (p PaymentRequired) Total() uint64 {
	var n uint64
	for _, o := range p.Outputs {
		n += o.Amount
	}
	return n
}

// BalanceResponse is the body of a successful balance query.
type BalanceResponse struct {
	AppID    string `json:"app_id"`
	ClientID string `json:"client_id"`
	Balance  uint64 `json:"balance"`
}

// ChargeReceipt is the body of a successful charge: the balance after the
// deduction.
type ChargeReceipt struct {
	AppID    string `json:"app_id"`
	ClientID string `json:"client_id"`
	Balance  uint64 `json:"balance"`
}

// Payment is a payment submission that settles a PaymentRequired quote.
type Payment struct {
	AppID    string `json:"app_id"`
	ClientID string `json:"client_id"`
	RawTx    string `json:"rawtx"`
	Credits  uint64 `json:"credits"`
}
