// Package auth builds and verifies the signed authorization envelope
// attached to state-changing requests. An envelope binds a single-use nonce
// and a fixed domain string under the client's key: the nonce defeats replay
// against the same service, the domain defeats replay against a different
// relying party.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/principal"
	"github.com/get402/get402-go/principal/secp256k1/verifier"
)

// DefaultDomain is the relying party identifier signed into every envelope.
const DefaultDomain = "get402.com"

// Header names carrying the envelope on the wire.
const (
	HeaderIdentifier = "auth-identifier"
	HeaderMessage    = "auth-message"
	HeaderSignature  = "auth-signature"
)

// Message is the signed payload. Field order is fixed so the marshaled bytes
// are reproducible; the exact bytes travel alongside the signature and the
// server verifies over those bytes.
type Message struct {
	Nonce  string `json:"nonce"`
	Domain string `json:"domain"`
}

// Envelope is the signed bundle attached to an authenticated request. It is
// built immediately before each call and never reused.
type Envelope struct {
	Identifier address.Address
	Message    []byte
	Signature  []byte
}

// NewEnvelope signs a fresh nonce and the domain with the given signer.
func NewEnvelope(signer principal.Signer, domain string) (*Envelope, error) {
	msg, err := json.Marshal(Message{Nonce: uuid.NewString(), Domain: domain})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling auth message")
	}
	return &Envelope{
		Identifier: signer.Address(),
		Message:    msg,
		Signature:  signer.Sign(msg),
	}, nil
}

// Attach sets the envelope headers on an outgoing request.
func (e *Envelope) Attach(h http.Header) {
	h.Set(HeaderIdentifier, e.Identifier.String())
	h.Set(HeaderMessage, string(e.Message))
	h.Set(HeaderSignature, base64.StdEncoding.EncodeToString(e.Signature))
}

// ParseMessage decodes the signed payload of the envelope.
func (e *Envelope) ParseMessage() (Message, error) {
	var msg Message
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return Message{}, errors.Wrap(err, "unmarshaling auth message")
	}
	return msg, nil
}

// FromHeader extracts an envelope from incoming request headers.
func FromHeader(h http.Header) (*Envelope, error) {
	id := h.Get(HeaderIdentifier)
	if id == "" {
		return nil, errors.New("missing " + HeaderIdentifier + " header")
	}
	msg := h.Get(HeaderMessage)
	if msg == "" {
		return nil, errors.New("missing " + HeaderMessage + " header")
	}
	sig, err := base64.StdEncoding.DecodeString(h.Get(HeaderSignature))
	if err != nil {
		return nil, errors.Wrap(err, "decoding "+HeaderSignature+" header")
	}
	if len(sig) == 0 {
		return nil, errors.New("missing " + HeaderSignature + " header")
	}
	return &Envelope{
		Identifier: address.Address(id),
		Message:    []byte(msg),
		Signature:  sig,
	}, nil
}

// Verify checks that the envelope's signature recovers to its claimed
// identifier over the exact message bytes. The signature is not separable
// from the message: any altered byte recovers a different key and fails the
// identifier comparison.
func Verify(e *Envelope) error {
	v, err := verifier.Recover(e.Message, e.Signature)
	if err != nil {
		return errors.Wrap(err, "recovering signer")
	}
	if v.Address() != e.Identifier {
		return errors.Errorf("signature does not match identifier %s", e.Identifier)
	}
	return nil
}
