package principal

import "github.com/get402/get402-go/address"

// Signer is a principal that holds private key material and can produce
// authorization signatures. The exported form is the checksummed textual
// secret encoding, suitable for persistence by the caller.
type Signer interface {
	// Address is the derived textual identifier of the principal.
	Address() address.Address
	// Sign produces a compact recoverable signature over the message bytes.
	// Signing is a pure function of (key, message) and is safe to call
	// concurrently.
	Sign(msg []byte) []byte
	// Verifier returns the public half of the principal.
	Verifier() Verifier
	// Encode returns the textual secret encoding of the private key.
	Encode() string
	// Raw returns the private scalar bytes.
	Raw() []byte
}
