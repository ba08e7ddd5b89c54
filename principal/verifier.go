package principal

import "github.com/get402/get402-go/address"

// Verifier is the public half of a principal.
type Verifier interface {
	Address() address.Address
	// Verify reports whether sig is a valid signature over msg produced by
	// this principal's key.
	Verify(msg []byte, sig []byte) bool
	// Encode returns the compressed public key bytes.
	Encode() []byte
}
