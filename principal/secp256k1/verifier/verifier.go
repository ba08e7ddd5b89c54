package verifier

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"

	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/principal"
)

const Name = "secp256k1"

// Decode parses a compressed public key into a verifier.
func Decode(b []byte) (principal.Verifier, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing compressed public key")
	}
	return Secp256k1Verifier{pub}, nil
}

// Recover extracts the verifier from a compact recoverable signature over
// msg. The recovered key must have been signed as compressed, since the
// address is derived from the compressed encoding.
func Recover(msg []byte, sig []byte) (principal.Verifier, error) {
	hash := sha256.Sum256(msg)
	pub, compressed, err := ecdsa.RecoverCompact(sig, hash[:])
	if err != nil {
		return nil, errors.Wrap(err, "recovering public key")
	}
	if !compressed {
		return nil, errors.New("signature was not produced over a compressed public key")
	}
	return Secp256k1Verifier{pub}, nil
}

type Secp256k1Verifier struct {
	pub *secp256k1.PublicKey
}

func (v Secp256k1Verifier) Address() address.Address {
	return address.FromPublicKey(v.pub)
}

func (v Secp256k1Verifier) Verify(msg []byte, sig []byte) bool {
	rec, err := Recover(msg, sig)
	if err != nil {
		return false
	}
	return rec.Address() == v.Address()
}

func (v Secp256k1Verifier) Encode() []byte {
	return v.pub.SerializeCompressed()
}
