package signer

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/pkg/errors"

	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/api"
	"github.com/get402/get402-go/principal"
	"github.com/get402/get402-go/principal/secp256k1/verifier"
)

const Name = verifier.Name

// wifVersion is the mainnet private key version byte.
const wifVersion = 0x80

// compressedFlag trails the scalar in the encoding of a key whose address is
// derived from the compressed public key. All keys minted here are
// compressed.
const compressedFlag = 0x01

const keySize = 32

// Generate mints a signer with a fresh random private key.
func Generate() (principal.Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generating secp256k1 key")
	}
	return Secp256k1Signer{key}, nil
}

// Parse decodes the textual secret encoding (compressed WIF) produced by
// Encode. Parse then Encode round-trips exactly, and the derived address is
// always recomputed from the key, never trusted from elsewhere.
func Parse(s string) (principal.Signer, error) {
	version, payload, err := address.CheckDecode(s)
	if err != nil {
		return nil, errors.Wrapf(api.ErrInvalidKeyEncoding, "decoding secret: %s", err)
	}
	if version != wifVersion {
		return nil, errors.Wrapf(api.ErrInvalidKeyEncoding, "invalid version byte: %#x", version)
	}
	if len(payload) != keySize+1 || payload[keySize] != compressedFlag {
		return nil, errors.Wrap(api.ErrInvalidKeyEncoding, "not a compressed key encoding")
	}
	return Decode(payload[:keySize])
}

// Decode constructs a signer from raw private scalar bytes.
func Decode(b []byte) (principal.Signer, error) {
	if len(b) != keySize {
		return nil, errors.Wrapf(api.ErrInvalidKeyEncoding, "invalid length: %d wanted: %d", len(b), keySize)
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow {
		return nil, errors.Wrap(api.ErrInvalidKeyEncoding, "scalar exceeds group order")
	}
	if scalar.IsZero() {
		return nil, errors.Wrap(api.ErrInvalidKeyEncoding, "scalar is zero")
	}
	return Secp256k1Signer{secp256k1.NewPrivateKey(&scalar)}, nil
}

type Secp256k1Signer struct {
	key *secp256k1.PrivateKey
}

func (s Secp256k1Signer) Address() address.Address {
	return address.FromPublicKey(s.key.PubKey())
}

func (s Secp256k1Signer) Verifier() principal.Verifier {
	v, _ := verifier.Decode(s.key.PubKey().SerializeCompressed())
	return v
}

// Sign produces a 65 byte compact recoverable signature over
// SHA256(msg). The verifier recovers the public key from the signature, so no
// key material travels with the message.
func (s Secp256k1Signer) Sign(msg []byte) []byte {
	hash := sha256.Sum256(msg)
	return ecdsa.SignCompact(s.key, hash[:], true)
}

func (s Secp256k1Signer) Encode() string {
	payload := make([]byte, 0, keySize+1)
	payload = append(payload, s.key.Serialize()...)
	payload = append(payload, compressedFlag)
	return address.CheckEncode(wifVersion, payload)
}

func (s Secp256k1Signer) Raw() []byte {
	return s.key.Serialize()
}
