// Package address implements the textual identifier for principals: a
// Base58Check encoding of the hashed public key, in the pay-to-pubkey-hash
// form. The encoding is one directional - an address never decodes back to a
// key, only to the hash it was derived from.
package address

import (
	"bytes"
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160"
)

// PubKeyHashVersion is the mainnet version byte for pay-to-pubkey-hash
// addresses.
const PubKeyHashVersion = 0x00

const checksumSize = 4

var (
	ErrInvalidFormat = errors.New("invalid format: too short")
	ErrChecksum      = errors.New("invalid format: checksum mismatch")
)

// Address is the derived textual identifier of a principal.
type Address string

func (a Address) String() string {
	return string(a)
}

// FromPublicKey derives the address for a public key. It is a pure function
// of the key's compressed encoding and is stable across processes.
func FromPublicKey(pub *secp256k1.PublicKey) Address {
	return Address(CheckEncode(PubKeyHashVersion, Hash160(pub.SerializeCompressed())))
}

// Hash160 is RIPEMD160(SHA256(b)), the standard public key hash.
func Hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	rmd := ripemd160.New()
	rmd.Write(sha[:])
	return rmd.Sum(nil)
}

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:checksumSize]
}

// CheckEncode encodes a version byte and payload as a Base58Check string.
func CheckEncode(version byte, payload []byte) string {
	b := make([]byte, 0, 1+len(payload)+checksumSize)
	b = append(b, version)
	b = append(b, payload...)
	b = append(b, checksum(b)...)
	return base58.Encode(b)
}

// CheckDecode decodes a Base58Check string into its version byte and payload,
// validating the trailing checksum.
func CheckDecode(s string) (byte, []byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return 0, nil, errors.Wrap(err, "decoding base58 string")
	}
	if len(b) < 1+checksumSize {
		return 0, nil, ErrInvalidFormat
	}
	data, sum := b[:len(b)-checksumSize], b[len(b)-checksumSize:]
	if !bytes.Equal(checksum(data), sum) {
		return 0, nil, ErrChecksum
	}
	return data[0], data[1:], nil
}
