package signer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/get402/get402-go/address"
	"github.com/get402/get402-go/api"
)

// A secret encoding exported by the production service's tooling.
const fixtureSecret = "Kzvu3L6wXPWPuscaFBtyJKWYMAHxKtEXKu4VqSbrbgqy6aqoGDL8"

func TestGenerateEncodeParse(t *testing.T) {
	s0, err := Generate()
	if err != nil {
		t.Fatalf("generating secp256k1 key: %v", err)
	}

	s1, err := Parse(s0.Encode())
	if err != nil {
		t.Fatalf("parsing exported key: %v", err)
	}

	if s0.Address() != s1.Address() {
		t.Fatalf("identifier mismatch: %s != %s", s0.Address(), s1.Address())
	}
}

func TestGenerateDecodeRaw(t *testing.T) {
	s0, err := Generate()
	require.NoError(t, err)

	s1, err := Decode(s0.Raw())
	require.NoError(t, err)
	require.Equal(t, s0.Address(), s1.Address())
}

func TestParseFixtureRoundTrip(t *testing.T) {
	s, err := Parse(fixtureSecret)
	require.NoError(t, err)
	require.Equal(t, fixtureSecret, s.Encode())
	require.True(t, strings.HasPrefix(s.Address().String(), "1"))
}

func TestGenerateDistinctIdentifiers(t *testing.T) {
	s0, err := Generate()
	require.NoError(t, err)
	s1, err := Generate()
	require.NoError(t, err)
	require.NotEqual(t, s0.Address(), s1.Address())
}

func TestAddressIsPubKeyHash(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	version, payload, err := address.CheckDecode(s.Address().String())
	require.NoError(t, err)
	require.Equal(t, byte(address.PubKeyHashVersion), version)
	require.Len(t, payload, 20)
}

func TestParseRejectsMalformedSecret(t *testing.T) {
	for _, s := range []string{
		"",
		"not base58 0OIl",
		"1BoatSLRHtKNngkdXEeobR76b53LETtpyT", // valid checksum, wrong version
	} {
		_, err := Parse(s)
		require.ErrorIs(t, err, api.ErrInvalidKeyEncoding, "input %q", s)
	}
}

func TestDecodeRejectsInvalidScalars(t *testing.T) {
	_, err := Decode(make([]byte, 32))
	require.ErrorIs(t, err, api.ErrInvalidKeyEncoding)

	_, err = Decode(bytes.Repeat([]byte{0xff}, 32))
	require.ErrorIs(t, err, api.ErrInvalidKeyEncoding)

	_, err = Decode([]byte{0x01})
	require.ErrorIs(t, err, api.ErrInvalidKeyEncoding)
}

func TestSignVerify(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	msg := []byte("testy")
	sig := s.Sign(msg)

	require.True(t, s.Verifier().Verify(msg, sig))
}

func TestSignatureBoundToMessage(t *testing.T) {
	s, err := Generate()
	require.NoError(t, err)

	msg := []byte(`{"nonce":"n","domain":"get402.com"}`)
	sig := s.Sign(msg)

	for i := range msg {
		tampered := bytes.Clone(msg)
		tampered[i] ^= 0x01
		require.False(t, s.Verifier().Verify(tampered, sig), "byte %d", i)
	}
}
